package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
)

func standardConfig() ValidationConfig {
	return ValidationConfig{
		Mode: taxonomy.OperationModeStandard,
		OptionSets: []taxonomy.OptionSet{
			{ID: "set-focus", Name: "Focus", Required: true},
			{ID: "set-homework", Name: "Homework", Required: true},
			{ID: "set-extra", Name: "Extra", Required: false},
		},
	}
}

func TestValidate_AbsenceRequiresReason(t *testing.T) {
	draft := Draft{Attendance: AttendanceAbsent}

	violations := Validate(draft, standardConfig())

	assert.Len(t, violations, 1)
	assert.Equal(t, "absence_reason", violations[0].Field)
}

func TestValidate_ReasonOtherRequiresDetail(t *testing.T) {
	draft := Draft{
		Attendance:    AttendanceAbsent,
		AbsenceReason: taxonomy.ReasonOther,
	}

	violations := Validate(draft, standardConfig())
	assert.Len(t, violations, 1)
	assert.Equal(t, "absence_detail", violations[0].Field)

	draft.AbsenceDetail = "doctor appointment ran long"
	assert.Empty(t, Validate(draft, standardConfig()))
}

func TestValidate_UnknownAbsenceReasonRejected(t *testing.T) {
	draft := Draft{
		Attendance:    AttendanceAbsent,
		AbsenceReason: "abducted",
	}

	violations := Validate(draft, standardConfig())

	assert.Len(t, violations, 1)
	assert.Equal(t, "absence_reason", violations[0].Field)
	assert.Contains(t, violations[0].Message, "unknown absence reason")
}

func TestValidate_AbsenceIgnoresSelections(t *testing.T) {
	// Selections on an absence are stripped before persistence, never flagged.
	draft := Draft{
		Attendance:    AttendanceAbsent,
		AbsenceReason: taxonomy.ReasonSick,
		Selections:    map[string]string{"set-focus": "opt-1"},
	}

	assert.Empty(t, Validate(draft, standardConfig()))
}

func TestValidate_PresentRequiresRequiredSets(t *testing.T) {
	draft := Draft{
		Attendance: AttendancePresent,
		Selections: map[string]string{"set-focus": "opt-1"},
	}

	violations := Validate(draft, standardConfig())

	assert.Len(t, violations, 1)
	assert.Equal(t, "selections", violations[0].Field)
	assert.Equal(t, "set-homework", violations[0].OptionSetID)
}

func TestValidate_LateEnforcedLikePresent(t *testing.T) {
	draft := Draft{Attendance: AttendanceLate}

	violations := Validate(draft, standardConfig())

	assert.Len(t, violations, 2)
}

func TestValidate_TeamModeRelaxesRequiredSets(t *testing.T) {
	cfg := standardConfig()
	cfg.Mode = taxonomy.OperationModeTeam

	draft := Draft{Attendance: AttendancePresent}

	assert.Empty(t, Validate(draft, cfg))
}

func TestValidate_ModeScopedSetSkipped(t *testing.T) {
	cfg := ValidationConfig{
		Mode: taxonomy.OperationModeStandard,
		OptionSets: []taxonomy.OptionSet{
			{ID: "set-team-only", Name: "Team Only", Required: true, Modes: []taxonomy.OperationMode{taxonomy.OperationModeTeam}},
		},
	}

	draft := Draft{Attendance: AttendancePresent}

	assert.Empty(t, Validate(draft, cfg))
}

func TestComputeStatus_Empty(t *testing.T) {
	status, violations := ComputeStatus(Draft{}, nil, standardConfig())

	assert.Equal(t, StatusEmpty, status)
	assert.Empty(t, violations)
}

func TestComputeStatus_DirtyWithoutSnapshot(t *testing.T) {
	draft := Draft{Memo: "spoke with parent"}

	status, _ := ComputeStatus(draft, nil, standardConfig())

	assert.Equal(t, StatusDirty, status)
}

func TestComputeStatus_SavedWhenDraftMatchesSnapshot(t *testing.T) {
	draft := Draft{
		Attendance:    AttendanceAbsent,
		AbsenceReason: taxonomy.ReasonSick,
	}
	snapshot := draft.Clone()

	status, _ := ComputeStatus(draft, &snapshot, standardConfig())

	assert.Equal(t, StatusSaved, status)
}

func TestComputeStatus_DirtyWhenDraftDiverges(t *testing.T) {
	snapshot := Draft{
		Attendance:    AttendanceAbsent,
		AbsenceReason: taxonomy.ReasonSick,
	}
	draft := snapshot.Clone()
	draft.AbsenceReason = taxonomy.ReasonFamily

	status, _ := ComputeStatus(draft, &snapshot, standardConfig())

	assert.Equal(t, StatusDirty, status)
}

func TestComputeStatus_ErrorWinsOverDirty(t *testing.T) {
	draft := Draft{Attendance: AttendanceAbsent}

	status, violations := ComputeStatus(draft, nil, standardConfig())

	assert.Equal(t, StatusError, status)
	assert.NotEmpty(t, violations)
}
