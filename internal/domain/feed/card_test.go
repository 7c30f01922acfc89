package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
)

const (
	testTenantID  = "11111111-1111-1111-1111-111111111111"
	testStudentID = "22222222-2222-2222-2222-222222222222"
	testClassID   = "33333333-3333-3333-3333-333333333333"
	testToken     = "44444444-4444-4444-4444-444444444444"
)

func testKey() Key {
	return Key{
		TenantID:  shared.TenantID(testTenantID),
		StudentID: shared.StudentID(testStudentID),
		ClassID:   shared.ClassID(testClassID),
		Date:      shared.NewFeedDate(2026, 3, 9),
	}
}

func teamConfig() ValidationConfig {
	return ValidationConfig{Mode: taxonomy.OperationModeTeam}
}

func TestCard_NewCardStartsEmpty(t *testing.T) {
	card := NewCard(testKey(), teamConfig())

	assert.Equal(t, StatusEmpty, card.Status())
	assert.Empty(t, card.RecordID())
	assert.Nil(t, card.Snapshot())
}

func TestCard_NewCardFromRecordStartsSaved(t *testing.T) {
	rec, err := NewFeedRecord("rec-1", testKey(), Draft{Attendance: AttendancePresent}, shared.IdempotencyToken(testToken))
	require.NoError(t, err)

	card := NewCardFromRecord(rec, teamConfig())

	assert.Equal(t, StatusSaved, card.Status())
	assert.Equal(t, "rec-1", card.RecordID())
}

func TestCard_EditMovesToDirty(t *testing.T) {
	card := NewCard(testKey(), teamConfig())

	card.Edit(func(d *Draft) { d.Attendance = AttendancePresent })

	assert.Equal(t, StatusDirty, card.Status())
}

func TestCard_EditBackToSnapshotIsSaved(t *testing.T) {
	rec, err := NewFeedRecord("rec-1", testKey(), Draft{Attendance: AttendancePresent}, shared.IdempotencyToken(testToken))
	require.NoError(t, err)
	card := NewCardFromRecord(rec, teamConfig())

	card.Edit(func(d *Draft) { d.Memo = "note" })
	assert.Equal(t, StatusDirty, card.Status())

	// Undoing the edit by hand lands the card back on saved.
	card.Edit(func(d *Draft) { d.Memo = "" })
	assert.Equal(t, StatusSaved, card.Status())
}

func TestCard_BeginSaveOnDirtyCard(t *testing.T) {
	card := NewCard(testKey(), teamConfig())
	card.Edit(func(d *Draft) { d.Attendance = AttendancePresent })

	ok, err := card.BeginSave(shared.IdempotencyToken(testToken))

	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, card.InFlight())
	assert.Equal(t, shared.IdempotencyToken(testToken), card.LastToken())
}

func TestCard_BeginSaveOnCleanCardIsNoop(t *testing.T) {
	card := NewCard(testKey(), teamConfig())

	ok, err := card.BeginSave(shared.IdempotencyToken(testToken))

	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, card.InFlight())
}

func TestCard_BeginSaveOnErrorCardRejected(t *testing.T) {
	card := NewCard(testKey(), teamConfig())
	card.Edit(func(d *Draft) { d.Attendance = AttendanceAbsent })
	require.Equal(t, StatusError, card.Status())

	ok, err := card.BeginSave(shared.IdempotencyToken(testToken))

	assert.False(t, ok)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCard_BeginSaveWhileInFlightRejected(t *testing.T) {
	card := NewCard(testKey(), teamConfig())
	card.Edit(func(d *Draft) { d.Attendance = AttendancePresent })

	_, err := card.BeginSave(shared.IdempotencyToken(testToken))
	require.NoError(t, err)

	_, err = card.BeginSave(shared.IdempotencyToken(testToken))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestCard_CompleteSaveLandsOnSaved(t *testing.T) {
	card := NewCard(testKey(), teamConfig())
	card.Edit(func(d *Draft) { d.Attendance = AttendancePresent })

	_, err := card.BeginSave(shared.IdempotencyToken(testToken))
	require.NoError(t, err)

	card.CompleteSave("rec-9")

	assert.Equal(t, StatusSaved, card.Status())
	assert.Equal(t, "rec-9", card.RecordID())
	assert.False(t, card.InFlight())
	require.NotNil(t, card.Snapshot())
	assert.True(t, card.Snapshot().Equal(card.Draft()))
}

func TestCard_FailSaveKeepsDraftDirty(t *testing.T) {
	card := NewCard(testKey(), teamConfig())
	card.Edit(func(d *Draft) { d.Attendance = AttendancePresent })

	_, err := card.BeginSave(shared.IdempotencyToken(testToken))
	require.NoError(t, err)

	card.FailSave()

	assert.Equal(t, StatusDirty, card.Status())
	assert.False(t, card.InFlight())
	assert.Equal(t, AttendancePresent, card.Draft().Attendance)
}

func TestCard_ResetReturnsToSnapshot(t *testing.T) {
	rec, err := NewFeedRecord("rec-1", testKey(), Draft{Attendance: AttendancePresent}, shared.IdempotencyToken(testToken))
	require.NoError(t, err)
	card := NewCardFromRecord(rec, teamConfig())

	card.Edit(func(d *Draft) { d.Memo = "unsaved" })
	card.Reset()

	assert.Equal(t, StatusSaved, card.Status())
	assert.Empty(t, card.Draft().Memo)
}

func TestCard_ResetWithoutSnapshotClearsDraft(t *testing.T) {
	card := NewCard(testKey(), teamConfig())
	card.Edit(func(d *Draft) { d.Attendance = AttendancePresent })

	card.Reset()

	assert.Equal(t, StatusEmpty, card.Status())
}

func TestCard_RestoreDraftRecomputes(t *testing.T) {
	card := NewCard(testKey(), teamConfig())

	card.RestoreDraft(Draft{Attendance: AttendancePresent, Memo: "recovered"})

	assert.Equal(t, StatusDirty, card.Status())
	assert.Equal(t, "recovered", card.Draft().Memo)
}
