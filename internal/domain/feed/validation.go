package feed

import (
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALIDATION ENGINE
// ComputeStatus is a pure function: given the current draft, the last persisted
// snapshot and the tenant configuration it derives the card status. It runs
// after every field mutation and must stay deterministic and side-effect free.
// ══════════════════════════════════════════════════════════════════════════════

// CardStatus is the computed state of a card.
type CardStatus string

const (
	// StatusEmpty - nothing entered, nothing persisted.
	StatusEmpty CardStatus = "empty"

	// StatusDirty - the draft differs from the last persisted snapshot (or
	// carries input while nothing was ever persisted). Saving is permitted.
	StatusDirty CardStatus = "dirty"

	// StatusError - the draft violates a validation rule. Saving is rejected
	// locally; the draft never reaches the persistence boundary.
	StatusError CardStatus = "error"

	// StatusSaved - the draft matches the last persisted snapshot.
	StatusSaved CardStatus = "saved"
)

// IsValid checks that the status is a supported value.
func (s CardStatus) IsValid() bool {
	switch s {
	case StatusEmpty, StatusDirty, StatusError, StatusSaved:
		return true
	default:
		return false
	}
}

// RuleViolation describes one failed validation rule.
type RuleViolation struct {
	// Field - the draft field at fault ("absence_reason", "absence_detail",
	// "selections").
	Field string

	// OptionSetID - the required set missing a selection, when applicable.
	OptionSetID string

	// Message - human-readable description for the caller.
	Message string
}

// ValidationConfig is the tenant configuration the validation runs against.
type ValidationConfig struct {
	// Mode - the tenant's operation mode. Team mode relaxes required-set
	// enforcement because several teachers each submit partial subsets.
	Mode taxonomy.OperationMode

	// OptionSets - the tenant's evaluation taxonomy.
	OptionSets []taxonomy.OptionSet
}

// ComputeStatus derives the card status from the draft.
//
// Rules, in order:
//  1. absent: a known absence reason is required; reason "other" additionally
//     requires non-empty detail. Selections are ignored here - they are
//     stripped before persistence, not flagged.
//  2. present/late: every required option set applicable under the configured
//     mode needs a selection, unless the mode relaxes this.
//  3. any violation -> error.
//  4. snapshot exists and draft equals it -> saved.
//  5. draft differs from snapshot, or no snapshot but non-default input -> dirty.
//  6. otherwise -> empty.
func ComputeStatus(draft Draft, snapshot *Draft, cfg ValidationConfig) (CardStatus, []RuleViolation) {
	violations := Validate(draft, cfg)
	if len(violations) > 0 {
		return StatusError, violations
	}

	if snapshot != nil {
		if draft.Equal(*snapshot) {
			return StatusSaved, nil
		}
		return StatusDirty, nil
	}

	if !draft.IsBlank() {
		return StatusDirty, nil
	}

	return StatusEmpty, nil
}

// Validate applies rules (1) and (2) and returns every violation found.
func Validate(draft Draft, cfg ValidationConfig) []RuleViolation {
	var violations []RuleViolation

	switch {
	case draft.Attendance.IsAbsent():
		if draft.AbsenceReason == "" {
			violations = append(violations, RuleViolation{
				Field:   "absence_reason",
				Message: "absence reason is required when status is absent",
			})
		} else if !draft.AbsenceReason.IsValid() {
			violations = append(violations, RuleViolation{
				Field:   "absence_reason",
				Message: "unknown absence reason " + string(draft.AbsenceReason),
			})
		} else if draft.AbsenceReason.RequiresDetail() && draft.AbsenceDetail == "" {
			violations = append(violations, RuleViolation{
				Field:   "absence_detail",
				Message: "absence detail is required when reason is other",
			})
		}

	case draft.Attendance.Attended():
		if cfg.Mode.RelaxesRequiredSets() {
			break
		}
		for _, set := range cfg.OptionSets {
			if !set.Required || !set.AppliesTo(cfg.Mode) {
				continue
			}
			if _, ok := draft.Selections[set.ID]; !ok {
				violations = append(violations, RuleViolation{
					Field:       "selections",
					OptionSetID: set.ID,
					Message:     "required evaluation " + set.Name + " has no selection",
				})
			}
		}
	}

	return violations
}
