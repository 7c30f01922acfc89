// Package taxonomy contains the read-only evaluation taxonomy consumed by the
// feed engine: option sets with their selectable options, the tenant's
// operation mode, and per-reason absence defaults. The taxonomy is owned and
// edited by an external configuration surface; this core only reads it.
package taxonomy

import (
	"strings"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// OPERATION MODE
// ══════════════════════════════════════════════════════════════════════════════

// OperationMode controls how strictly required option sets are enforced.
type OperationMode string

const (
	// OperationModeStandard - one teacher owns the whole record; every
	// required option set must carry a selection before save.
	OperationModeStandard OperationMode = "standard"

	// OperationModeTeam - multiple teachers each submit partial subsets of a
	// record, so required-set enforcement is relaxed at validation time.
	OperationModeTeam OperationMode = "team"
)

// IsValid checks that the mode is a supported value.
func (m OperationMode) IsValid() bool {
	switch m {
	case OperationModeStandard, OperationModeTeam:
		return true
	default:
		return false
	}
}

// RelaxesRequiredSets reports whether required-set validation is skipped.
func (m OperationMode) RelaxesRequiredSets() bool {
	return m == OperationModeTeam
}

// ══════════════════════════════════════════════════════════════════════════════
// OPTION SET & OPTION
// ══════════════════════════════════════════════════════════════════════════════

// OptionSet is a named evaluation category (e.g. "Focus", "Homework") with
// enumerated selectable options.
type OptionSet struct {
	// ID - unique identifier of the set.
	ID string

	// TenantID - owning tenant.
	TenantID shared.TenantID

	// Name - display name of the category.
	Name string

	// Scored - whether options in this set carry numeric scores.
	Scored bool

	// ScoreStep - granularity of scores when Scored (e.g. 5 for 0/5/10/...).
	ScoreStep int

	// Required - whether a selection is mandatory for non-absent records.
	Required bool

	// Modes - operation modes under which this set applies. Empty means all.
	Modes []OperationMode

	// Options - the selectable values, in display order.
	Options []Option

	// SortOrder - position among the tenant's sets.
	SortOrder int
}

// AppliesTo reports whether the set is active under the given mode.
func (s OptionSet) AppliesTo(mode OperationMode) bool {
	if len(s.Modes) == 0 {
		return true
	}
	for _, m := range s.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// FindOption returns the option with the given ID, or nil.
func (s OptionSet) FindOption(optionID string) *Option {
	for i := range s.Options {
		if s.Options[i].ID == optionID {
			return &s.Options[i]
		}
	}
	return nil
}

// Option is a selectable value within an OptionSet.
type Option struct {
	// ID - unique identifier of the option.
	ID string

	// OptionSetID - the set this option belongs to.
	OptionSetID string

	// Label - display label.
	Label string

	// Score - numeric score, nil for unscored sets.
	Score *int

	// SortOrder - position within the set.
	SortOrder int
}

// ══════════════════════════════════════════════════════════════════════════════
// ABSENCE REASONS
// ══════════════════════════════════════════════════════════════════════════════

// AbsenceReason classifies why a student was absent.
type AbsenceReason string

const (
	ReasonSick   AbsenceReason = "sick"
	ReasonFamily AbsenceReason = "family"
	ReasonSchool AbsenceReason = "school_event"
	ReasonTravel AbsenceReason = "travel"
	ReasonOther  AbsenceReason = "other"
)

// IsValid checks that the reason is a supported value.
func (r AbsenceReason) IsValid() bool {
	switch r {
	case ReasonSick, ReasonFamily, ReasonSchool, ReasonTravel, ReasonOther:
		return true
	default:
		return false
	}
}

// RequiresDetail reports whether free-text detail is mandatory.
func (r AbsenceReason) RequiresDetail() bool {
	return r == ReasonOther
}

// String returns the string representation.
func (r AbsenceReason) String() string {
	return string(r)
}

// ParseAbsenceReason parses a reason string with validation.
func ParseAbsenceReason(s string) (AbsenceReason, error) {
	r := AbsenceReason(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", shared.ErrUnknownReason
	}
	return r, nil
}
