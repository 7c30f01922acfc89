package taxonomy

import (
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
)

// AbsenceDefaults maps each absence reason to the tenant's default answer for
// "does this absence earn a makeup session". A per-record override always wins
// over these defaults; they are consulted only when the record carries none.
type AbsenceDefaults struct {
	// TenantID - owning tenant.
	TenantID shared.TenantID

	// NeedsMakeup - default needs-makeup flag per reason.
	NeedsMakeup map[AbsenceReason]bool

	// Fallback - answer for reasons missing from the map.
	Fallback bool
}

// Resolve returns the needs-makeup default for the given reason, preferring an
// explicit per-record override when one is present.
func (d AbsenceDefaults) Resolve(reason AbsenceReason, override *bool) bool {
	if override != nil {
		return *override
	}
	if v, ok := d.NeedsMakeup[reason]; ok {
		return v
	}
	return d.Fallback
}

// DefaultAbsenceDefaults returns the defaults applied to tenants that have not
// configured their own: illness and family emergencies earn a makeup, planned
// absences do not.
func DefaultAbsenceDefaults(tenantID shared.TenantID) AbsenceDefaults {
	return AbsenceDefaults{
		TenantID: tenantID,
		NeedsMakeup: map[AbsenceReason]bool{
			ReasonSick:   true,
			ReasonFamily: true,
			ReasonSchool: false,
			ReasonTravel: false,
			ReasonOther:  false,
		},
		Fallback: false,
	}
}
