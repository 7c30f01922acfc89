package taxonomy

import (
	"context"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// READER INTERFACES
// The taxonomy is reference data maintained elsewhere. These interfaces define
// the read-only contract this core consumes; implementations live in
// infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Reader provides read access to a tenant's evaluation taxonomy.
type Reader interface {
	// OptionSets returns the tenant's option sets with their options, in sort
	// order. Returns an empty slice for tenants without configured sets.
	OptionSets(ctx context.Context, tenantID shared.TenantID) ([]OptionSet, error)

	// OptionSet returns a single set by ID.
	// Returns ErrOptionSetNotFound if no such set exists.
	OptionSet(ctx context.Context, tenantID shared.TenantID, setID string) (*OptionSet, error)

	// OperationMode returns the tenant's configured operation mode.
	OperationMode(ctx context.Context, tenantID shared.TenantID) (OperationMode, error)
}

// DefaultsReader provides read access to tenant absence-reason defaults.
type DefaultsReader interface {
	// AbsenceDefaults returns the tenant's configured defaults, falling back to
	// DefaultAbsenceDefaults for unconfigured tenants.
	AbsenceDefaults(ctx context.Context, tenantID shared.TenantID) (AbsenceDefaults, error)
}
