package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
)

// ══════════════════════════════════════════════════════════════════════════════
// TAXONOMY READER IMPLEMENTATION
// Read-only access to reference data maintained by the configuration surface.
// Implements both taxonomy.Reader and taxonomy.DefaultsReader.
// ══════════════════════════════════════════════════════════════════════════════

// TaxonomyRepository implements taxonomy.Reader and taxonomy.DefaultsReader
// for PostgreSQL.
type TaxonomyRepository struct {
	conn *Connection
}

// NewTaxonomyRepository creates a new TaxonomyRepository.
func NewTaxonomyRepository(conn *Connection) *TaxonomyRepository {
	return &TaxonomyRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// Option Sets
// ─────────────────────────────────────────────────────────────────────────────

// OptionSets returns the tenant's option sets with their options, in sort order.
func (r *TaxonomyRepository) OptionSets(ctx context.Context, tenantID shared.TenantID) ([]taxonomy.OptionSet, error) {
	query := `
		SELECT id, tenant_id, name, scored, score_step, required, modes, sort_order
		FROM option_sets
		WHERE tenant_id = $1
		ORDER BY sort_order, name
	`

	rows, err := r.conn.Query(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query option sets: %w", err)
	}
	defer rows.Close()

	sets := []taxonomy.OptionSet{}
	setIndex := map[string]int{}
	for rows.Next() {
		var set taxonomy.OptionSet
		var tid string
		var modes []string

		err := rows.Scan(&set.ID, &tid, &set.Name, &set.Scored, &set.ScoreStep, &set.Required, &modes, &set.SortOrder)
		if err != nil {
			return nil, fmt.Errorf("failed to scan option set: %w", err)
		}

		set.TenantID = shared.TenantID(tid)
		for _, m := range modes {
			set.Modes = append(set.Modes, taxonomy.OperationMode(m))
		}

		setIndex[set.ID] = len(sets)
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	if len(sets) == 0 {
		return sets, nil
	}

	if err := r.loadOptions(ctx, tenantID, sets, setIndex); err != nil {
		return nil, err
	}

	return sets, nil
}

// OptionSet returns a single set by ID.
func (r *TaxonomyRepository) OptionSet(ctx context.Context, tenantID shared.TenantID, setID string) (*taxonomy.OptionSet, error) {
	query := `
		SELECT id, tenant_id, name, scored, score_step, required, modes, sort_order
		FROM option_sets
		WHERE tenant_id = $1 AND id = $2
	`

	var set taxonomy.OptionSet
	var tid string
	var modes []string

	err := r.conn.QueryRow(ctx, query, tenantID.String(), setID).
		Scan(&set.ID, &tid, &set.Name, &set.Scored, &set.ScoreStep, &set.Required, &modes, &set.SortOrder)
	if IsNoRows(err) {
		return nil, shared.ErrOptionSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan option set: %w", err)
	}

	set.TenantID = shared.TenantID(tid)
	for _, m := range modes {
		set.Modes = append(set.Modes, taxonomy.OperationMode(m))
	}

	sets := []taxonomy.OptionSet{set}
	if err := r.loadOptions(ctx, tenantID, sets, map[string]int{set.ID: 0}); err != nil {
		return nil, err
	}

	return &sets[0], nil
}

// loadOptions fills the Options of the given sets in one query.
func (r *TaxonomyRepository) loadOptions(ctx context.Context, tenantID shared.TenantID, sets []taxonomy.OptionSet, setIndex map[string]int) error {
	query := `
		SELECT o.id, o.option_set_id, o.label, o.score, o.sort_order
		FROM options o
		JOIN option_sets s ON s.id = o.option_set_id
		WHERE s.tenant_id = $1
		ORDER BY o.option_set_id, o.sort_order, o.label
	`

	rows, err := r.conn.Query(ctx, query, tenantID.String())
	if err != nil {
		return fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var opt taxonomy.Option

		if err := rows.Scan(&opt.ID, &opt.OptionSetID, &opt.Label, &opt.Score, &opt.SortOrder); err != nil {
			return fmt.Errorf("failed to scan option: %w", err)
		}

		if idx, ok := setIndex[opt.OptionSetID]; ok {
			sets[idx].Options = append(sets[idx].Options, opt)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration error: %w", err)
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Tenant Settings
// ─────────────────────────────────────────────────────────────────────────────

// OperationMode returns the tenant's configured operation mode. Tenants
// without a settings row run in standard mode.
func (r *TaxonomyRepository) OperationMode(ctx context.Context, tenantID shared.TenantID) (taxonomy.OperationMode, error) {
	query := `SELECT operation_mode FROM tenant_settings WHERE tenant_id = $1`

	var mode string
	err := r.conn.QueryRow(ctx, query, tenantID.String()).Scan(&mode)
	if IsNoRows(err) {
		return taxonomy.OperationModeStandard, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query operation mode: %w", err)
	}

	m := taxonomy.OperationMode(mode)
	if !m.IsValid() {
		return taxonomy.OperationModeStandard, nil
	}

	return m, nil
}

// AbsenceDefaults returns the tenant's configured absence defaults, falling
// back to the built-in defaults for unconfigured tenants.
func (r *TaxonomyRepository) AbsenceDefaults(ctx context.Context, tenantID shared.TenantID) (taxonomy.AbsenceDefaults, error) {
	query := `SELECT absence_defaults, absence_default_fallback FROM tenant_settings WHERE tenant_id = $1`

	var defaultsJSON []byte
	var fallback bool

	err := r.conn.QueryRow(ctx, query, tenantID.String()).Scan(&defaultsJSON, &fallback)
	if IsNoRows(err) {
		return taxonomy.DefaultAbsenceDefaults(tenantID), nil
	}
	if err != nil {
		return taxonomy.AbsenceDefaults{}, fmt.Errorf("failed to query absence defaults: %w", err)
	}

	needsMakeup := map[taxonomy.AbsenceReason]bool{}
	if len(defaultsJSON) > 0 {
		var raw map[string]bool
		if err := json.Unmarshal(defaultsJSON, &raw); err != nil {
			return taxonomy.AbsenceDefaults{}, fmt.Errorf("failed to unmarshal absence defaults: %w", err)
		}
		for reason, v := range raw {
			needsMakeup[taxonomy.AbsenceReason(reason)] = v
		}
	}

	// An empty configured map means "use the built-in table", not "everything
	// follows the fallback".
	if len(needsMakeup) == 0 {
		defaults := taxonomy.DefaultAbsenceDefaults(tenantID)
		defaults.Fallback = fallback
		return defaults, nil
	}

	return taxonomy.AbsenceDefaults{
		TenantID:    tenantID,
		NeedsMakeup: needsMakeup,
		Fallback:    fallback,
	}, nil
}
