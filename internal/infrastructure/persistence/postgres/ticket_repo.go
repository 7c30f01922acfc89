package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/ticket"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAKEUP TICKET REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// TicketRepository implements ticket.Repository for PostgreSQL.
type TicketRepository struct {
	conn *Connection
}

// NewTicketRepository creates a new TicketRepository.
func NewTicketRepository(conn *Connection) *TicketRepository {
	return &TicketRepository{conn: conn}
}

const ticketColumns = `
	id, tenant_id, student_id, class_id, absence_date, absence_reason, status,
	scheduled_date, scheduled_time, completion_note, cancellation_reason,
	created_at, updated_at
`

// ─────────────────────────────────────────────────────────────────────────────
// Write Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create persists a new ticket. The partial unique index on open tickets
// rejects a second open ticket for the same (student, absence date).
func (r *TicketRepository) Create(ctx context.Context, t *ticket.MakeupTicket) error {
	query := `
		INSERT INTO makeup_tickets (
			id, tenant_id, student_id, class_id, absence_date, absence_reason, status,
			scheduled_date, scheduled_time, completion_note, cancellation_reason,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.conn.Exec(ctx, query,
		t.ID,
		t.TenantID.String(),
		t.StudentID.String(),
		t.ClassID.String(),
		t.AbsenceDate.Time(),
		t.AbsenceReason.String(),
		t.Status.String(),
		scheduledDateArg(t.ScheduledDate),
		t.ScheduledTime.String(),
		t.CompletionNote,
		t.CancellationReason,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrTicketAlreadyOpen
		}
		return fmt.Errorf("failed to create makeup ticket: %w", err)
	}

	return nil
}

// Update persists a transitioned ticket.
func (r *TicketRepository) Update(ctx context.Context, t *ticket.MakeupTicket) error {
	query := `
		UPDATE makeup_tickets SET
			status = $1,
			scheduled_date = $2,
			scheduled_time = $3,
			completion_note = $4,
			cancellation_reason = $5,
			updated_at = $6
		WHERE tenant_id = $7 AND id = $8
	`

	result, err := r.conn.Exec(ctx, query,
		t.Status.String(),
		scheduledDateArg(t.ScheduledDate),
		t.ScheduledTime.String(),
		t.CompletionNote,
		t.CancellationReason,
		t.UpdatedAt,
		t.TenantID.String(),
		t.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrTicketAlreadyOpen
		}
		return fmt.Errorf("failed to update makeup ticket: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrTicketNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Read Operations
// ─────────────────────────────────────────────────────────────────────────────

// GetByID returns a ticket by ID.
func (r *TicketRepository) GetByID(ctx context.Context, tenantID shared.TenantID, id string) (*ticket.MakeupTicket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM makeup_tickets
		WHERE tenant_id = $1 AND id = $2
	`

	row := r.conn.QueryRow(ctx, query, tenantID.String(), id)
	return scanTicket(row)
}

// FindOpenByAbsence returns the open ticket for a student's absence day.
func (r *TicketRepository) FindOpenByAbsence(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID, absenceDate shared.FeedDate) (*ticket.MakeupTicket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM makeup_tickets
		WHERE tenant_id = $1 AND student_id = $2 AND absence_date = $3
		  AND status IN ('pending', 'scheduled')
	`

	row := r.conn.QueryRow(ctx, query, tenantID.String(), studentID.String(), absenceDate.Time())
	return scanTicket(row)
}

// List returns tickets matching the filter, newest absence first.
func (r *TicketRepository) List(ctx context.Context, tenantID shared.TenantID, filter ticket.ListFilter, p shared.Pagination) ([]*ticket.MakeupTicket, error) {
	conditions := []string{"tenant_id = $1"}
	args := []interface{}{tenantID.String()}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			args = append(args, s.String())
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if !filter.StudentID.IsEmpty() {
		args = append(args, filter.StudentID.String())
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if filter.AbsenceDates.IsValid() {
		args = append(args, filter.AbsenceDates.From.Time())
		conditions = append(conditions, fmt.Sprintf("absence_date >= $%d", len(args)))
		args = append(args, filter.AbsenceDates.To.Time())
		conditions = append(conditions, fmt.Sprintf("absence_date <= $%d", len(args)))
	}
	if filter.ScheduledDates.IsValid() {
		args = append(args, filter.ScheduledDates.From.Time())
		conditions = append(conditions, fmt.Sprintf("scheduled_date >= $%d", len(args)))
		args = append(args, filter.ScheduledDates.To.Time())
		conditions = append(conditions, fmt.Sprintf("scheduled_date <= $%d", len(args)))
	}

	args = append(args, p.Limit())
	limitIdx := len(args)
	args = append(args, p.Offset())
	offsetIdx := len(args)

	query := fmt.Sprintf(`
		SELECT %s
		FROM makeup_tickets
		WHERE %s
		ORDER BY absence_date DESC, created_at DESC
		LIMIT $%d OFFSET $%d
	`, ticketColumns, strings.Join(conditions, " AND "), limitIdx, offsetIdx)

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list makeup tickets: %w", err)
	}
	defer rows.Close()

	return scanTickets(rows)
}

// CountOpen counts open tickets for a student.
func (r *TicketRepository) CountOpen(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM makeup_tickets
		WHERE tenant_id = $1 AND student_id = $2 AND status IN ('pending', 'scheduled')
	`

	var count int
	err := r.conn.QueryRow(ctx, query, tenantID.String(), studentID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open tickets: %w", err)
	}

	return count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// scheduledDateArg maps a zero scheduled date to SQL NULL.
func scheduledDateArg(d shared.FeedDate) *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time()
	return &t
}

// scanTicket scans a single ticket from a row.
func scanTicket(row pgx.Row) (*ticket.MakeupTicket, error) {
	t, err := scanTicketValues(row.Scan)
	if IsNoRows(err) {
		return nil, shared.ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan makeup ticket: %w", err)
	}
	return t, nil
}

// scanTickets scans multiple tickets from rows.
func scanTickets(rows pgx.Rows) ([]*ticket.MakeupTicket, error) {
	var tickets []*ticket.MakeupTicket

	for rows.Next() {
		t, err := scanTicketValues(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan makeup ticket: %w", err)
		}
		tickets = append(tickets, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return tickets, nil
}

// scanTicketValues maps one row onto a MakeupTicket through the given scan
// function.
func scanTicketValues(scan func(dest ...interface{}) error) (*ticket.MakeupTicket, error) {
	var t ticket.MakeupTicket
	var tenantID, studentID, classID, absenceReason, status, scheduledTime string
	var absenceDate time.Time
	var scheduledDate *time.Time

	err := scan(
		&t.ID,
		&tenantID,
		&studentID,
		&classID,
		&absenceDate,
		&absenceReason,
		&status,
		&scheduledDate,
		&scheduledTime,
		&t.CompletionNote,
		&t.CancellationReason,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.TenantID = shared.TenantID(tenantID)
	t.StudentID = shared.StudentID(studentID)
	t.ClassID = shared.ClassID(classID)
	t.AbsenceDate = shared.FeedDateOf(absenceDate)
	t.AbsenceReason = taxonomy.AbsenceReason(absenceReason)
	t.Status = ticket.Status(status)
	if scheduledDate != nil {
		t.ScheduledDate = shared.FeedDateOf(*scheduledDate)
	}
	if scheduledTime != "" {
		tod, perr := shared.ParseTimeOfDay(scheduledTime)
		if perr != nil {
			return nil, fmt.Errorf("failed to parse scheduled time: %w", perr)
		}
		t.ScheduledTime = tod
	}

	return &t, nil
}
