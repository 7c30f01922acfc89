package ticket

import (
	"context"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository is the durable store for makeup tickets.
type Repository interface {
	// Create persists a new ticket. The store backs the singularity invariant
	// with a partial unique index on open tickets per (student, absence date);
	// a second open ticket for the same absence fails with
	// ErrTicketAlreadyOpen.
	Create(ctx context.Context, t *MakeupTicket) error

	// GetByID returns a ticket by ID.
	// Returns ErrTicketNotFound when none exists.
	GetByID(ctx context.Context, tenantID shared.TenantID, id string) (*MakeupTicket, error)

	// Update persists a transitioned ticket.
	// Returns ErrTicketNotFound when the ticket does not exist.
	Update(ctx context.Context, t *MakeupTicket) error

	// FindOpenByAbsence returns the open (pending or scheduled) ticket for a
	// student's absence day, or ErrTicketNotFound when there is none.
	FindOpenByAbsence(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID, absenceDate shared.FeedDate) (*MakeupTicket, error)

	// List returns tickets matching the filter, newest absence first.
	List(ctx context.Context, tenantID shared.TenantID, filter ListFilter, p shared.Pagination) ([]*MakeupTicket, error)

	// CountOpen counts open tickets for a student.
	CountOpen(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID) (int, error)
}

// ListFilter narrows ticket listings.
type ListFilter struct {
	// Statuses - include only these statuses. Empty means all.
	Statuses []Status

	// StudentID - include only this student's tickets when set.
	StudentID shared.StudentID

	// AbsenceDates - include only tickets whose absence date falls in the
	// range, when valid.
	AbsenceDates shared.DateRange

	// ScheduledDates - include only tickets whose scheduled date falls in the
	// range, when valid.
	ScheduledDates shared.DateRange
}
