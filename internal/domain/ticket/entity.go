// Package ticket contains the makeup-ticket domain model: a tracked obligation
// to deliver a replacement session after an absence. Tickets are never created
// through a direct entry point - creation is a side effect of saving an
// absence feed record. All transitions are enforced here.
package ticket

import (
	"strings"
	"time"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the lifecycle state of a makeup ticket.
type Status string

const (
	// StatusPending - created, no session scheduled yet.
	StatusPending Status = "pending"

	// StatusScheduled - a makeup session date is set.
	StatusScheduled Status = "scheduled"

	// StatusCompleted - the makeup session was delivered. Terminal except for
	// an explicit reopen.
	StatusCompleted Status = "completed"

	// StatusCancelled - the obligation was dropped. Terminal.
	StatusCancelled Status = "cancelled"
)

// IsValid checks that the status is a supported value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsOpen reports whether the ticket still awaits a makeup session. The
// singularity invariant counts open tickets: at most one per (student,
// absence date).
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusScheduled
}

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// OpenStatuses returns the statuses that count against the singularity
// invariant.
func OpenStatuses() []Status {
	return []Status{StatusPending, StatusScheduled}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: MAKEUP TICKET
// ══════════════════════════════════════════════════════════════════════════════

// MakeupTicket tracks one owed replacement session.
type MakeupTicket struct {
	// ID - internal unique identifier (UUID in string form).
	ID string

	// TenantID - owning tenant.
	TenantID shared.TenantID

	// StudentID - the student owed the session.
	StudentID shared.StudentID

	// ClassID - the class the absence occurred in.
	ClassID shared.ClassID

	// AbsenceDate - the day of the absence that created this ticket.
	AbsenceDate shared.FeedDate

	// AbsenceReason - reason recorded on the originating feed record.
	AbsenceReason taxonomy.AbsenceReason

	// Status - current lifecycle state.
	Status Status

	// ScheduledDate - the makeup session day; zero until scheduled.
	ScheduledDate shared.FeedDate

	// ScheduledTime - optional wall-clock time of the session.
	ScheduledTime shared.TimeOfDay

	// CompletionNote - note recorded on completion.
	CompletionNote string

	// CancellationReason - non-empty once cancelled.
	CancellationReason string

	// CreatedAt - time of creation.
	CreatedAt time.Time

	// UpdatedAt - time of last transition.
	UpdatedAt time.Time
}

// NewTicketParams contains parameters for creating a ticket.
type NewTicketParams struct {
	ID            string
	TenantID      shared.TenantID
	StudentID     shared.StudentID
	ClassID       shared.ClassID
	AbsenceDate   shared.FeedDate
	AbsenceReason taxonomy.AbsenceReason
}

// NewTicket creates a pending ticket with validation.
func NewTicket(params NewTicketParams) (*MakeupTicket, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("ticket", "New", shared.ErrInvalidID, "ticket id is required")
	}
	if !params.TenantID.IsValid() {
		return nil, shared.NewDomainError("ticket", "New", shared.ErrInvalidID, "invalid tenant id")
	}
	if !params.StudentID.IsValid() {
		return nil, shared.NewDomainError("ticket", "New", shared.ErrInvalidID, "invalid student id")
	}
	if !params.ClassID.IsValid() {
		return nil, shared.NewDomainError("ticket", "New", shared.ErrInvalidID, "invalid class id")
	}
	if params.AbsenceDate.IsZero() {
		return nil, shared.NewDomainError("ticket", "New", shared.ErrInvalidInput, "absence date is required")
	}
	if !params.AbsenceReason.IsValid() {
		return nil, shared.NewDomainError("ticket", "New", shared.ErrInvalidInput, "invalid absence reason")
	}

	now := time.Now().UTC()

	return &MakeupTicket{
		ID:            params.ID,
		TenantID:      params.TenantID,
		StudentID:     params.StudentID,
		ClassID:       params.ClassID,
		AbsenceDate:   params.AbsenceDate,
		AbsenceReason: params.AbsenceReason,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// Every transition validates its source state. Illegal transitions are
// rejected with an error, never silently ignored.
// ══════════════════════════════════════════════════════════════════════════════

// Schedule sets (or moves) the makeup session date. Allowed from pending and
// from scheduled - rescheduling an already scheduled ticket is legitimate.
func (t *MakeupTicket) Schedule(date shared.FeedDate, timeOfDay shared.TimeOfDay) error {
	if date.IsZero() {
		return shared.ErrScheduleDateRequired
	}

	switch t.Status {
	case StatusPending, StatusScheduled:
		t.Status = StatusScheduled
		t.ScheduledDate = date
		t.ScheduledTime = timeOfDay
		t.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return illegalTransition("Schedule", t.Status)
	}
}

// Complete marks the makeup session as delivered. Allowed from pending and
// scheduled; also invoked implicitly when the makeup session's own feed record
// is saved referencing this ticket.
func (t *MakeupTicket) Complete(note string) error {
	switch t.Status {
	case StatusPending, StatusScheduled:
		t.Status = StatusCompleted
		t.CompletionNote = strings.TrimSpace(note)
		t.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return illegalTransition("Complete", t.Status)
	}
}

// Cancel drops the obligation. A non-empty reason is mandatory.
func (t *MakeupTicket) Cancel(reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.ErrCancelReasonRequired
	}

	switch t.Status {
	case StatusPending, StatusScheduled:
		t.Status = StatusCancelled
		t.CancellationReason = reason
		t.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return illegalTransition("Cancel", t.Status)
	}
}

// Reopen returns a completed ticket to pending. This is the undo safety valve
// for completions recorded by mistake; scheduling data is cleared.
func (t *MakeupTicket) Reopen() error {
	switch t.Status {
	case StatusCompleted:
		t.Status = StatusPending
		t.ScheduledDate = shared.FeedDate{}
		t.ScheduledTime = shared.TimeOfDay{}
		t.CompletionNote = ""
		t.UpdatedAt = time.Now().UTC()
		return nil
	default:
		return illegalTransition("Reopen", t.Status)
	}
}

func illegalTransition(op string, from Status) error {
	return shared.NewDomainError("ticket", op, shared.ErrStateTransition,
		"transition not permitted from status "+from.String())
}
