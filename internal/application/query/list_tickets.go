package query

import (
	"context"
	"errors"
	"time"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/ticket"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST TICKETS QUERY
// The makeup board: tickets filtered by status, student and date windows.
// ══════════════════════════════════════════════════════════════════════════════

// ListTicketsQuery contains the filter parameters.
type ListTicketsQuery struct {
	// TenantID - the owning academy.
	TenantID string

	// Statuses - include only these statuses. Empty means all. "open" expands
	// to the statuses counting against the singularity invariant.
	Statuses []string

	// StudentID - include only this student's tickets when set.
	StudentID string

	// AbsenceFrom, AbsenceTo - absence-date window, "YYYY-MM-DD". Both or none.
	AbsenceFrom string
	AbsenceTo   string

	// ScheduledFrom, ScheduledTo - scheduled-date window, "YYYY-MM-DD".
	ScheduledFrom string
	ScheduledTo   string

	// Page, PageSize - pagination.
	Page     int
	PageSize int
}

// Validate checks the query parameters.
func (q *ListTicketsQuery) Validate() error {
	if q.TenantID == "" {
		return errors.New("tenant_id must be provided")
	}
	if (q.AbsenceFrom == "") != (q.AbsenceTo == "") {
		return errors.New("absence window requires both from and to")
	}
	if (q.ScheduledFrom == "") != (q.ScheduledTo == "") {
		return errors.New("scheduled window requires both from and to")
	}
	for _, s := range q.Statuses {
		if s != "open" && !ticket.Status(s).IsValid() {
			return errors.New("unknown ticket status: " + s)
		}
	}
	return nil
}

// TicketDTO is the presentation shape of a ticket.
type TicketDTO struct {
	ID            string `json:"id"`
	StudentID     string `json:"student_id"`
	ClassID       string `json:"class_id"`
	AbsenceDate   string `json:"absence_date"`
	AbsenceReason string `json:"absence_reason"`
	Status        string `json:"status"`
	IsOpen        bool   `json:"is_open"`

	ScheduledDate string `json:"scheduled_date,omitempty"`
	ScheduledTime string `json:"scheduled_time,omitempty"`

	CompletionNote     string `json:"completion_note,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListTicketsResult contains the matching tickets.
type ListTicketsResult struct {
	// Tickets - matching tickets, newest absence first.
	Tickets []TicketDTO `json:"tickets"`

	// Page, PageSize - the applied pagination.
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// ListTicketsHandler handles the ListTicketsQuery.
type ListTicketsHandler struct {
	ticketRepo ticket.Repository
}

// NewListTicketsHandler creates a new ListTicketsHandler.
func NewListTicketsHandler(ticketRepo ticket.Repository) *ListTicketsHandler {
	return &ListTicketsHandler{ticketRepo: ticketRepo}
}

// Handle executes the query.
func (h *ListTicketsHandler) Handle(ctx context.Context, query ListTicketsQuery) (*ListTicketsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "ListTickets", shared.ErrInvalidInput, err.Error(), err)
	}

	tenantID, err := shared.NewTenantID(query.TenantID)
	if err != nil {
		return nil, err
	}

	filter, err := buildTicketFilter(query)
	if err != nil {
		return nil, err
	}

	p := shared.NewPagination(query.Page, query.PageSize)

	tickets, err := h.ticketRepo.List(ctx, tenantID, filter, p)
	if err != nil {
		return nil, shared.WrapError("query", "ListTickets", shared.ErrPersistence, "failed to list tickets", err)
	}

	dtos := make([]TicketDTO, len(tickets))
	for i, t := range tickets {
		dtos[i] = newTicketDTO(t)
	}

	return &ListTicketsResult{Tickets: dtos, Page: p.Page, PageSize: p.Limit()}, nil
}

// buildTicketFilter converts the raw query fields to a repository filter.
func buildTicketFilter(query ListTicketsQuery) (ticket.ListFilter, error) {
	var filter ticket.ListFilter

	for _, s := range query.Statuses {
		if s == "open" {
			filter.Statuses = append(filter.Statuses, ticket.OpenStatuses()...)
			continue
		}
		filter.Statuses = append(filter.Statuses, ticket.Status(s))
	}

	if query.StudentID != "" {
		studentID, err := shared.NewStudentID(query.StudentID)
		if err != nil {
			return ticket.ListFilter{}, err
		}
		filter.StudentID = studentID
	}

	if query.AbsenceFrom != "" {
		dates, err := parseWindow(query.AbsenceFrom, query.AbsenceTo)
		if err != nil {
			return ticket.ListFilter{}, err
		}
		filter.AbsenceDates = dates
	}
	if query.ScheduledFrom != "" {
		dates, err := parseWindow(query.ScheduledFrom, query.ScheduledTo)
		if err != nil {
			return ticket.ListFilter{}, err
		}
		filter.ScheduledDates = dates
	}

	return filter, nil
}

func parseWindow(fromRaw, toRaw string) (shared.DateRange, error) {
	from, err := shared.ParseFeedDate(fromRaw)
	if err != nil {
		return shared.DateRange{}, err
	}
	to, err := shared.ParseFeedDate(toRaw)
	if err != nil {
		return shared.DateRange{}, err
	}
	return shared.NewDateRange(from, to)
}

// newTicketDTO maps a ticket to its presentation shape.
func newTicketDTO(t *ticket.MakeupTicket) TicketDTO {
	dto := TicketDTO{
		ID:                 t.ID,
		StudentID:          t.StudentID.String(),
		ClassID:            t.ClassID.String(),
		AbsenceDate:        t.AbsenceDate.String(),
		AbsenceReason:      t.AbsenceReason.String(),
		Status:             t.Status.String(),
		IsOpen:             t.Status.IsOpen(),
		CompletionNote:     t.CompletionNote,
		CancellationReason: t.CancellationReason,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
	if !t.ScheduledDate.IsZero() {
		dto.ScheduledDate = t.ScheduledDate.String()
	}
	if t.ScheduledTime.IsSet() {
		dto.ScheduledTime = t.ScheduledTime.String()
	}
	return dto
}
