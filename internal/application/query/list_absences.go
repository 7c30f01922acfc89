package query

import (
	"context"
	"errors"
	"time"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/ticket"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST ABSENCES QUERY
// The absence register: absence records in a date window, newest first, each
// annotated with its makeup ticket when one is linked.
// ══════════════════════════════════════════════════════════════════════════════

// ListAbsencesQuery contains the filter parameters.
type ListAbsencesQuery struct {
	// TenantID - the owning academy.
	TenantID string

	// From, To - the date window, "YYYY-MM-DD", inclusive.
	From string
	To   string

	// IncludeTickets - annotate each absence with its open ticket, if any.
	IncludeTickets bool

	// Page, PageSize - pagination.
	Page     int
	PageSize int
}

// Validate checks the query parameters.
func (q *ListAbsencesQuery) Validate() error {
	if q.TenantID == "" {
		return errors.New("tenant_id must be provided")
	}
	if q.From == "" || q.To == "" {
		return errors.New("both from and to must be provided")
	}
	return nil
}

// AbsenceDTO is the presentation shape of an absence record.
type AbsenceDTO struct {
	RecordID      string `json:"record_id"`
	StudentID     string `json:"student_id"`
	ClassID       string `json:"class_id"`
	Date          string `json:"date"`
	AbsenceReason string `json:"absence_reason"`
	AbsenceDetail string `json:"absence_detail,omitempty"`

	// Ticket - the open makeup ticket for this absence, when requested and
	// present.
	Ticket *TicketDTO `json:"ticket,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}

// ListAbsencesResult contains the matching absences.
type ListAbsencesResult struct {
	// Absences - matching absence records, newest first.
	Absences []AbsenceDTO `json:"absences"`

	// Page, PageSize - the applied pagination.
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// ListAbsencesHandler handles the ListAbsencesQuery.
type ListAbsencesHandler struct {
	feedRepo   feed.Repository
	ticketRepo ticket.Repository
}

// NewListAbsencesHandler creates a new ListAbsencesHandler.
func NewListAbsencesHandler(feedRepo feed.Repository, ticketRepo ticket.Repository) *ListAbsencesHandler {
	return &ListAbsencesHandler{feedRepo: feedRepo, ticketRepo: ticketRepo}
}

// Handle executes the query.
func (h *ListAbsencesHandler) Handle(ctx context.Context, query ListAbsencesQuery) (*ListAbsencesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "ListAbsences", shared.ErrInvalidInput, err.Error(), err)
	}

	tenantID, err := shared.NewTenantID(query.TenantID)
	if err != nil {
		return nil, err
	}
	dates, err := parseWindow(query.From, query.To)
	if err != nil {
		return nil, err
	}

	p := shared.NewPagination(query.Page, query.PageSize)

	records, err := h.feedRepo.ListAbsences(ctx, tenantID, dates, p)
	if err != nil {
		return nil, shared.WrapError("query", "ListAbsences", shared.ErrPersistence, "failed to list absences", err)
	}

	dtos := make([]AbsenceDTO, len(records))
	for i, rec := range records {
		dto := AbsenceDTO{
			RecordID:      rec.ID,
			StudentID:     rec.StudentID.String(),
			ClassID:       rec.ClassID.String(),
			Date:          rec.Date.String(),
			AbsenceReason: rec.Values.AbsenceReason.String(),
			AbsenceDetail: rec.Values.AbsenceDetail,
			RecordedAt:    rec.UpdatedAt,
		}

		if query.IncludeTickets {
			open, terr := h.ticketRepo.FindOpenByAbsence(ctx, tenantID, rec.StudentID, rec.Date)
			if terr != nil && !shared.IsNotFound(terr) {
				return nil, shared.WrapError("query", "ListAbsences", shared.ErrPersistence, "failed to load ticket", terr)
			}
			if open != nil {
				t := newTicketDTO(open)
				dto.Ticket = &t
			}
		}

		dtos[i] = dto
	}

	return &ListAbsencesResult{Absences: dtos, Page: p.Page, PageSize: p.Limit()}, nil
}
