// Package query contains read operations (CQRS - Queries).
// Queries never mutate state; they read the durable store (and, for the class
// feed screen, the draft cache) and shape the data for presentation.
package query

import (
	"context"
	"errors"
	"time"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// MONTHLY ABSENCES QUERY
// The "N absences this month" counter shown next to a student's name. The
// count is computed from the live records on every call so that deleting or
// correcting a record is reflected immediately.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultAbsenceThreshold is the per-month absence count at which the student
// is flagged for follow-up.
const DefaultAbsenceThreshold = 4

// MonthlyAbsencesQuery contains the parameters of the monthly count.
type MonthlyAbsencesQuery struct {
	// TenantID - the owning academy.
	TenantID string

	// StudentID - the student to count for.
	StudentID string

	// AsOf - a day inside the month to count, "YYYY-MM-DD". Empty means today.
	// The window is the first of AsOf's month through AsOf.
	AsOf string

	// Threshold - absence count that flags the student. Zero means the
	// default threshold.
	Threshold int
}

// Validate checks and defaults the query parameters.
func (q *MonthlyAbsencesQuery) Validate() error {
	if q.TenantID == "" {
		return errors.New("tenant_id must be provided")
	}
	if q.StudentID == "" {
		return errors.New("student_id must be provided")
	}
	if q.AsOf == "" {
		q.AsOf = time.Now().UTC().Format("2006-01-02")
	}
	if q.Threshold <= 0 {
		q.Threshold = DefaultAbsenceThreshold
	}
	return nil
}

// MonthlyAbsencesResult contains the computed aggregate.
type MonthlyAbsencesResult struct {
	// StudentID - the counted student.
	StudentID string `json:"student_id"`

	// From, To - the counted window (month start through AsOf), inclusive.
	From string `json:"from"`
	To   string `json:"to"`

	// Count - distinct absence records in the window.
	Count int `json:"count"`

	// Threshold - the threshold the count was compared against.
	Threshold int `json:"threshold"`

	// ThresholdReached - true when Count >= Threshold.
	ThresholdReached bool `json:"threshold_reached"`
}

// MonthlyAbsencesHandler handles the MonthlyAbsencesQuery.
type MonthlyAbsencesHandler struct {
	feedRepo feed.Repository
}

// NewMonthlyAbsencesHandler creates a new MonthlyAbsencesHandler.
func NewMonthlyAbsencesHandler(feedRepo feed.Repository) *MonthlyAbsencesHandler {
	return &MonthlyAbsencesHandler{feedRepo: feedRepo}
}

// Handle executes the query.
func (h *MonthlyAbsencesHandler) Handle(ctx context.Context, query MonthlyAbsencesQuery) (*MonthlyAbsencesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "MonthlyAbsences", shared.ErrInvalidInput, err.Error(), err)
	}

	tenantID, err := shared.NewTenantID(query.TenantID)
	if err != nil {
		return nil, err
	}
	studentID, err := shared.NewStudentID(query.StudentID)
	if err != nil {
		return nil, err
	}
	asOf, err := shared.ParseFeedDate(query.AsOf)
	if err != nil {
		return nil, err
	}

	from, to := timeutil.MonthToDate(asOf.Time())
	dates, err := shared.NewDateRange(shared.FeedDateOf(from), shared.FeedDateOf(to))
	if err != nil {
		return nil, err
	}

	count, err := h.feedRepo.CountAbsences(ctx, tenantID, studentID, dates)
	if err != nil {
		return nil, shared.WrapError("query", "MonthlyAbsences", shared.ErrPersistence, "failed to count absences", err)
	}

	return &MonthlyAbsencesResult{
		StudentID:        studentID.String(),
		From:             dates.From.String(),
		To:               dates.To.String(),
		Count:            count,
		Threshold:        query.Threshold,
		ThresholdReached: count >= query.Threshold,
	}, nil
}
