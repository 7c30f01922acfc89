package command

import (
	"context"
	"fmt"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE FEED COMMAND
// Soft-deletes a record. The row stays for audit; the (student, date) slot is
// freed so a later save inserts fresh. Open makeup tickets keyed to the day
// are untouched.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteFeedCommand soft-deletes a student's record for a day.
type DeleteFeedCommand struct {
	// TenantID is the owning academy.
	TenantID string `validate:"required,uuid"`

	// StudentID is the student the record belongs to.
	StudentID string `validate:"required,uuid"`

	// ClassID is the class the record belongs to.
	ClassID string `validate:"required,uuid"`

	// Date is the record's day in "YYYY-MM-DD" form.
	Date string `validate:"required,datetime=2006-01-02"`

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command structurally.
func (c DeleteFeedCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return shared.WrapError("feed", "DeleteFeed", shared.ErrInvalidInput, "malformed delete command", err)
	}
	return nil
}

// DeleteFeedResult contains the result of the delete.
type DeleteFeedResult struct {
	// RecordID is the soft-deleted record.
	RecordID string
}

// DeleteFeedHandler handles the DeleteFeedCommand.
type DeleteFeedHandler struct {
	feedRepo       feed.Repository
	draftCache     feed.DraftCache
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewDeleteFeedHandler creates a new DeleteFeedHandler.
func NewDeleteFeedHandler(
	feedRepo feed.Repository,
	draftCache feed.DraftCache,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *DeleteFeedHandler {
	return &DeleteFeedHandler{
		feedRepo:       feedRepo,
		draftCache:     draftCache,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("delete_feed")),
	}
}

// Handle executes the delete.
func (h *DeleteFeedHandler) Handle(ctx context.Context, cmd DeleteFeedCommand) (*DeleteFeedResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	tenantID, err := shared.NewTenantID(cmd.TenantID)
	if err != nil {
		return nil, err
	}
	studentID, err := shared.NewStudentID(cmd.StudentID)
	if err != nil {
		return nil, err
	}
	classID, err := shared.NewClassID(cmd.ClassID)
	if err != nil {
		return nil, err
	}
	date, err := shared.ParseFeedDate(cmd.Date)
	if err != nil {
		return nil, err
	}
	key := feed.Key{TenantID: tenantID, StudentID: studentID, ClassID: classID, Date: date}

	rec, err := h.feedRepo.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	if err := h.feedRepo.SoftDelete(ctx, key); err != nil {
		return nil, fmt.Errorf("delete_feed: failed to soft-delete record: %w", err)
	}

	// A stale cached draft must not resurrect the deleted record on reload.
	if err := h.draftCache.Remove(ctx, key); err != nil {
		h.log.Warn("failed to clear cached draft", logger.Err(err))
	}

	event := feed.NewDeletedEvent(rec.ID, key, cmd.CorrelationID)
	if err := h.eventPublisher.Publish(ctx, event); err != nil {
		h.log.Warn("failed to publish deleted event", logger.Err(err))
	}

	h.log.Info("feed record deleted",
		logger.TenantID(tenantID.String()),
		logger.StudentID(studentID.String()),
		logger.FeedDate(date.String()),
		logger.RecordID(rec.ID),
	)

	return &DeleteFeedResult{RecordID: rec.ID}, nil
}
