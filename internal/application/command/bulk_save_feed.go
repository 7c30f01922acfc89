package command

import (
	"context"
	"sync"
	"time"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// BULK SAVE FEED COMMAND
// "Save all" over a class screen. Each card is an independent save: one
// student's store failure never blocks a classmate's save. Every submitted
// item is accounted for exactly once in the result counts.
// ══════════════════════════════════════════════════════════════════════════════

// BulkSaveItem is one card's submission within a bulk save.
type BulkSaveItem struct {
	// StudentID is the student the card belongs to.
	StudentID string `validate:"required,uuid"`

	// IdempotencyToken is this card's own token. Tokens are per card, so a
	// partial retry re-submits only the failed cards.
	IdempotencyToken string `validate:"required,uuid"`

	// Draft is the card's field payload.
	Draft feed.Draft
}

// BulkSaveFeedCommand saves every dirty card of a class for one day.
type BulkSaveFeedCommand struct {
	// TenantID is the owning academy.
	TenantID string `validate:"required,uuid"`

	// ClassID is the class whose screen is being saved.
	ClassID string `validate:"required,uuid"`

	// Date is the session day in "YYYY-MM-DD" form.
	Date string `validate:"required,datetime=2006-01-02"`

	// Items are the per-card submissions.
	Items []BulkSaveItem `validate:"required,min=1,dive"`

	// Concurrency bounds parallel store submissions. Defaults to 4.
	Concurrency int

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command structurally.
func (c BulkSaveFeedCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return shared.WrapError("feed", "BulkSaveFeed", shared.ErrInvalidInput, "malformed bulk save command", err)
	}
	return nil
}

// BulkSaveItemResult is the outcome for one submitted card.
type BulkSaveItemResult struct {
	// StudentID identifies the card.
	StudentID string

	// Saved is true when the card was persisted (or deduplicated).
	Saved bool

	// Result is the per-card save result when Saved.
	Result *SaveFeedResult

	// Violations carries the failed rules for cards rejected locally.
	Violations []feed.RuleViolation

	// Err is the failure for cards that reached the store and failed.
	Err error
}

// BulkSaveFeedResult aggregates a bulk save.
// SavedCount + RejectedCount + FailedCount always equals len(Items).
type BulkSaveFeedResult struct {
	// SavedCount is the number of cards persisted.
	SavedCount int

	// RejectedCount is the number of cards rejected by local validation
	// before any I/O.
	RejectedCount int

	// FailedCount is the number of cards that failed at the store.
	FailedCount int

	// Items holds the per-card outcomes, in submission order.
	Items []BulkSaveItemResult

	// Duration is the total bulk save duration.
	Duration time.Duration
}

// BulkSaveFeedHandler handles the BulkSaveFeedCommand.
type BulkSaveFeedHandler struct {
	saveHandler *SaveFeedHandler
	log         *logger.Logger
}

// NewBulkSaveFeedHandler creates a new BulkSaveFeedHandler.
func NewBulkSaveFeedHandler(saveHandler *SaveFeedHandler, log *logger.Logger) *BulkSaveFeedHandler {
	return &BulkSaveFeedHandler{
		saveHandler: saveHandler,
		log:         log.With(logger.Component("bulk_save_feed")),
	}
}

// Handle executes the bulk save with bounded concurrency.
func (h *BulkSaveFeedHandler) Handle(ctx context.Context, cmd BulkSaveFeedCommand) (*BulkSaveFeedResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	concurrency := cmd.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	items := make([]BulkSaveItemResult, len(cmd.Items))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, item := range cmd.Items {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, it BulkSaveItem) {
			defer wg.Done()
			defer func() { <-sem }()

			items[idx] = h.saveOne(ctx, cmd, it)
		}(i, item)
	}

	wg.Wait()

	result := &BulkSaveFeedResult{
		Items:    items,
		Duration: time.Since(start),
	}
	for _, item := range items {
		switch {
		case item.Saved:
			result.SavedCount++
		case len(item.Violations) > 0:
			result.RejectedCount++
		default:
			result.FailedCount++
		}
	}

	h.log.Info("bulk save completed",
		logger.TenantID(cmd.TenantID),
		logger.ClassID(cmd.ClassID),
		logger.FeedDate(cmd.Date),
		logger.Int("saved", result.SavedCount),
		logger.Int("rejected", result.RejectedCount),
		logger.Int("failed", result.FailedCount),
	)

	return result, nil
}

// saveOne submits a single card through the regular save path.
func (h *BulkSaveFeedHandler) saveOne(ctx context.Context, cmd BulkSaveFeedCommand, item BulkSaveItem) BulkSaveItemResult {
	saveCmd := SaveFeedCommand{
		TenantID:         cmd.TenantID,
		StudentID:        item.StudentID,
		ClassID:          cmd.ClassID,
		Date:             cmd.Date,
		IdempotencyToken: item.IdempotencyToken,
		Draft:            item.Draft,
		CorrelationID:    cmd.CorrelationID,
	}

	res, err := h.saveHandler.Handle(ctx, saveCmd)
	if err != nil {
		if res != nil && len(res.Violations) > 0 {
			return BulkSaveItemResult{StudentID: item.StudentID, Violations: res.Violations, Err: err}
		}
		return BulkSaveItemResult{StudentID: item.StudentID, Err: err}
	}

	return BulkSaveItemResult{StudentID: item.StudentID, Saved: true, Result: res}
}
