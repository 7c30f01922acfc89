package eventhandler

import (
	"context"
	"fmt"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/pkg/logger"
	"github.com/academy-hub/attendance-feed-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ON ABSENCE RECORDED HANDLER
// Recomputes the student's month-to-date absence count after every recorded
// absence and raises an alert the moment the count reaches the threshold.
// The count is read from the store, not accumulated here, so deletions and
// corrections are reflected.
// ══════════════════════════════════════════════════════════════════════════════

// AbsenceThresholdConfig contains the handler's configuration.
type AbsenceThresholdConfig struct {
	// Threshold - month-to-date absence count that triggers the alert.
	Threshold int

	// AlertOnEveryAbsence - when true, re-alert on every absence at or past
	// the threshold. When false, alert only when the threshold is first hit.
	AlertOnEveryAbsence bool
}

// DefaultAbsenceThresholdConfig returns the default configuration.
func DefaultAbsenceThresholdConfig() AbsenceThresholdConfig {
	return AbsenceThresholdConfig{
		Threshold:           4,
		AlertOnEveryAbsence: false,
	}
}

// OnAbsenceRecordedHandler reacts to feed.absence_recorded events.
type OnAbsenceRecordedHandler struct {
	feedRepo       feed.Repository
	dispatcher     NotificationDispatcher
	eventPublisher shared.EventPublisher
	config         AbsenceThresholdConfig
	log            *logger.Logger
}

// NewOnAbsenceRecordedHandler creates a new OnAbsenceRecordedHandler.
func NewOnAbsenceRecordedHandler(
	feedRepo feed.Repository,
	dispatcher NotificationDispatcher,
	eventPublisher shared.EventPublisher,
	config AbsenceThresholdConfig,
	log *logger.Logger,
) *OnAbsenceRecordedHandler {
	if config.Threshold <= 0 {
		config.Threshold = DefaultAbsenceThresholdConfig().Threshold
	}

	return &OnAbsenceRecordedHandler{
		feedRepo:       feedRepo,
		dispatcher:     dispatcher,
		eventPublisher: eventPublisher,
		config:         config,
		log:            log.With(logger.Component("on_absence_recorded")),
	}
}

// Handle processes a feed.absence_recorded event. Implements shared.EventHandler.
func (h *OnAbsenceRecordedHandler) Handle(ctx context.Context, event shared.Event) error {
	absence, ok := event.(feed.AbsenceRecordedEvent)
	if !ok {
		h.log.Warn("received unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	from, to := timeutil.MonthToDate(absence.Key.Date.Time())
	dates, err := shared.NewDateRange(shared.FeedDateOf(from), shared.FeedDateOf(to))
	if err != nil {
		return err
	}

	count, err := h.feedRepo.CountAbsences(ctx, absence.Key.TenantID, absence.Key.StudentID, dates)
	if err != nil {
		return fmt.Errorf("on_absence_recorded: failed to count absences: %w", err)
	}

	if count < h.config.Threshold {
		return nil
	}
	if count > h.config.Threshold && !h.config.AlertOnEveryAbsence {
		// Already alerted when the threshold was first crossed.
		return nil
	}

	h.log.Warn("absence threshold reached",
		logger.StudentID(absence.Key.StudentID.String()),
		logger.Int("count", count),
		logger.Int("threshold", h.config.Threshold),
	)

	alert := shared.NewBaseEvent(shared.EventAbsenceThresholdReached, absence.Key.StudentID.String(), "")
	if err := h.eventPublisher.Publish(ctx, thresholdEvent{
		BaseEvent: alert,
		StudentID: absence.Key.StudentID.String(),
		TenantID:  absence.Key.TenantID.String(),
		Count:     count,
		Threshold: h.config.Threshold,
	}); err != nil {
		h.log.Warn("failed to publish threshold event", logger.Err(err))
	}

	n := Notification{
		Kind:      "absence_threshold",
		TenantID:  absence.Key.TenantID.String(),
		StudentID: absence.Key.StudentID.String(),
		Subject:   "Monthly absence threshold reached",
		Body:      fmt.Sprintf("%d absences recorded this month (threshold %d).", count, h.config.Threshold),
		Metadata: map[string]string{
			"count":     fmt.Sprintf("%d", count),
			"threshold": fmt.Sprintf("%d", h.config.Threshold),
			"month_of":  absence.Key.Date.String(),
		},
	}
	if err := h.dispatcher.Dispatch(ctx, n); err != nil {
		h.log.Error("failed to dispatch threshold alert", logger.Err(err))
		return err
	}

	return nil
}

// thresholdEvent is the published alert event.
type thresholdEvent struct {
	shared.BaseEvent

	StudentID string
	TenantID  string
	Count     int
	Threshold int
}

// Payload returns the event data as a map for serialization.
func (e thresholdEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"tenant_id":  e.TenantID,
		"count":      e.Count,
		"threshold":  e.Threshold,
	}
}
