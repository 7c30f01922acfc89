// Package eventhandler contains the domain event handlers: the reactive side
// of the engine. Saves publish events; everything that must happen after a
// save (parent notifications, threshold alerts) lives here, off the save path.
package eventhandler

import (
	"context"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION DISPATCHER
// ══════════════════════════════════════════════════════════════════════════════

// Notification is one outbound message to a parent or staff member.
type Notification struct {
	// Kind - "feed_saved" or "absence_threshold".
	Kind string

	// TenantID, StudentID - who the notification concerns.
	TenantID  string
	StudentID string

	// Subject, Body - the message content.
	Subject string
	Body    string

	// Metadata - extra key/value pairs for the delivery channel.
	Metadata map[string]string
}

// NotificationDispatcher delivers notifications through whatever channel the
// deployment wires in (messenger bot, email gateway). Implementations live in
// infrastructure.
type NotificationDispatcher interface {
	// Dispatch sends one notification. Delivery is best effort; errors are
	// logged by the caller, never propagated to the save path.
	Dispatch(ctx context.Context, n Notification) error
}

// ══════════════════════════════════════════════════════════════════════════════
// ON FEED SAVED HANDLER
// Sends the parent notification for saves that requested one. The flag is per
// record: the teacher decides at entry time whether the day's feed goes home.
// ══════════════════════════════════════════════════════════════════════════════

// OnFeedSavedHandler reacts to feed.saved events.
type OnFeedSavedHandler struct {
	dispatcher NotificationDispatcher
	log        *logger.Logger
}

// NewOnFeedSavedHandler creates a new OnFeedSavedHandler.
func NewOnFeedSavedHandler(dispatcher NotificationDispatcher, log *logger.Logger) *OnFeedSavedHandler {
	return &OnFeedSavedHandler{
		dispatcher: dispatcher,
		log:        log.With(logger.Component("on_feed_saved")),
	}
}

// Handle processes a feed.saved event. Implements shared.EventHandler.
func (h *OnFeedSavedHandler) Handle(ctx context.Context, event shared.Event) error {
	saved, ok := event.(feed.SavedEvent)
	if !ok {
		h.log.Warn("received unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	if !saved.NotifyParent {
		return nil
	}

	n := Notification{
		Kind:      "feed_saved",
		TenantID:  saved.Key.TenantID.String(),
		StudentID: saved.Key.StudentID.String(),
		Subject:   "Today's class feed",
		Body:      "The feed for " + saved.Key.Date.String() + " has been recorded.",
		Metadata: map[string]string{
			"record_id":  saved.RecordID,
			"attendance": string(saved.Attendance),
			"date":       saved.Key.Date.String(),
		},
	}

	if err := h.dispatcher.Dispatch(ctx, n); err != nil {
		h.log.Error("failed to dispatch parent notification",
			logger.StudentID(n.StudentID),
			logger.RecordID(saved.RecordID),
			logger.Err(err),
		)
		return err
	}

	h.log.Info("parent notification dispatched",
		logger.StudentID(n.StudentID),
		logger.RecordID(saved.RecordID),
	)

	return nil
}
