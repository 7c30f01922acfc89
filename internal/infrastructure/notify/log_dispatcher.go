// Package notify contains notification delivery adapters. The engine's event
// handlers hand finished notifications to a dispatcher; the channel behind it
// (messenger gateway, email) is a deployment concern.
package notify

import (
	"context"

	"github.com/academy-hub/attendance-feed-engine/internal/application/eventhandler"
	"github.com/academy-hub/attendance-feed-engine/pkg/logger"
)

// LogDispatcher writes notifications to the structured log. Used in
// development and as the fallback when no delivery channel is configured.
type LogDispatcher struct {
	log *logger.Logger
}

// NewLogDispatcher creates a new LogDispatcher.
func NewLogDispatcher(log *logger.Logger) *LogDispatcher {
	return &LogDispatcher{log: log.With(logger.Component("notify"))}
}

// Dispatch implements eventhandler.NotificationDispatcher.
func (d *LogDispatcher) Dispatch(ctx context.Context, n eventhandler.Notification) error {
	d.log.Info("notification",
		logger.String("kind", n.Kind),
		logger.TenantID(n.TenantID),
		logger.StudentID(n.StudentID),
		logger.String("subject", n.Subject),
		logger.String("body", n.Body),
	)
	return nil
}
