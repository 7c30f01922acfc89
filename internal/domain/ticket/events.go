package ticket

import (
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// LifecycleEvent is published on every ticket transition, including creation.
type LifecycleEvent struct {
	shared.BaseEvent

	TicketID  string
	TenantID  shared.TenantID
	StudentID shared.StudentID
	From      Status
	To        Status
}

// NewLifecycleEvent creates a transition event for a ticket.
func NewLifecycleEvent(eventType shared.EventType, t *MakeupTicket, from Status, correlationID string) LifecycleEvent {
	return LifecycleEvent{
		BaseEvent: shared.NewBaseEvent(eventType, t.ID, correlationID),
		TicketID:  t.ID,
		TenantID:  t.TenantID,
		StudentID: t.StudentID,
		From:      from,
		To:        t.Status,
	}
}

// Payload returns the event data as a map for serialization.
func (e LifecycleEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"ticket_id":  e.TicketID,
		"tenant_id":  e.TenantID.String(),
		"student_id": e.StudentID.String(),
		"from":       e.From.String(),
		"to":         e.To.String(),
	}
}
