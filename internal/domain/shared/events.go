// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event marks something significant that happened in
// the feed-recording or ticket-lifecycle flow; side effects (parent
// notification, threshold alerts) hang off these rather than off the save path.
const (
	// Feed events
	EventFeedSaved           EventType = "feed.saved"
	EventFeedAbsenceRecorded EventType = "feed.absence_recorded"
	EventFeedDeleted         EventType = "feed.deleted"

	// Makeup ticket events
	EventTicketCreated   EventType = "ticket.created"
	EventTicketScheduled EventType = "ticket.scheduled"
	EventTicketCompleted EventType = "ticket.completed"
	EventTicketCancelled EventType = "ticket.cancelled"
	EventTicketReopened  EventType = "ticket.reopened"

	// Alerting events
	EventAbsenceThresholdReached EventType = "alert.absence_threshold_reached"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// NewBaseEvent creates a BaseEvent stamped with the current time.
func NewBaseEvent(t EventType, aggregateID, correlationID string) BaseEvent {
	return BaseEvent{
		Type:          t,
		Timestamp:     time.Now().UTC(),
		AggregateId:   aggregateID,
		CorrelationID: correlationID,
	}
}

// EventType returns the type of the event.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt returns when the event occurred.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the aggregate that produced this event.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// EventHandler processes a published event.
type EventHandler interface {
	// Handle processes the event. Returned errors are logged by the bus, not
	// propagated to the publisher.
	Handle(ctx context.Context, event Event) error
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ctx context.Context, event Event) error

// Handle calls the wrapped function.
func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// EventPublisher publishes domain events to interested subscribers.
type EventPublisher interface {
	// Publish delivers the event to all subscribers of its type.
	Publish(ctx context.Context, event Event) error
}
