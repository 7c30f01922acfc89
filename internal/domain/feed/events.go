package feed

import (
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
)

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// SavedEvent is published after every acknowledged save.
type SavedEvent struct {
	shared.BaseEvent

	RecordID     string
	Key          Key
	Attendance   AttendanceStatus
	NotifyParent bool
}

// NewSavedEvent creates a SavedEvent for a persisted record.
func NewSavedEvent(rec *FeedRecord, correlationID string) SavedEvent {
	return SavedEvent{
		BaseEvent:    shared.NewBaseEvent(shared.EventFeedSaved, rec.ID, correlationID),
		RecordID:     rec.ID,
		Key:          rec.Key(),
		Attendance:   rec.Values.Attendance,
		NotifyParent: rec.Values.NotifyParent,
	}
}

// Payload returns the event data as a map for serialization.
func (e SavedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"record_id":     e.RecordID,
		"tenant_id":     e.Key.TenantID.String(),
		"student_id":    e.Key.StudentID.String(),
		"class_id":      e.Key.ClassID.String(),
		"date":          e.Key.Date.String(),
		"attendance":    string(e.Attendance),
		"notify_parent": e.NotifyParent,
	}
}

// DeletedEvent is published after a record is soft-deleted.
type DeletedEvent struct {
	shared.BaseEvent

	RecordID string
	Key      Key
}

// NewDeletedEvent creates a DeletedEvent.
func NewDeletedEvent(recordID string, key Key, correlationID string) DeletedEvent {
	return DeletedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventFeedDeleted, recordID, correlationID),
		RecordID:  recordID,
		Key:       key,
	}
}

// Payload returns the event data as a map for serialization.
func (e DeletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"record_id":  e.RecordID,
		"tenant_id":  e.Key.TenantID.String(),
		"student_id": e.Key.StudentID.String(),
		"class_id":   e.Key.ClassID.String(),
		"date":       e.Key.Date.String(),
	}
}

// AbsenceRecordedEvent is published after a save that marks an absence.
// The monthly-threshold alert hangs off this event.
type AbsenceRecordedEvent struct {
	shared.BaseEvent

	RecordID string
	Key      Key
	Reason   taxonomy.AbsenceReason
}

// NewAbsenceRecordedEvent creates an AbsenceRecordedEvent.
func NewAbsenceRecordedEvent(rec *FeedRecord, correlationID string) AbsenceRecordedEvent {
	return AbsenceRecordedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventFeedAbsenceRecorded, rec.ID, correlationID),
		RecordID:  rec.ID,
		Key:       rec.Key(),
		Reason:    rec.Values.AbsenceReason,
	}
}

// Payload returns the event data as a map for serialization.
func (e AbsenceRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"record_id":  e.RecordID,
		"tenant_id":  e.Key.TenantID.String(),
		"student_id": e.Key.StudentID.String(),
		"date":       e.Key.Date.String(),
		"reason":     e.Reason.String(),
	}
}
