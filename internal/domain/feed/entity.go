// Package feed contains the attendance-feed domain model: the FeedRecord
// entity, the per-(student, date) Card with its editable draft, and the pure
// validation that computes a card's status. This is the core business logic -
// no I/O happens here.
package feed

import (
	"fmt"
	"time"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE STATUS
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceStatus is the teacher's attendance mark for a student on a day.
type AttendanceStatus string

const (
	// AttendanceUnset - no mark entered yet.
	AttendanceUnset AttendanceStatus = ""

	// AttendancePresent - student attended the session.
	AttendancePresent AttendanceStatus = "present"

	// AttendanceLate - student attended but arrived late.
	AttendanceLate AttendanceStatus = "late"

	// AttendanceAbsent - student did not attend. Absence records never carry
	// evaluation selections or exam scores.
	AttendanceAbsent AttendanceStatus = "absent"
)

// IsValid checks that the status is a supported mark.
func (s AttendanceStatus) IsValid() bool {
	switch s {
	case AttendancePresent, AttendanceLate, AttendanceAbsent:
		return true
	default:
		return false
	}
}

// IsMarked reports whether any mark has been entered.
func (s AttendanceStatus) IsMarked() bool {
	return s != AttendanceUnset
}

// IsAbsent reports whether the mark is an absence.
func (s AttendanceStatus) IsAbsent() bool {
	return s == AttendanceAbsent
}

// Attended reports whether the student was in the room (present or late).
func (s AttendanceStatus) Attended() bool {
	return s == AttendancePresent || s == AttendanceLate
}

// ══════════════════════════════════════════════════════════════════════════════
// KEY
// ══════════════════════════════════════════════════════════════════════════════

// Key identifies a feed record: one student, one class, one calendar day.
// The uniqueness invariant is per (student, date) - a second save for the same
// student and day upserts, never duplicates.
type Key struct {
	TenantID  shared.TenantID
	StudentID shared.StudentID
	ClassID   shared.ClassID
	Date      shared.FeedDate
}

// IsValid checks all key components.
func (k Key) IsValid() bool {
	return k.TenantID.IsValid() && k.StudentID.IsValid() && k.ClassID.IsValid() && !k.Date.IsZero()
}

// String returns a stable representation, used as the draft-cache key.
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.TenantID, k.StudentID, k.Date)
}

// ══════════════════════════════════════════════════════════════════════════════
// DRAFT
// ══════════════════════════════════════════════════════════════════════════════

// ProgressEntry is one free-text progress note (e.g. per textbook or unit).
type ProgressEntry struct {
	// Topic - what the note is about (unit, textbook, skill).
	Topic string `json:"topic"`

	// Note - the teacher's free text.
	Note string `json:"note"`
}

// Draft holds the editable field values of a card. A Draft is a plain value:
// cloning and comparing drafts is what the dirty/clean flag is built on.
type Draft struct {
	// Attendance - the attendance mark.
	Attendance AttendanceStatus `json:"attendance"`

	// AbsenceReason - required iff Attendance is absent.
	AbsenceReason taxonomy.AbsenceReason `json:"absence_reason,omitempty"`

	// AbsenceDetail - free text, required iff AbsenceReason is "other".
	AbsenceDetail string `json:"absence_detail,omitempty"`

	// NotifyParent - whether saving should trigger a parent notification.
	NotifyParent bool `json:"notify_parent"`

	// IsMakeup - this session is itself a makeup for an earlier absence.
	IsMakeup bool `json:"is_makeup"`

	// MakeupTicketID - the ticket this makeup session settles, if any.
	MakeupTicketID string `json:"makeup_ticket_id,omitempty"`

	// NeedsMakeupOverride - per-record override of the tenant's absence
	// default. Nil means "use the tenant default for the reason".
	NeedsMakeupOverride *bool `json:"needs_makeup_override,omitempty"`

	// Selections - evaluation selections, option set ID -> option ID.
	// Must be empty in the persisted payload when Attendance is absent.
	Selections map[string]string `json:"selections,omitempty"`

	// ExamScores - exam ID -> score. Same absence rule as Selections.
	ExamScores map[string]int `json:"exam_scores,omitempty"`

	// Progress - free-text progress notes.
	Progress []ProgressEntry `json:"progress,omitempty"`

	// Memo - free-text memo for the day.
	Memo string `json:"memo,omitempty"`
}

// Clone returns a deep copy of the draft.
func (d Draft) Clone() Draft {
	c := d
	if d.NeedsMakeupOverride != nil {
		v := *d.NeedsMakeupOverride
		c.NeedsMakeupOverride = &v
	}
	if d.Selections != nil {
		c.Selections = make(map[string]string, len(d.Selections))
		for k, v := range d.Selections {
			c.Selections[k] = v
		}
	}
	if d.ExamScores != nil {
		c.ExamScores = make(map[string]int, len(d.ExamScores))
		for k, v := range d.ExamScores {
			c.ExamScores[k] = v
		}
	}
	if d.Progress != nil {
		c.Progress = make([]ProgressEntry, len(d.Progress))
		copy(c.Progress, d.Progress)
	}
	return c
}

// Equal compares two drafts field by field. Nil and empty maps compare equal,
// so a round trip through serialization does not flip the dirty flag.
func (d Draft) Equal(other Draft) bool {
	if d.Attendance != other.Attendance ||
		d.AbsenceReason != other.AbsenceReason ||
		d.AbsenceDetail != other.AbsenceDetail ||
		d.NotifyParent != other.NotifyParent ||
		d.IsMakeup != other.IsMakeup ||
		d.MakeupTicketID != other.MakeupTicketID ||
		d.Memo != other.Memo {
		return false
	}
	if !boolPtrEqual(d.NeedsMakeupOverride, other.NeedsMakeupOverride) {
		return false
	}
	if len(d.Selections) != len(other.Selections) {
		return false
	}
	for k, v := range d.Selections {
		if ov, ok := other.Selections[k]; !ok || ov != v {
			return false
		}
	}
	if len(d.ExamScores) != len(other.ExamScores) {
		return false
	}
	for k, v := range d.ExamScores {
		if ov, ok := other.ExamScores[k]; !ok || ov != v {
			return false
		}
	}
	if len(d.Progress) != len(other.Progress) {
		return false
	}
	for i := range d.Progress {
		if d.Progress[i] != other.Progress[i] {
			return false
		}
	}
	return true
}

// IsBlank reports whether every field still has its default value.
func (d Draft) IsBlank() bool {
	return d.Equal(Draft{})
}

// ForPersistence returns the payload-safe copy of the draft. For absences,
// evaluation selections and exam scores are cleared: they are ignored by
// validation and must never reach the store.
func (d Draft) ForPersistence() Draft {
	c := d.Clone()
	if c.Attendance.IsAbsent() {
		c.Selections = nil
		c.ExamScores = nil
	}
	return c
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ══════════════════════════════════════════════════════════════════════════════
// FEED RECORD
// ══════════════════════════════════════════════════════════════════════════════

// FeedRecord is the persisted form of a teacher's per-student, per-day entry.
type FeedRecord struct {
	// ID - internal unique identifier (UUID in string form).
	ID string

	// TenantID, StudentID, ClassID, Date - the record key.
	TenantID  shared.TenantID
	StudentID shared.StudentID
	ClassID   shared.ClassID
	Date      shared.FeedDate

	// Values - the recorded field values.
	Values Draft

	// SaveToken - idempotency token of the save that produced this state.
	// A retried submission carrying the same token is applied at most once.
	SaveToken shared.IdempotencyToken

	// CreatedAt - time of first persistence.
	CreatedAt time.Time

	// UpdatedAt - time of last persistence.
	UpdatedAt time.Time

	// DeletedAt - soft-delete marker; nil while the record is live.
	DeletedAt *time.Time
}

// Key returns the record's key.
func (r *FeedRecord) Key() Key {
	return Key{
		TenantID:  r.TenantID,
		StudentID: r.StudentID,
		ClassID:   r.ClassID,
		Date:      r.Date,
	}
}

// IsDeleted reports whether the record has been soft-deleted.
func (r *FeedRecord) IsDeleted() bool {
	return r.DeletedAt != nil
}

// IsAbsence reports whether the record marks an absence.
func (r *FeedRecord) IsAbsence() bool {
	return r.Values.Attendance.IsAbsent()
}

// NewFeedRecord builds a record from a key and a persistence-safe draft.
// The caller supplies the ID and token; timestamps are stamped here.
func NewFeedRecord(id string, key Key, values Draft, token shared.IdempotencyToken) (*FeedRecord, error) {
	if id == "" {
		return nil, shared.NewDomainError("feed", "NewFeedRecord", shared.ErrInvalidID, "record id is required")
	}
	if !key.IsValid() {
		return nil, shared.NewDomainError("feed", "NewFeedRecord", shared.ErrInvalidID, "invalid record key")
	}
	if !values.Attendance.IsValid() {
		return nil, shared.NewDomainError("feed", "NewFeedRecord", shared.ErrInvalidInput, "attendance status is required")
	}

	now := time.Now().UTC()

	return &FeedRecord{
		ID:        id,
		TenantID:  key.TenantID,
		StudentID: key.StudentID,
		ClassID:   key.ClassID,
		Date:      key.Date,
		Values:    values.ForPersistence(),
		SaveToken: token,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
