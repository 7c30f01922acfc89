// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TenantID identifies the owning academy. Tenant configuration governs
// validation rules and absence-reason defaults.
type TenantID string

// IsValid checks if the tenant ID is a valid UUID.
func (t TenantID) IsValid() bool {
	return uuidRegex.MatchString(string(t))
}

// String returns the string representation.
func (t TenantID) String() string {
	return string(t)
}

// NewTenantID creates a new TenantID with validation.
func NewTenantID(id string) (TenantID, error) {
	tid := TenantID(strings.ToLower(strings.TrimSpace(id)))
	if !tid.IsValid() {
		return "", NewDomainError("shared", "NewTenantID", ErrInvalidID, "invalid tenant ID format")
	}
	return tid, nil
}

// StudentID represents a unique student identifier (UUID format). The student
// directory itself is owned by an external collaborator; this core only refers
// to students by ID.
type StudentID string

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "invalid student ID format")
	}
	return sid, nil
}

// ClassID represents a unique class identifier (UUID format).
type ClassID string

// IsValid checks if the class ID is a valid UUID.
func (c ClassID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String returns the string representation.
func (c ClassID) String() string {
	return string(c)
}

// NewClassID creates a new ClassID with validation.
func NewClassID(id string) (ClassID, error) {
	cid := ClassID(strings.ToLower(strings.TrimSpace(id)))
	if !cid.IsValid() {
		return "", NewDomainError("shared", "NewClassID", ErrInvalidID, "invalid class ID format")
	}
	return cid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Idempotency Token
// ═══════════════════════════════════════════════════════════════════════════

// IdempotencyToken is a caller-generated correlation id that makes a retried
// submission apply at most once. Tokens protect retries of the same logical
// submission; they do not serialize concurrent distinct submissions.
type IdempotencyToken string

// IsValid checks the token is a UUID.
func (t IdempotencyToken) IsValid() bool {
	return uuidRegex.MatchString(string(t))
}

// String returns the string representation.
func (t IdempotencyToken) String() string {
	return string(t)
}

// IsEmpty checks if the token is empty.
func (t IdempotencyToken) IsEmpty() bool {
	return t == ""
}

// NewIdempotencyToken validates a caller-supplied token.
func NewIdempotencyToken(token string) (IdempotencyToken, error) {
	tok := IdempotencyToken(strings.ToLower(strings.TrimSpace(token)))
	if !tok.IsValid() {
		return "", NewDomainError("shared", "NewIdempotencyToken", ErrInvalidID, "invalid idempotency token format")
	}
	return tok, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// FeedDate Value Object
// ═══════════════════════════════════════════════════════════════════════════

// feedDateLayout is the canonical wire format for feed dates.
const feedDateLayout = "2006-01-02"

// FeedDate is a calendar date with day precision. Feed records and makeup
// tickets are keyed by date, never by instant, so truncation happens at
// construction time.
type FeedDate struct {
	t time.Time
}

// NewFeedDate creates a FeedDate for the given calendar day.
func NewFeedDate(year int, month time.Month, day int) FeedDate {
	return FeedDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FeedDateOf truncates an instant to its calendar day.
func FeedDateOf(t time.Time) FeedDate {
	return NewFeedDate(t.Year(), t.Month(), t.Day())
}

// ParseFeedDate parses a "YYYY-MM-DD" string.
func ParseFeedDate(s string) (FeedDate, error) {
	t, err := time.Parse(feedDateLayout, strings.TrimSpace(s))
	if err != nil {
		return FeedDate{}, WrapError("shared", "ParseFeedDate", ErrInvalidFormat, "expected YYYY-MM-DD", err)
	}
	return FeedDateOf(t), nil
}

// IsZero checks if the date is unset.
func (d FeedDate) IsZero() bool {
	return d.t.IsZero()
}

// Time returns the underlying midnight-UTC instant.
func (d FeedDate) Time() time.Time {
	return d.t
}

// String returns the canonical "YYYY-MM-DD" representation.
func (d FeedDate) String() string {
	return d.t.Format(feedDateLayout)
}

// Equal checks two dates for the same calendar day.
func (d FeedDate) Equal(other FeedDate) bool {
	return d.t.Equal(other.t)
}

// Before reports whether d is an earlier calendar day than other.
func (d FeedDate) Before(other FeedDate) bool {
	return d.t.Before(other.t)
}

// After reports whether d is a later calendar day than other.
func (d FeedDate) After(other FeedDate) bool {
	return d.t.After(other.t)
}

// AddDays returns the date n days later (or earlier for negative n).
func (d FeedDate) AddDays(n int) FeedDate {
	return FeedDate{t: d.t.AddDate(0, 0, n)}
}

// Month returns the year and month of the date.
func (d FeedDate) Month() (int, time.Month) {
	return d.t.Year(), d.t.Month()
}

// MarshalText implements encoding.TextMarshaler.
func (d FeedDate) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *FeedDate) UnmarshalText(data []byte) error {
	parsed, err := ParseFeedDate(string(data))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeOfDay Value Object
// ═══════════════════════════════════════════════════════════════════════════

// timeOfDayLayout is the wire format for a scheduled session time.
const timeOfDayLayout = "15:04"

// TimeOfDay is an optional wall-clock time attached to a scheduled makeup
// session. A zero value means "date only, time not set".
type TimeOfDay struct {
	Hour   int
	Minute int
	set    bool
}

// NewTimeOfDay creates a TimeOfDay with validation.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, NewDomainError("shared", "NewTimeOfDay", ErrValueOutOfRange, "time must be within 00:00-23:59")
	}
	return TimeOfDay{Hour: hour, Minute: minute, set: true}, nil
}

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(timeOfDayLayout, strings.TrimSpace(s))
	if err != nil {
		return TimeOfDay{}, WrapError("shared", "ParseTimeOfDay", ErrInvalidFormat, "expected HH:MM", err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), set: true}, nil
}

// IsSet reports whether a time was provided.
func (t TimeOfDay) IsSet() bool {
	return t.set
}

// String returns the "HH:MM" representation, or "" when unset.
func (t TimeOfDay) String() string {
	if !t.set {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ═══════════════════════════════════════════════════════════════════════════
// DateRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// DateRange represents an inclusive calendar-day interval.
type DateRange struct {
	From FeedDate
	To   FeedDate
}

// IsValid checks if the range is well-formed.
func (r DateRange) IsValid() bool {
	return !r.From.IsZero() && !r.To.IsZero() && !r.From.After(r.To)
}

// Contains checks if a date falls within the range (inclusive).
func (r DateRange) Contains(d FeedDate) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// NewDateRange creates a DateRange with validation.
func NewDateRange(from, to FeedDate) (DateRange, error) {
	r := DateRange{From: from, To: to}
	if !r.IsValid() {
		return DateRange{}, NewDomainError("shared", "NewDateRange", ErrInvalidInput, "'from' must not be after 'to'")
	}
	return r, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters for listing queries.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}
