package feed

import (
	"context"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Contracts for the durable store and the local draft cache.
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository is the durable store for feed records.
type Repository interface {
	// Upsert persists the record, inserting or replacing by (tenant, student,
	// date). The store enforces that at most one live record exists per key.
	// Concurrent writers to the same key are not serialized; the later write
	// wins. Returns the persisted record's ID.
	Upsert(ctx context.Context, rec *FeedRecord) (string, error)

	// GetByKey returns the live record for a key.
	// Returns ErrRecordNotFound when none exists.
	GetByKey(ctx context.Context, key Key) (*FeedRecord, error)

	// GetByStudentDate returns the live record for a student and day,
	// regardless of class. Used by the uniqueness and idempotency checks.
	GetByStudentDate(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID, date shared.FeedDate) (*FeedRecord, error)

	// SoftDelete marks the record deleted without removing the row.
	// Returns ErrRecordNotFound when no live record exists.
	SoftDelete(ctx context.Context, key Key) error

	// ListByClassDate returns the live records of a class on a day, used to
	// hydrate cards when a teacher opens the feed screen.
	ListByClassDate(ctx context.Context, tenantID shared.TenantID, classID shared.ClassID, date shared.FeedDate) ([]*FeedRecord, error)

	// ListAbsences returns absence records in the date range, newest first.
	ListAbsences(ctx context.Context, tenantID shared.TenantID, dates shared.DateRange, p shared.Pagination) ([]*FeedRecord, error)

	// CountAbsences counts a student's distinct absence records in the range.
	// This backs the monthly absence aggregate and must always read the
	// current records - no caching on top of the store.
	CountAbsences(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID, dates shared.DateRange) (int, error)
}

// DraftCache is the durable local cache holding unsaved drafts, keyed by
// (student, date). While a card is dirty its draft is written here on a
// debounce timer; the entry is cleared on successful save or explicit reset
// and consulted on (re)load to recover unsaved work.
type DraftCache interface {
	// Put stores the draft for a key.
	Put(ctx context.Context, key Key, draft Draft) error

	// Get returns the cached draft for a key.
	// Returns shared.ErrNotFound when no draft is cached.
	Get(ctx context.Context, key Key) (*Draft, error)

	// Remove drops the cached draft for a key.
	Remove(ctx context.Context, key Key) error
}
