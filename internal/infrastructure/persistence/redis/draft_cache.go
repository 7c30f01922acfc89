package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DRAFT CACHE IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// DraftCache implements feed.DraftCache on top of the Redis cache. Drafts are
// stored as JSON under "draft:tenant:student:date" with a sliding TTL.
type DraftCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewDraftCache creates a DraftCache with the default draft TTL.
func NewDraftCache(cache *Cache) *DraftCache {
	return &DraftCache{cache: cache, ttl: TTLDraft}
}

// NewDraftCacheWithTTL creates a DraftCache with a custom TTL.
func NewDraftCacheWithTTL(cache *Cache, ttl time.Duration) *DraftCache {
	return &DraftCache{cache: cache, ttl: ttl}
}

// Put stores the draft for a key, refreshing the TTL.
func (c *DraftCache) Put(ctx context.Context, key feed.Key, draft feed.Draft) error {
	if err := c.cache.Set(ctx, DraftKey(key.String()), draft, c.ttl); err != nil {
		return fmt.Errorf("failed to cache draft: %w", err)
	}
	return nil
}

// Get returns the cached draft for a key.
func (c *DraftCache) Get(ctx context.Context, key feed.Key) (*feed.Draft, error) {
	var draft feed.Draft
	err := c.cache.Get(ctx, DraftKey(key.String()), &draft)
	if errors.Is(err, ErrCacheMiss) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached draft: %w", err)
	}
	return &draft, nil
}

// Remove drops the cached draft for a key. Removing an absent entry is not an
// error; save completion and reset both call this unconditionally.
func (c *DraftCache) Remove(ctx context.Context, key feed.Key) error {
	if err := c.cache.Delete(ctx, DraftKey(key.String())); err != nil {
		return fmt.Errorf("failed to remove cached draft: %w", err)
	}
	return nil
}
