// Package memory contains in-process implementations of the persistence
// interfaces. The draft cache here backs development deployments without
// Redis; drafts survive a page reload but not a process restart.
package memory

import (
	"context"
	"sync"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
)

// DraftCache is a map-backed feed.DraftCache.
type DraftCache struct {
	mu     sync.RWMutex
	drafts map[string]feed.Draft
}

// NewDraftCache creates an empty in-memory draft cache.
func NewDraftCache() *DraftCache {
	return &DraftCache{drafts: make(map[string]feed.Draft)}
}

// Put stores the draft for a key.
func (c *DraftCache) Put(ctx context.Context, key feed.Key, draft feed.Draft) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.drafts[key.String()] = draft.Clone()
	return nil
}

// Get returns the cached draft for a key.
func (c *DraftCache) Get(ctx context.Context, key feed.Key) (*feed.Draft, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	draft, ok := c.drafts[key.String()]
	if !ok {
		return nil, shared.ErrNotFound
	}
	d := draft.Clone()
	return &d, nil
}

// Remove drops the cached draft for a key.
func (c *DraftCache) Remove(ctx context.Context, key feed.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.drafts, key.String())
	return nil
}
