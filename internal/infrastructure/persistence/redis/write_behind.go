package redis

import (
	"context"
	"sync"
	"time"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
)

// ══════════════════════════════════════════════════════════════════════════════
// WRITE-BEHIND DEBOUNCER
// Edits arrive keystroke by keystroke; writing every one to the cache would be
// wasteful. The debouncer coalesces edits per card and flushes only the latest
// draft once the card has been quiet for the debounce interval.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultDebounce is the quiet interval before a pending draft is flushed.
const DefaultDebounce = 2 * time.Second

// FlushFunc persists one coalesced draft. The production wiring points this at
// DraftCache.Put; tests substitute their own sink.
type FlushFunc func(ctx context.Context, key feed.Key, draft feed.Draft) error

// WriteBehind debounces draft writes per card key. Safe for concurrent use.
type WriteBehind struct {
	flush FlushFunc
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingDraft
	closed  bool
	wg      sync.WaitGroup
}

type pendingDraft struct {
	key   feed.Key
	draft feed.Draft
	timer *time.Timer
}

// NewWriteBehind creates a debouncer flushing through fn after the default
// quiet interval.
func NewWriteBehind(fn FlushFunc) *WriteBehind {
	return NewWriteBehindWithDelay(fn, DefaultDebounce)
}

// NewWriteBehindWithDelay creates a debouncer with a custom quiet interval.
func NewWriteBehindWithDelay(fn FlushFunc, delay time.Duration) *WriteBehind {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &WriteBehind{
		flush:   fn,
		delay:   delay,
		pending: make(map[string]*pendingDraft),
	}
}

// Record notes an edit to a card's draft. A later Record for the same key
// before the interval elapses replaces the pending draft and restarts the
// timer, so only the final state reaches the flush function.
func (w *WriteBehind) Record(key feed.Key, draft feed.Draft) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	id := key.String()
	if p, ok := w.pending[id]; ok {
		p.draft = draft.Clone()
		p.timer.Reset(w.delay)
		return
	}

	p := &pendingDraft{key: key, draft: draft.Clone()}
	p.timer = time.AfterFunc(w.delay, func() {
		w.fire(id)
	})
	w.pending[id] = p
}

// Cancel drops the pending draft for a key without flushing. Called when a
// save completes or the card is reset, so a stale draft never lands after the
// cache entry was cleared.
func (w *WriteBehind) Cancel(key feed.Key) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := key.String()
	if p, ok := w.pending[id]; ok {
		p.timer.Stop()
		delete(w.pending, id)
	}
}

// fire flushes the pending draft for a key after its quiet interval elapsed.
func (w *WriteBehind) fire(id string) {
	w.mu.Lock()
	p, ok := w.pending[id]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.pending, id)
	w.wg.Add(1)
	w.mu.Unlock()

	defer w.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Flush failures are tolerated: the in-memory draft is still the source
	// of truth and the next edit schedules another attempt.
	_ = w.flush(ctx, p.key, p.draft)
}

// Flush writes out every pending draft immediately, used on shutdown so no
// coalesced edit is lost.
func (w *WriteBehind) Flush(ctx context.Context) error {
	w.mu.Lock()
	drafts := make([]*pendingDraft, 0, len(w.pending))
	for id, p := range w.pending {
		p.timer.Stop()
		drafts = append(drafts, p)
		delete(w.pending, id)
	}
	w.mu.Unlock()

	var firstErr error
	for _, p := range drafts {
		if err := w.flush(ctx, p.key, p.draft); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close flushes pending drafts and stops accepting new ones.
func (w *WriteBehind) Close(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	err := w.Flush(ctx)
	w.wg.Wait()
	return err
}
