package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
)

type flushRecorder struct {
	mu      sync.Mutex
	flushes []feed.Draft
}

func (r *flushRecorder) flush(ctx context.Context, key feed.Key, draft feed.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes = append(r.flushes, draft)
	return nil
}

func (r *flushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flushes)
}

func (r *flushRecorder) last() feed.Draft {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flushes[len(r.flushes)-1]
}

func writeBehindKey(student string) feed.Key {
	return feed.Key{
		TenantID:  shared.TenantID("11111111-1111-1111-1111-111111111111"),
		StudentID: shared.StudentID(student),
		ClassID:   shared.ClassID("33333333-3333-3333-3333-333333333333"),
		Date:      shared.NewFeedDate(2026, 3, 9),
	}
}

func TestWriteBehind_CoalescesEditsPerKey(t *testing.T) {
	rec := &flushRecorder{}
	wb := NewWriteBehindWithDelay(rec.flush, 30*time.Millisecond)
	defer wb.Close(context.Background())

	key := writeBehindKey("22222222-2222-2222-2222-222222222222")
	wb.Record(key, feed.Draft{Memo: "a"})
	wb.Record(key, feed.Draft{Memo: "ab"})
	wb.Record(key, feed.Draft{Memo: "abc"})

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "abc", rec.last().Memo)
}

func TestWriteBehind_KeysDebounceIndependently(t *testing.T) {
	rec := &flushRecorder{}
	wb := NewWriteBehindWithDelay(rec.flush, 30*time.Millisecond)
	defer wb.Close(context.Background())

	wb.Record(writeBehindKey("22222222-2222-2222-2222-222222222222"), feed.Draft{Memo: "one"})
	wb.Record(writeBehindKey("99999999-9999-9999-9999-999999999999"), feed.Draft{Memo: "two"})

	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestWriteBehind_CancelDropsPendingDraft(t *testing.T) {
	rec := &flushRecorder{}
	wb := NewWriteBehindWithDelay(rec.flush, 30*time.Millisecond)
	defer wb.Close(context.Background())

	key := writeBehindKey("22222222-2222-2222-2222-222222222222")
	wb.Record(key, feed.Draft{Memo: "doomed"})
	wb.Cancel(key)

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, rec.count())
}

func TestWriteBehind_FlushWritesImmediately(t *testing.T) {
	rec := &flushRecorder{}
	wb := NewWriteBehindWithDelay(rec.flush, time.Hour)
	defer wb.Close(context.Background())

	wb.Record(writeBehindKey("22222222-2222-2222-2222-222222222222"), feed.Draft{Memo: "pending"})

	require.NoError(t, wb.Flush(context.Background()))
	assert.Equal(t, 1, rec.count())
}

func TestWriteBehind_CloseFlushesAndStopsAccepting(t *testing.T) {
	rec := &flushRecorder{}
	wb := NewWriteBehindWithDelay(rec.flush, time.Hour)

	key := writeBehindKey("22222222-2222-2222-2222-222222222222")
	wb.Record(key, feed.Draft{Memo: "pending"})

	require.NoError(t, wb.Close(context.Background()))
	assert.Equal(t, 1, rec.count())

	// Records after close are dropped.
	wb.Record(key, feed.Draft{Memo: "late"})
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestWriteBehind_FlushedDraftIsACopy(t *testing.T) {
	rec := &flushRecorder{}
	wb := NewWriteBehindWithDelay(rec.flush, time.Hour)
	defer wb.Close(context.Background())

	draft := feed.Draft{Selections: map[string]string{"set-1": "opt-1"}}
	wb.Record(writeBehindKey("22222222-2222-2222-2222-222222222222"), draft)

	// Caller keeps editing its own map after handing the draft over.
	draft.Selections["set-1"] = "opt-2"

	require.NoError(t, wb.Flush(context.Background()))
	assert.Equal(t, "opt-1", rec.last().Selections["set-1"])
}
