package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
)

func cacheKey(student string) feed.Key {
	return feed.Key{
		TenantID:  shared.TenantID("11111111-1111-1111-1111-111111111111"),
		StudentID: shared.StudentID(student),
		ClassID:   shared.ClassID("33333333-3333-3333-3333-333333333333"),
		Date:      shared.NewFeedDate(2026, 3, 9),
	}
}

func TestDraftCache_PutGetRoundTrip(t *testing.T) {
	cache := NewDraftCache()
	key := cacheKey("22222222-2222-2222-2222-222222222222")

	draft := feed.Draft{Attendance: feed.AttendancePresent, Memo: "in progress"}
	require.NoError(t, cache.Put(context.Background(), key, draft))

	got, err := cache.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "in progress", got.Memo)
}

func TestDraftCache_MissReturnsNotFound(t *testing.T) {
	cache := NewDraftCache()

	_, err := cache.Get(context.Background(), cacheKey("22222222-2222-2222-2222-222222222222"))

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDraftCache_RemoveClearsEntry(t *testing.T) {
	cache := NewDraftCache()
	key := cacheKey("22222222-2222-2222-2222-222222222222")

	require.NoError(t, cache.Put(context.Background(), key, feed.Draft{Memo: "doomed"}))
	require.NoError(t, cache.Remove(context.Background(), key))

	_, err := cache.Get(context.Background(), key)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDraftCache_StoresAndReturnsCopies(t *testing.T) {
	cache := NewDraftCache()
	key := cacheKey("22222222-2222-2222-2222-222222222222")

	draft := feed.Draft{Selections: map[string]string{"set-1": "opt-1"}}
	require.NoError(t, cache.Put(context.Background(), key, draft))

	// Caller mutations after Put must not reach the cache.
	draft.Selections["set-1"] = "opt-2"

	got, err := cache.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "opt-1", got.Selections["set-1"])

	// Mutating a Get result must not corrupt the cached draft.
	got.Selections["set-1"] = "opt-3"

	again, err := cache.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "opt-1", again.Selections["set-1"])
}
