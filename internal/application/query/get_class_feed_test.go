package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
	"github.com/academy-hub/attendance-feed-engine/internal/infrastructure/persistence/memory"
)

func classFeedQuery(studentIDs ...string) GetClassFeedQuery {
	return GetClassFeedQuery{
		TenantID:   tenantA,
		ClassID:    classA,
		Date:       "2026-03-09",
		StudentIDs: studentIDs,
	}
}

func classKey(studentID string) feed.Key {
	return feed.Key{
		TenantID:  shared.TenantID(tenantA),
		StudentID: shared.StudentID(studentID),
		ClassID:   shared.ClassID(classA),
		Date:      shared.NewFeedDate(2026, 3, 9),
	}
}

func TestGetClassFeed_HydratesRosterInOrder(t *testing.T) {
	store := &fakeFeedStore{}
	store.add(presenceRecord("rec-1", studentB, shared.NewFeedDate(2026, 3, 9)))

	h := NewGetClassFeedHandler(store, &fakeTaxonomyReader{}, memory.NewDraftCache())
	result, err := h.Handle(context.Background(), classFeedQuery(studentA, studentB))

	require.NoError(t, err)
	assert.Equal(t, "standard", result.Mode)
	require.Len(t, result.Cards, 2)

	// Roster order, not store order.
	assert.Equal(t, studentA, result.Cards[0].StudentID)
	assert.Equal(t, string(feed.StatusEmpty), result.Cards[0].Status)
	assert.Empty(t, result.Cards[0].RecordID)

	assert.Equal(t, studentB, result.Cards[1].StudentID)
	assert.Equal(t, string(feed.StatusSaved), result.Cards[1].Status)
	assert.Equal(t, "rec-1", result.Cards[1].RecordID)
}

func TestGetClassFeed_RecoversUnsavedDraft(t *testing.T) {
	store := &fakeFeedStore{}
	cache := memory.NewDraftCache()

	// A crash left typed-in work in the cache; no record was ever saved.
	draft := feed.Draft{Attendance: feed.AttendancePresent, Memo: "halfway through"}
	require.NoError(t, cache.Put(context.Background(), classKey(studentA), draft))

	h := NewGetClassFeedHandler(store, &fakeTaxonomyReader{mode: taxonomy.OperationModeTeam}, cache)
	result, err := h.Handle(context.Background(), classFeedQuery(studentA))

	require.NoError(t, err)
	card := result.Cards[0]
	assert.True(t, card.RecoveredDraft)
	assert.Equal(t, string(feed.StatusDirty), card.Status)
	assert.Equal(t, "halfway through", card.Draft.Memo)
}

func TestGetClassFeed_RecoveredDraftOverPersistedRecord(t *testing.T) {
	store := &fakeFeedStore{}
	store.add(presenceRecord("rec-1", studentA, shared.NewFeedDate(2026, 3, 9)))

	cache := memory.NewDraftCache()
	newer := feed.Draft{Attendance: feed.AttendancePresent, Memo: "edited after save"}
	require.NoError(t, cache.Put(context.Background(), classKey(studentA), newer))

	h := NewGetClassFeedHandler(store, &fakeTaxonomyReader{mode: taxonomy.OperationModeTeam}, cache)
	result, err := h.Handle(context.Background(), classFeedQuery(studentA))

	require.NoError(t, err)
	card := result.Cards[0]
	assert.True(t, card.RecoveredDraft)
	assert.Equal(t, string(feed.StatusDirty), card.Status)
	assert.Equal(t, "rec-1", card.RecordID)
}

func TestGetClassFeed_StaleDraftDiscarded(t *testing.T) {
	store := &fakeFeedStore{}
	rec := presenceRecord("rec-1", studentA, shared.NewFeedDate(2026, 3, 9))
	store.add(rec)

	// The cached draft matches the persisted state exactly: it is a leftover,
	// not unsaved work.
	cache := memory.NewDraftCache()
	require.NoError(t, cache.Put(context.Background(), classKey(studentA), rec.Values))

	h := NewGetClassFeedHandler(store, &fakeTaxonomyReader{mode: taxonomy.OperationModeTeam}, cache)
	result, err := h.Handle(context.Background(), classFeedQuery(studentA))

	require.NoError(t, err)
	card := result.Cards[0]
	assert.False(t, card.RecoveredDraft)
	assert.Equal(t, string(feed.StatusSaved), card.Status)
}

func TestGetClassFeed_ViolationsSurfaceOnErrorCards(t *testing.T) {
	store := &fakeFeedStore{}
	cache := memory.NewDraftCache()

	// Recovered draft marks an absence without a reason.
	require.NoError(t, cache.Put(context.Background(), classKey(studentA), feed.Draft{Attendance: feed.AttendanceAbsent}))

	h := NewGetClassFeedHandler(store, &fakeTaxonomyReader{}, cache)
	result, err := h.Handle(context.Background(), classFeedQuery(studentA))

	require.NoError(t, err)
	card := result.Cards[0]
	assert.Equal(t, string(feed.StatusError), card.Status)
	require.NotEmpty(t, card.Violations)
	assert.Equal(t, "absence_reason", card.Violations[0].Field)
}

func TestGetClassFeed_RejectsEmptyRoster(t *testing.T) {
	h := NewGetClassFeedHandler(&fakeFeedStore{}, &fakeTaxonomyReader{}, memory.NewDraftCache())

	_, err := h.Handle(context.Background(), classFeedQuery())

	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
