package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
)

func newBulkHandler(f *saveFixture) *BulkSaveFeedHandler {
	return NewBulkSaveFeedHandler(f.handler, testLogger())
}

func TestBulkSave_EveryItemAccountedForOnce(t *testing.T) {
	f := newSaveFixture()
	h := newBulkHandler(f)

	cmd := BulkSaveFeedCommand{
		TenantID: tenantA,
		ClassID:  classA,
		Date:     "2026-03-09",
		Items: []BulkSaveItem{
			// Saves cleanly.
			{
				StudentID:        studentA,
				IdempotencyToken: tokenA,
				Draft:            feed.Draft{Attendance: feed.AttendancePresent},
			},
			// Rejected locally: absence without a reason.
			{
				StudentID:        studentB,
				IdempotencyToken: tokenB,
				Draft:            feed.Draft{Attendance: feed.AttendanceAbsent},
			},
		},
	}

	result, err := h.Handle(context.Background(), cmd)

	require.NoError(t, err)
	assert.Equal(t, 1, result.SavedCount)
	assert.Equal(t, 1, result.RejectedCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Equal(t, len(cmd.Items), result.SavedCount+result.RejectedCount+result.FailedCount)
	assert.Len(t, result.Items, 2)

	// Per-item outcomes stay in submission order.
	assert.Equal(t, studentA, result.Items[0].StudentID)
	assert.True(t, result.Items[0].Saved)
	assert.Equal(t, studentB, result.Items[1].StudentID)
	assert.NotEmpty(t, result.Items[1].Violations)
}

func TestBulkSave_StoreFailureCountsAsFailed(t *testing.T) {
	f := newSaveFixture()
	f.feedRepo.upsertErr = context.DeadlineExceeded
	h := newBulkHandler(f)

	cmd := BulkSaveFeedCommand{
		TenantID: tenantA,
		ClassID:  classA,
		Date:     "2026-03-09",
		Items: []BulkSaveItem{
			{
				StudentID:        studentA,
				IdempotencyToken: tokenA,
				Draft: feed.Draft{
					Attendance:    feed.AttendanceAbsent,
					AbsenceReason: taxonomy.ReasonSick,
				},
			},
		},
	}

	result, err := h.Handle(context.Background(), cmd)

	require.NoError(t, err)
	assert.Equal(t, 0, result.SavedCount)
	assert.Equal(t, 0, result.RejectedCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Error(t, result.Items[0].Err)
}

func TestBulkSave_RejectsEmptyItems(t *testing.T) {
	f := newSaveFixture()
	h := newBulkHandler(f)

	_, err := h.Handle(context.Background(), BulkSaveFeedCommand{
		TenantID: tenantA,
		ClassID:  classA,
		Date:     "2026-03-09",
	})

	assert.Error(t, err)
}

func TestBulkSave_IndependentSaves(t *testing.T) {
	f := newSaveFixture()
	h := newBulkHandler(f)

	cmd := BulkSaveFeedCommand{
		TenantID:    tenantA,
		ClassID:     classA,
		Date:        "2026-03-09",
		Concurrency: 2,
		Items: []BulkSaveItem{
			{
				StudentID:        studentA,
				IdempotencyToken: tokenA,
				Draft:            feed.Draft{Attendance: feed.AttendanceAbsent}, // rejected
			},
			{
				StudentID:        studentB,
				IdempotencyToken: tokenB,
				Draft:            feed.Draft{Attendance: feed.AttendancePresent},
			},
		},
	}

	result, err := h.Handle(context.Background(), cmd)

	require.NoError(t, err)
	// One classmate's rejection never blocks the other's save.
	assert.Equal(t, 1, result.SavedCount)
	assert.Equal(t, 1, result.RejectedCount)
}
