package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
)

func TestMonthlyAbsences_CountsMonthToDate(t *testing.T) {
	store := &fakeFeedStore{}
	// Two absences inside the window, one after AsOf, one in the prior month.
	store.add(absenceRecord("rec-1", studentA, shared.NewFeedDate(2026, 3, 2), taxonomy.ReasonSick))
	store.add(absenceRecord("rec-2", studentA, shared.NewFeedDate(2026, 3, 9), taxonomy.ReasonFamily))
	store.add(absenceRecord("rec-3", studentA, shared.NewFeedDate(2026, 3, 20), taxonomy.ReasonSick))
	store.add(absenceRecord("rec-4", studentA, shared.NewFeedDate(2026, 2, 27), taxonomy.ReasonSick))

	h := NewMonthlyAbsencesHandler(store)
	result, err := h.Handle(context.Background(), MonthlyAbsencesQuery{
		TenantID:  tenantA,
		StudentID: studentA,
		AsOf:      "2026-03-10",
	})

	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", result.From)
	assert.Equal(t, "2026-03-10", result.To)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, DefaultAbsenceThreshold, result.Threshold)
	assert.False(t, result.ThresholdReached)
}

func TestMonthlyAbsences_IgnoresOtherStudentsAndPresences(t *testing.T) {
	store := &fakeFeedStore{}
	store.add(absenceRecord("rec-1", studentA, shared.NewFeedDate(2026, 3, 2), taxonomy.ReasonSick))
	store.add(absenceRecord("rec-2", studentB, shared.NewFeedDate(2026, 3, 3), taxonomy.ReasonSick))
	store.add(presenceRecord("rec-3", studentA, shared.NewFeedDate(2026, 3, 4)))

	h := NewMonthlyAbsencesHandler(store)
	result, err := h.Handle(context.Background(), MonthlyAbsencesQuery{
		TenantID:  tenantA,
		StudentID: studentA,
		AsOf:      "2026-03-31",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Count)
}

func TestMonthlyAbsences_ThresholdReached(t *testing.T) {
	store := &fakeFeedStore{}
	for day := 2; day <= 5; day++ {
		store.add(absenceRecord(fmt.Sprintf("rec-%d", day), studentA, shared.NewFeedDate(2026, 3, day), taxonomy.ReasonSick))
	}

	h := NewMonthlyAbsencesHandler(store)
	result, err := h.Handle(context.Background(), MonthlyAbsencesQuery{
		TenantID:  tenantA,
		StudentID: studentA,
		AsOf:      "2026-03-10",
	})

	require.NoError(t, err)
	assert.Equal(t, 4, result.Count)
	assert.True(t, result.ThresholdReached)
}

func TestMonthlyAbsences_CustomThreshold(t *testing.T) {
	store := &fakeFeedStore{}
	store.add(absenceRecord("rec-1", studentA, shared.NewFeedDate(2026, 3, 2), taxonomy.ReasonSick))
	store.add(absenceRecord("rec-2", studentA, shared.NewFeedDate(2026, 3, 3), taxonomy.ReasonSick))

	h := NewMonthlyAbsencesHandler(store)
	result, err := h.Handle(context.Background(), MonthlyAbsencesQuery{
		TenantID:  tenantA,
		StudentID: studentA,
		AsOf:      "2026-03-10",
		Threshold: 2,
	})

	require.NoError(t, err)
	assert.True(t, result.ThresholdReached)
}

func TestMonthlyAbsences_RejectsMissingParameters(t *testing.T) {
	h := NewMonthlyAbsencesHandler(&fakeFeedStore{})

	_, err := h.Handle(context.Background(), MonthlyAbsencesQuery{StudentID: studentA})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = h.Handle(context.Background(), MonthlyAbsencesQuery{TenantID: tenantA})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
