package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
)

func TestListAbsences_NewestFirstInWindow(t *testing.T) {
	store := &fakeFeedStore{}
	store.add(absenceRecord("rec-1", studentA, shared.NewFeedDate(2026, 3, 2), taxonomy.ReasonSick))
	store.add(absenceRecord("rec-2", studentB, shared.NewFeedDate(2026, 3, 9), taxonomy.ReasonFamily))
	store.add(absenceRecord("rec-3", studentA, shared.NewFeedDate(2026, 2, 10), taxonomy.ReasonSick))
	store.add(presenceRecord("rec-4", studentB, shared.NewFeedDate(2026, 3, 5)))

	h := NewListAbsencesHandler(store, &fakeTicketStore{})
	result, err := h.Handle(context.Background(), ListAbsencesQuery{
		TenantID: tenantA,
		From:     "2026-03-01",
		To:       "2026-03-31",
	})

	require.NoError(t, err)
	require.Len(t, result.Absences, 2)
	assert.Equal(t, "rec-2", result.Absences[0].RecordID)
	assert.Equal(t, "rec-1", result.Absences[1].RecordID)
	assert.Equal(t, "sick", result.Absences[1].AbsenceReason)
}

func TestListAbsences_AnnotatesOpenTickets(t *testing.T) {
	store := &fakeFeedStore{}
	store.add(absenceRecord("rec-1", studentA, shared.NewFeedDate(2026, 3, 2), taxonomy.ReasonSick))
	store.add(absenceRecord("rec-2", studentB, shared.NewFeedDate(2026, 3, 9), taxonomy.ReasonTravel))

	tickets := &fakeTicketStore{}
	tickets.add(openTicket(ticketA, studentA, shared.NewFeedDate(2026, 3, 2)))

	h := NewListAbsencesHandler(store, tickets)
	result, err := h.Handle(context.Background(), ListAbsencesQuery{
		TenantID:       tenantA,
		From:           "2026-03-01",
		To:             "2026-03-31",
		IncludeTickets: true,
	})

	require.NoError(t, err)
	require.Len(t, result.Absences, 2)

	var withTicket, withoutTicket *AbsenceDTO
	for i := range result.Absences {
		if result.Absences[i].RecordID == "rec-1" {
			withTicket = &result.Absences[i]
		} else {
			withoutTicket = &result.Absences[i]
		}
	}
	require.NotNil(t, withTicket.Ticket)
	assert.Equal(t, ticketA, withTicket.Ticket.ID)
	assert.Nil(t, withoutTicket.Ticket)
}

func TestListAbsences_TicketsSkippedUnlessRequested(t *testing.T) {
	store := &fakeFeedStore{}
	store.add(absenceRecord("rec-1", studentA, shared.NewFeedDate(2026, 3, 2), taxonomy.ReasonSick))

	tickets := &fakeTicketStore{}
	tickets.add(openTicket(ticketA, studentA, shared.NewFeedDate(2026, 3, 2)))

	h := NewListAbsencesHandler(store, tickets)
	result, err := h.Handle(context.Background(), ListAbsencesQuery{
		TenantID: tenantA,
		From:     "2026-03-01",
		To:       "2026-03-31",
	})

	require.NoError(t, err)
	assert.Nil(t, result.Absences[0].Ticket)
}

func TestListAbsences_RequiresWindow(t *testing.T) {
	h := NewListAbsencesHandler(&fakeFeedStore{}, &fakeTicketStore{})

	_, err := h.Handle(context.Background(), ListAbsencesQuery{TenantID: tenantA, From: "2026-03-01"})

	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
