package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/ticket"
)

func TestListTickets_OpenAliasExpands(t *testing.T) {
	store := &fakeTicketStore{}

	pending := openTicket(ticketA, studentA, shared.NewFeedDate(2026, 3, 2))
	store.add(pending)

	completed := openTicket("88888888-8888-8888-8888-888888888888", studentA, shared.NewFeedDate(2026, 2, 16))
	require.NoError(t, completed.Complete("done"))
	store.add(completed)

	h := NewListTicketsHandler(store)
	result, err := h.Handle(context.Background(), ListTicketsQuery{
		TenantID: tenantA,
		Statuses: []string{"open"},
	})

	require.NoError(t, err)
	require.Len(t, result.Tickets, 1)
	assert.Equal(t, ticketA, result.Tickets[0].ID)
	assert.True(t, result.Tickets[0].IsOpen)
}

func TestListTickets_FiltersByStudentAndWindow(t *testing.T) {
	store := &fakeTicketStore{}
	store.add(openTicket(ticketA, studentA, shared.NewFeedDate(2026, 3, 2)))
	store.add(openTicket("88888888-8888-8888-8888-888888888888", studentB, shared.NewFeedDate(2026, 3, 3)))
	store.add(openTicket("77777777-7777-7777-7777-777777777777", studentA, shared.NewFeedDate(2026, 1, 15)))

	h := NewListTicketsHandler(store)
	result, err := h.Handle(context.Background(), ListTicketsQuery{
		TenantID:    tenantA,
		StudentID:   studentA,
		AbsenceFrom: "2026-03-01",
		AbsenceTo:   "2026-03-31",
	})

	require.NoError(t, err)
	require.Len(t, result.Tickets, 1)
	assert.Equal(t, ticketA, result.Tickets[0].ID)
}

func TestListTickets_ScheduledFieldsOmittedUntilSet(t *testing.T) {
	store := &fakeTicketStore{}
	store.add(openTicket(ticketA, studentA, shared.NewFeedDate(2026, 3, 2)))

	h := NewListTicketsHandler(store)
	result, err := h.Handle(context.Background(), ListTicketsQuery{TenantID: tenantA})

	require.NoError(t, err)
	require.Len(t, result.Tickets, 1)
	assert.Empty(t, result.Tickets[0].ScheduledDate)
	assert.Empty(t, result.Tickets[0].ScheduledTime)
}

func TestListTickets_RejectsHalfWindow(t *testing.T) {
	h := NewListTicketsHandler(&fakeTicketStore{})

	_, err := h.Handle(context.Background(), ListTicketsQuery{
		TenantID:    tenantA,
		AbsenceFrom: "2026-03-01",
	})

	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestListTickets_RejectsUnknownStatus(t *testing.T) {
	h := NewListTicketsHandler(&fakeTicketStore{})

	_, err := h.Handle(context.Background(), ListTicketsQuery{
		TenantID: tenantA,
		Statuses: []string{"archived"},
	})

	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestListTickets_StatusFilterMatchesEntityStates(t *testing.T) {
	store := &fakeTicketStore{}

	cancelled := openTicket(ticketA, studentA, shared.NewFeedDate(2026, 3, 2))
	require.NoError(t, cancelled.Cancel("left the academy"))
	store.add(cancelled)

	h := NewListTicketsHandler(store)
	result, err := h.Handle(context.Background(), ListTicketsQuery{
		TenantID: tenantA,
		Statuses: []string{string(ticket.StatusCancelled)},
	})

	require.NoError(t, err)
	require.Len(t, result.Tickets, 1)
	assert.Equal(t, "left the academy", result.Tickets[0].CancellationReason)
	assert.False(t, result.Tickets[0].IsOpen)
}
