package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/ticket"
)

type ticketFixture struct {
	repo       *fakeTicketRepo
	publisher  *capturingPublisher
	transition *TicketTransitionHandler
	schedule   *ScheduleTicketHandler
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()

	f := &ticketFixture{
		repo:      newFakeTicketRepo(),
		publisher: &capturingPublisher{},
	}
	f.transition = NewTicketTransitionHandler(f.repo, f.publisher, testLogger())
	f.schedule = NewScheduleTicketHandler(f.repo, f.publisher, testLogger())

	tk, err := ticket.NewTicket(ticket.NewTicketParams{
		ID:            ticketA,
		TenantID:      shared.TenantID(tenantA),
		StudentID:     shared.StudentID(studentA),
		ClassID:       shared.ClassID(classA),
		AbsenceDate:   shared.NewFeedDate(2026, 3, 9),
		AbsenceReason: taxonomy.ReasonSick,
	})
	require.NoError(t, err)
	require.NoError(t, f.repo.Create(context.Background(), tk))

	return f
}

func TestScheduleTicket_SetsDateAndTime(t *testing.T) {
	f := newTicketFixture(t)

	result, err := f.schedule.Handle(context.Background(), ScheduleTicketCommand{
		TenantID:      tenantA,
		TicketID:      ticketA,
		ScheduledDate: "2026-03-16",
		ScheduledTime: "16:30",
	})

	require.NoError(t, err)
	assert.Equal(t, ticket.StatusPending, result.From)
	assert.Equal(t, ticket.StatusScheduled, result.Status)

	stored, err := f.repo.GetByID(context.Background(), shared.TenantID(tenantA), ticketA)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-16", stored.ScheduledDate.String())
	assert.Equal(t, "16:30", stored.ScheduledTime.String())
	assert.Len(t, f.publisher.byType(shared.EventTicketScheduled), 1)
}

func TestScheduleTicket_TimeIsOptional(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.schedule.Handle(context.Background(), ScheduleTicketCommand{
		TenantID:      tenantA,
		TicketID:      ticketA,
		ScheduledDate: "2026-03-16",
	})

	require.NoError(t, err)

	stored, err := f.repo.GetByID(context.Background(), shared.TenantID(tenantA), ticketA)
	require.NoError(t, err)
	assert.False(t, stored.ScheduledTime.IsSet())
}

func TestScheduleTicket_RejectsMissingDate(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.schedule.Handle(context.Background(), ScheduleTicketCommand{
		TenantID: tenantA,
		TicketID: ticketA,
	})

	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestScheduleTicket_UnknownTicket(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.schedule.Handle(context.Background(), ScheduleTicketCommand{
		TenantID:      tenantA,
		TicketID:      "77777777-7777-7777-7777-777777777777",
		ScheduledDate: "2026-03-16",
	})

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCompleteTicket_RecordsNote(t *testing.T) {
	f := newTicketFixture(t)

	result, err := f.transition.HandleComplete(context.Background(), CompleteTicketCommand{
		TenantID: tenantA,
		TicketID: ticketA,
		Note:     "covered the missed unit",
	})

	require.NoError(t, err)
	assert.Equal(t, ticket.StatusCompleted, result.Status)

	stored, err := f.repo.GetByID(context.Background(), shared.TenantID(tenantA), ticketA)
	require.NoError(t, err)
	assert.Equal(t, "covered the missed unit", stored.CompletionNote)
	assert.Len(t, f.publisher.byType(shared.EventTicketCompleted), 1)
}

func TestCancelTicket_RequiresReason(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.transition.HandleCancel(context.Background(), CancelTicketCommand{
		TenantID: tenantA,
		TicketID: ticketA,
	})

	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	// The ticket is untouched.
	stored, gerr := f.repo.GetByID(context.Background(), shared.TenantID(tenantA), ticketA)
	require.NoError(t, gerr)
	assert.Equal(t, ticket.StatusPending, stored.Status)
}

func TestCancelTicket_FromScheduled(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.schedule.Handle(context.Background(), ScheduleTicketCommand{
		TenantID:      tenantA,
		TicketID:      ticketA,
		ScheduledDate: "2026-03-16",
	})
	require.NoError(t, err)

	result, err := f.transition.HandleCancel(context.Background(), CancelTicketCommand{
		TenantID: tenantA,
		TicketID: ticketA,
		Reason:   "family rescheduled the absence week",
	})

	require.NoError(t, err)
	assert.Equal(t, ticket.StatusScheduled, result.From)
	assert.Equal(t, ticket.StatusCancelled, result.Status)
	assert.Len(t, f.publisher.byType(shared.EventTicketCancelled), 1)
}

func TestCancelTicket_TerminalStateRejected(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.transition.HandleCancel(context.Background(), CancelTicketCommand{
		TenantID: tenantA,
		TicketID: ticketA,
		Reason:   "duplicate",
	})
	require.NoError(t, err)

	_, err = f.transition.HandleComplete(context.Background(), CompleteTicketCommand{
		TenantID: tenantA,
		TicketID: ticketA,
	})

	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestReopenTicket_UndoesCompletion(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.transition.HandleComplete(context.Background(), CompleteTicketCommand{
		TenantID: tenantA,
		TicketID: ticketA,
	})
	require.NoError(t, err)

	result, err := f.transition.HandleReopen(context.Background(), ReopenTicketCommand{
		TenantID: tenantA,
		TicketID: ticketA,
	})

	require.NoError(t, err)
	assert.Equal(t, ticket.StatusCompleted, result.From)
	assert.Equal(t, ticket.StatusPending, result.Status)
	assert.Len(t, f.publisher.byType(shared.EventTicketReopened), 1)
}

func TestReopenTicket_RejectedWhilePending(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.transition.HandleReopen(context.Background(), ReopenTicketCommand{
		TenantID: tenantA,
		TicketID: ticketA,
	})

	assert.ErrorIs(t, err, shared.ErrStateTransition)
}
