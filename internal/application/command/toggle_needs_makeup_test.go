package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
)

func newToggleHandler(f *saveFixture) *ToggleNeedsMakeupHandler {
	return NewToggleNeedsMakeupHandler(f.feedRepo, f.ticketRepo, f.taxonomy, f.publisher, testLogger())
}

func toggleCommand() ToggleNeedsMakeupCommand {
	return ToggleNeedsMakeupCommand{
		TenantID:  tenantA,
		StudentID: studentA,
		Date:      "2026-03-09",
	}
}

func TestToggle_OffLeavesOpenTicket(t *testing.T) {
	f := newSaveFixture()

	// Sick absence: makeup by default, ticket open.
	saved, err := f.handler.Handle(context.Background(), absenceCommand(tokenA))
	require.NoError(t, err)
	require.NotEmpty(t, saved.CreatedTicketID)

	h := newToggleHandler(f)
	result, err := h.Handle(context.Background(), toggleCommand())

	require.NoError(t, err)
	assert.False(t, result.NeedsMakeup)
	assert.True(t, result.OpenTicketLeft)

	// The ticket is surfaced, never cancelled by the toggle.
	open, err := f.ticketRepo.GetByID(context.Background(), shared.TenantID(tenantA), saved.CreatedTicketID)
	require.NoError(t, err)
	assert.True(t, open.Status.IsOpen())

	// The override is persisted on the record.
	rec, err := f.feedRepo.GetByStudentDate(context.Background(),
		shared.TenantID(tenantA), shared.StudentID(studentA), shared.NewFeedDate(2026, 3, 9))
	require.NoError(t, err)
	require.NotNil(t, rec.Values.NeedsMakeupOverride)
	assert.False(t, *rec.Values.NeedsMakeupOverride)
}

func TestToggle_OnOpensTicket(t *testing.T) {
	f := newSaveFixture()

	// Travel absence: no makeup by default, no ticket.
	cmd := absenceCommand(tokenA)
	cmd.Draft.AbsenceReason = taxonomy.ReasonTravel
	saved, err := f.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.Empty(t, saved.CreatedTicketID)

	h := newToggleHandler(f)
	result, err := h.Handle(context.Background(), toggleCommand())

	require.NoError(t, err)
	assert.True(t, result.NeedsMakeup)
	assert.NotEmpty(t, result.CreatedTicketID)
	assert.Len(t, f.publisher.byType(shared.EventTicketCreated), 1)
}

func TestToggle_TwiceReusesOpenTicket(t *testing.T) {
	f := newSaveFixture()

	cmd := absenceCommand(tokenA)
	cmd.Draft.AbsenceReason = taxonomy.ReasonTravel
	_, err := f.handler.Handle(context.Background(), cmd)
	require.NoError(t, err)

	h := newToggleHandler(f)

	on, err := h.Handle(context.Background(), toggleCommand())
	require.NoError(t, err)
	require.NotEmpty(t, on.CreatedTicketID)

	off, err := h.Handle(context.Background(), toggleCommand())
	require.NoError(t, err)
	assert.False(t, off.NeedsMakeup)
	assert.True(t, off.OpenTicketLeft)

	// Back on: the still-open ticket is reused, not duplicated.
	onAgain, err := h.Handle(context.Background(), toggleCommand())
	require.NoError(t, err)
	assert.Equal(t, on.CreatedTicketID, onAgain.CreatedTicketID)
	assert.Len(t, f.publisher.byType(shared.EventTicketCreated), 1)
}

func TestToggle_RejectsNonAbsenceRecord(t *testing.T) {
	f := newSaveFixture()

	presence := absenceCommand(tokenA)
	presence.Draft.Attendance = "present"
	presence.Draft.AbsenceReason = ""
	_, err := f.handler.Handle(context.Background(), presence)
	require.NoError(t, err)

	h := newToggleHandler(f)
	_, err = h.Handle(context.Background(), toggleCommand())

	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestToggle_UnknownRecord(t *testing.T) {
	f := newSaveFixture()
	h := newToggleHandler(f)

	_, err := h.Handle(context.Background(), toggleCommand())

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestToggle_RollsBackOnPersistFailure(t *testing.T) {
	f := newSaveFixture()

	_, err := f.handler.Handle(context.Background(), absenceCommand(tokenA))
	require.NoError(t, err)

	f.feedRepo.upsertErr = shared.ErrStoreUnavailable

	h := newToggleHandler(f)
	_, err = h.Handle(context.Background(), toggleCommand())

	assert.ErrorIs(t, err, shared.ErrPersistence)

	// The stored record kept its original override (none).
	f.feedRepo.upsertErr = nil
	rec, err := f.feedRepo.GetByStudentDate(context.Background(),
		shared.TenantID(tenantA), shared.StudentID(studentA), shared.NewFeedDate(2026, 3, 9))
	require.NoError(t, err)
	assert.Nil(t, rec.Values.NeedsMakeupOverride)
}
