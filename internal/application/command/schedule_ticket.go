package command

import (
	"context"
	"fmt"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/ticket"
	"github.com/academy-hub/attendance-feed-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE TICKET COMMAND
// Sets or moves the makeup session date of an open ticket.
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleTicketCommand contains the data needed to schedule a makeup session.
type ScheduleTicketCommand struct {
	// TenantID is the owning academy.
	TenantID string `validate:"required,uuid"`

	// TicketID is the ticket to schedule.
	TicketID string `validate:"required,uuid"`

	// ScheduledDate is the makeup session day in "YYYY-MM-DD" form.
	ScheduledDate string `validate:"required,datetime=2006-01-02"`

	// ScheduledTime is an optional "HH:MM" session time.
	ScheduledTime string `validate:"omitempty,datetime=15:04"`

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command structurally.
func (c ScheduleTicketCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return shared.WrapError("ticket", "Schedule", shared.ErrInvalidInput, "malformed schedule command", err)
	}
	return nil
}

// ScheduleTicketResult contains the result of scheduling.
type ScheduleTicketResult struct {
	// TicketID is the scheduled ticket.
	TicketID string

	// From is the status before the transition.
	From ticket.Status

	// Status is the status after the transition (always scheduled).
	Status ticket.Status
}

// ScheduleTicketHandler handles the ScheduleTicketCommand.
type ScheduleTicketHandler struct {
	ticketRepo     ticket.Repository
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewScheduleTicketHandler creates a new ScheduleTicketHandler.
func NewScheduleTicketHandler(ticketRepo ticket.Repository, eventPublisher shared.EventPublisher, log *logger.Logger) *ScheduleTicketHandler {
	return &ScheduleTicketHandler{
		ticketRepo:     ticketRepo,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("schedule_ticket")),
	}
}

// Handle executes the schedule command.
func (h *ScheduleTicketHandler) Handle(ctx context.Context, cmd ScheduleTicketCommand) (*ScheduleTicketResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	tenantID, err := shared.NewTenantID(cmd.TenantID)
	if err != nil {
		return nil, err
	}
	date, err := shared.ParseFeedDate(cmd.ScheduledDate)
	if err != nil {
		return nil, err
	}
	var timeOfDay shared.TimeOfDay
	if cmd.ScheduledTime != "" {
		timeOfDay, err = shared.ParseTimeOfDay(cmd.ScheduledTime)
		if err != nil {
			return nil, err
		}
	}

	t, err := h.ticketRepo.GetByID(ctx, tenantID, cmd.TicketID)
	if err != nil {
		return nil, err
	}

	from := t.Status
	if err := t.Schedule(date, timeOfDay); err != nil {
		return nil, err
	}

	if err := h.ticketRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("schedule_ticket: failed to persist transition: %w", err)
	}

	event := ticket.NewLifecycleEvent(shared.EventTicketScheduled, t, from, cmd.CorrelationID)
	if err := h.eventPublisher.Publish(ctx, event); err != nil {
		h.log.Warn("failed to publish scheduled event", logger.Err(err))
	}

	h.log.Info("ticket scheduled",
		logger.TicketID(t.ID),
		logger.String("scheduled_date", date.String()),
	)

	return &ScheduleTicketResult{TicketID: t.ID, From: from, Status: t.Status}, nil
}
