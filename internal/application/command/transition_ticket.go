package command

import (
	"context"
	"fmt"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/ticket"
	"github.com/academy-hub/attendance-feed-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TICKET TRANSITION COMMANDS
// Complete, cancel and reopen. Each transition is validated by the entity;
// the handlers only load, apply, persist and publish.
// ══════════════════════════════════════════════════════════════════════════════

// TicketTransitionResult is the shared result of a lifecycle transition.
type TicketTransitionResult struct {
	// TicketID is the transitioned ticket.
	TicketID string

	// From is the status before the transition.
	From ticket.Status

	// Status is the status after the transition.
	Status ticket.Status
}

// TicketTransitionHandler executes complete, cancel and reopen transitions.
type TicketTransitionHandler struct {
	ticketRepo     ticket.Repository
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewTicketTransitionHandler creates a new TicketTransitionHandler.
func NewTicketTransitionHandler(ticketRepo ticket.Repository, eventPublisher shared.EventPublisher, log *logger.Logger) *TicketTransitionHandler {
	return &TicketTransitionHandler{
		ticketRepo:     ticketRepo,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("ticket_transition")),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Complete
// ─────────────────────────────────────────────────────────────────────────────

// CompleteTicketCommand marks a makeup session as delivered manually, without
// going through a makeup feed record.
type CompleteTicketCommand struct {
	// TenantID is the owning academy.
	TenantID string `validate:"required,uuid"`

	// TicketID is the ticket to complete.
	TicketID string `validate:"required,uuid"`

	// Note is an optional completion note.
	Note string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command structurally.
func (c CompleteTicketCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return shared.WrapError("ticket", "Complete", shared.ErrInvalidInput, "malformed complete command", err)
	}
	return nil
}

// HandleComplete executes the complete command.
func (h *TicketTransitionHandler) HandleComplete(ctx context.Context, cmd CompleteTicketCommand) (*TicketTransitionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	return h.transition(ctx, cmd.TenantID, cmd.TicketID, shared.EventTicketCompleted, cmd.CorrelationID,
		func(t *ticket.MakeupTicket) error {
			return t.Complete(cmd.Note)
		})
}

// ─────────────────────────────────────────────────────────────────────────────
// Cancel
// ─────────────────────────────────────────────────────────────────────────────

// CancelTicketCommand drops the makeup obligation. A reason is mandatory.
type CancelTicketCommand struct {
	// TenantID is the owning academy.
	TenantID string `validate:"required,uuid"`

	// TicketID is the ticket to cancel.
	TicketID string `validate:"required,uuid"`

	// Reason explains why the obligation is dropped.
	Reason string `validate:"required"`

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command structurally.
func (c CancelTicketCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return shared.WrapError("ticket", "Cancel", shared.ErrInvalidInput, "malformed cancel command", err)
	}
	return nil
}

// HandleCancel executes the cancel command.
func (h *TicketTransitionHandler) HandleCancel(ctx context.Context, cmd CancelTicketCommand) (*TicketTransitionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	return h.transition(ctx, cmd.TenantID, cmd.TicketID, shared.EventTicketCancelled, cmd.CorrelationID,
		func(t *ticket.MakeupTicket) error {
			return t.Cancel(cmd.Reason)
		})
}

// ─────────────────────────────────────────────────────────────────────────────
// Reopen
// ─────────────────────────────────────────────────────────────────────────────

// ReopenTicketCommand returns a completed ticket to pending, the undo for a
// completion recorded by mistake.
type ReopenTicketCommand struct {
	// TenantID is the owning academy.
	TenantID string `validate:"required,uuid"`

	// TicketID is the ticket to reopen.
	TicketID string `validate:"required,uuid"`

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command structurally.
func (c ReopenTicketCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return shared.WrapError("ticket", "Reopen", shared.ErrInvalidInput, "malformed reopen command", err)
	}
	return nil
}

// HandleReopen executes the reopen command. The store's open-ticket index
// still applies: reopening fails if another open ticket for the same absence
// has appeared in the meantime.
func (h *TicketTransitionHandler) HandleReopen(ctx context.Context, cmd ReopenTicketCommand) (*TicketTransitionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	return h.transition(ctx, cmd.TenantID, cmd.TicketID, shared.EventTicketReopened, cmd.CorrelationID,
		func(t *ticket.MakeupTicket) error {
			return t.Reopen()
		})
}

// ─────────────────────────────────────────────────────────────────────────────
// Shared transition plumbing
// ─────────────────────────────────────────────────────────────────────────────

func (h *TicketTransitionHandler) transition(
	ctx context.Context,
	tenantIDRaw, ticketID string,
	eventType shared.EventType,
	correlationID string,
	apply func(*ticket.MakeupTicket) error,
) (*TicketTransitionResult, error) {
	tenantID, err := shared.NewTenantID(tenantIDRaw)
	if err != nil {
		return nil, err
	}

	t, err := h.ticketRepo.GetByID(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}

	from := t.Status
	if err := apply(t); err != nil {
		return nil, err
	}

	if err := h.ticketRepo.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("ticket_transition: failed to persist transition: %w", err)
	}

	event := ticket.NewLifecycleEvent(eventType, t, from, correlationID)
	if err := h.eventPublisher.Publish(ctx, event); err != nil {
		h.log.Warn("failed to publish transition event", logger.Err(err))
	}

	h.log.Info("ticket transitioned",
		logger.TicketID(t.ID),
		logger.String("from", from.String()),
		logger.String("to", t.Status.String()),
	)

	return &TicketTransitionResult{TicketID: t.ID, From: from, Status: t.Status}, nil
}
