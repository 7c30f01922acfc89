package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/ticket"
	"github.com/academy-hub/attendance-feed-engine/pkg/logger"
	"github.com/academy-hub/attendance-feed-engine/pkg/optimistic"

	"github.com/google/uuid"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOGGLE NEEDS MAKEUP COMMAND
// Flips the per-record makeup override on a persisted absence record. The
// override wins over the tenant's per-reason default. The flip is applied
// optimistically and rolled back if persistence fails.
// ══════════════════════════════════════════════════════════════════════════════

// ToggleNeedsMakeupCommand flips the makeup override of a student's record.
type ToggleNeedsMakeupCommand struct {
	// TenantID is the owning academy.
	TenantID string `validate:"required,uuid"`

	// StudentID is the student the record belongs to.
	StudentID string `validate:"required,uuid"`

	// Date is the record's day in "YYYY-MM-DD" form.
	Date string `validate:"required,datetime=2006-01-02"`

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command structurally.
func (c ToggleNeedsMakeupCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return shared.WrapError("feed", "ToggleNeedsMakeup", shared.ErrInvalidInput, "malformed toggle command", err)
	}
	return nil
}

// ToggleNeedsMakeupResult contains the result of the toggle.
type ToggleNeedsMakeupResult struct {
	// RecordID is the toggled record.
	RecordID string

	// NeedsMakeup is the effective value after the toggle, with the override
	// applied on top of the tenant default.
	NeedsMakeup bool

	// CreatedTicketID is the makeup ticket opened by the toggle, if any.
	CreatedTicketID string

	// OpenTicketLeft is true when the toggle turned the makeup off but an open
	// ticket still exists. The ticket is surfaced, never auto-cancelled.
	OpenTicketLeft bool
}

// ToggleNeedsMakeupHandler handles the ToggleNeedsMakeupCommand.
type ToggleNeedsMakeupHandler struct {
	feedRepo       feed.Repository
	ticketRepo     ticket.Repository
	defaultsReader taxonomy.DefaultsReader
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewToggleNeedsMakeupHandler creates a new ToggleNeedsMakeupHandler.
func NewToggleNeedsMakeupHandler(
	feedRepo feed.Repository,
	ticketRepo ticket.Repository,
	defaultsReader taxonomy.DefaultsReader,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *ToggleNeedsMakeupHandler {
	return &ToggleNeedsMakeupHandler{
		feedRepo:       feedRepo,
		ticketRepo:     ticketRepo,
		defaultsReader: defaultsReader,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("toggle_needs_makeup")),
	}
}

// Handle executes the toggle.
func (h *ToggleNeedsMakeupHandler) Handle(ctx context.Context, cmd ToggleNeedsMakeupCommand) (*ToggleNeedsMakeupResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	tenantID, err := shared.NewTenantID(cmd.TenantID)
	if err != nil {
		return nil, err
	}
	studentID, err := shared.NewStudentID(cmd.StudentID)
	if err != nil {
		return nil, err
	}
	date, err := shared.ParseFeedDate(cmd.Date)
	if err != nil {
		return nil, err
	}

	rec, err := h.feedRepo.GetByStudentDate(ctx, tenantID, studentID, date)
	if err != nil {
		return nil, err
	}
	if !rec.IsAbsence() {
		return nil, shared.NewDomainError("feed", "ToggleNeedsMakeup", shared.ErrInvalidInput,
			"makeup override applies to absence records only")
	}

	defaults, err := h.defaultsReader.AbsenceDefaults(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("toggle_needs_makeup: failed to load absence defaults: %w", err)
	}

	// The new override is the negation of the current effective value.
	current := defaults.Resolve(rec.Values.AbsenceReason, rec.Values.NeedsMakeupOverride)
	next := !current

	err = optimistic.Update(ctx, &rec.Values.NeedsMakeupOverride, &next, func(ctx context.Context) error {
		if _, uerr := h.feedRepo.Upsert(ctx, rec); uerr != nil {
			return uerr
		}
		return nil
	})
	if err != nil {
		return nil, shared.WrapError("feed", "ToggleNeedsMakeup", shared.ErrPersistence, "failed to persist override", err)
	}

	result := &ToggleNeedsMakeupResult{RecordID: rec.ID, NeedsMakeup: next}
	if err := h.settle(ctx, rec, next, result); err != nil {
		return result, err
	}

	h.log.Info("makeup override toggled",
		logger.TenantID(tenantID.String()),
		logger.StudentID(studentID.String()),
		logger.FeedDate(date.String()),
		logger.String("needs_makeup", fmt.Sprintf("%t", next)),
	)

	return result, nil
}

// settle reconciles the ticket side of the toggle.
func (h *ToggleNeedsMakeupHandler) settle(ctx context.Context, rec *feed.FeedRecord, needsMakeup bool, result *ToggleNeedsMakeupResult) error {
	open, err := h.ticketRepo.FindOpenByAbsence(ctx, rec.TenantID, rec.StudentID, rec.Date)
	if err != nil && !shared.IsNotFound(err) {
		return fmt.Errorf("toggle_needs_makeup: failed to check open ticket: %w", err)
	}

	if !needsMakeup {
		if open != nil {
			result.OpenTicketLeft = true
		}
		return nil
	}

	if open != nil {
		result.CreatedTicketID = open.ID
		return nil
	}

	t, err := ticket.NewTicket(ticket.NewTicketParams{
		ID:            uuid.NewString(),
		TenantID:      rec.TenantID,
		StudentID:     rec.StudentID,
		ClassID:       rec.ClassID,
		AbsenceDate:   rec.Date,
		AbsenceReason: rec.Values.AbsenceReason,
	})
	if err != nil {
		return err
	}

	if err := h.ticketRepo.Create(ctx, t); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			if won, ferr := h.ticketRepo.FindOpenByAbsence(ctx, rec.TenantID, rec.StudentID, rec.Date); ferr == nil {
				result.CreatedTicketID = won.ID
			}
			return nil
		}
		return fmt.Errorf("toggle_needs_makeup: failed to create ticket: %w", err)
	}

	result.CreatedTicketID = t.ID

	event := ticket.NewLifecycleEvent(shared.EventTicketCreated, t, "", "")
	if err := h.eventPublisher.Publish(ctx, event); err != nil {
		h.log.Warn("failed to publish ticket created event", logger.Err(err))
	}

	return nil
}
