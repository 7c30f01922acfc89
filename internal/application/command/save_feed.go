// Package command contains write operations (CQRS - Commands).
// Commands are responsible for changing the state of the system. The save
// path is the only place feed records and makeup tickets are mutated.
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/ticket"
	"github.com/academy-hub/attendance-feed-engine/pkg/circuitbreaker"
	"github.com/academy-hub/attendance-feed-engine/pkg/logger"
	"github.com/academy-hub/attendance-feed-engine/pkg/retry"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// validate checks the structural shape of incoming commands before any value
// objects are built from them.
var validate = validator.New()

// ══════════════════════════════════════════════════════════════════════════════
// SAVE FEED COMMAND
// One explicit save of one card. Validation runs before any I/O; the durable
// store is only reached with a payload that already passed every rule.
// ══════════════════════════════════════════════════════════════════════════════

// SaveFeedCommand contains the data needed to save a feed record.
type SaveFeedCommand struct {
	// TenantID is the owning academy.
	TenantID string `validate:"required,uuid"`

	// StudentID is the student the record belongs to.
	StudentID string `validate:"required,uuid"`

	// ClassID is the class the session belongs to.
	ClassID string `validate:"required,uuid"`

	// Date is the session day in "YYYY-MM-DD" form.
	Date string `validate:"required,datetime=2006-01-02"`

	// IdempotencyToken makes a retried submission apply at most once.
	IdempotencyToken string `validate:"required,uuid"`

	// Draft is the full field payload to persist.
	Draft feed.Draft

	// CorrelationID for tracing across services.
	CorrelationID string
}

// Validate validates the command structurally.
func (c SaveFeedCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return shared.WrapError("feed", "SaveFeed", shared.ErrInvalidInput, "malformed save command", err)
	}
	return nil
}

// SaveFeedResult contains the result of a save.
type SaveFeedResult struct {
	// RecordID is the persisted record's ID.
	RecordID string

	// Status is the card status after the save (saved on success).
	Status feed.CardStatus

	// Violations carries the failed rules when the save was rejected locally.
	Violations []feed.RuleViolation

	// Deduplicated is true when the token matched the already persisted state
	// and the submission was acknowledged without writing the record again.
	// Ticket settlement still runs and its outcome is reported as usual.
	Deduplicated bool

	// CreatedTicketID is the makeup ticket opened by this absence, if any.
	CreatedTicketID string

	// CompletedTicketID is the makeup ticket settled by this session, if any.
	CompletedTicketID string

	// OpenTicketLeft is true when the record no longer earns a makeup but an
	// open ticket for the same absence day still exists. The ticket is left
	// for a human decision, never silently cancelled.
	OpenTicketLeft bool

	// SavedAt is when the record was persisted.
	SavedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SaveFeedHandler handles the SaveFeedCommand.
type SaveFeedHandler struct {
	feedRepo       feed.Repository
	ticketRepo     ticket.Repository
	taxonomyReader taxonomy.Reader
	defaultsReader taxonomy.DefaultsReader
	draftCache     feed.DraftCache
	eventPublisher shared.EventPublisher
	retrier        *retry.Retrier
	breaker        *circuitbreaker.CircuitBreaker
	log            *logger.Logger
}

// NewSaveFeedHandler creates a new SaveFeedHandler.
func NewSaveFeedHandler(
	feedRepo feed.Repository,
	ticketRepo ticket.Repository,
	taxonomyReader taxonomy.Reader,
	defaultsReader taxonomy.DefaultsReader,
	draftCache feed.DraftCache,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *SaveFeedHandler {
	return &SaveFeedHandler{
		feedRepo:       feedRepo,
		ticketRepo:     ticketRepo,
		taxonomyReader: taxonomyReader,
		defaultsReader: defaultsReader,
		draftCache:     draftCache,
		eventPublisher: eventPublisher,
		retrier:        retry.StoreRetrier(),
		breaker:        circuitbreaker.StoreBreaker(nil),
		log:            log.With(logger.Component("save_feed")),
	}
}

// Handle executes the save. The sequence is fixed: validate locally, check
// idempotency, persist the record, settle ticket side effects, clear the
// cached draft, publish events. A failure before persistence leaves no trace.
func (h *SaveFeedHandler) Handle(ctx context.Context, cmd SaveFeedCommand) (*SaveFeedResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	key, token, err := h.parseKey(cmd)
	if err != nil {
		return nil, err
	}

	log := h.log.With(
		logger.TenantID(key.TenantID.String()),
		logger.StudentID(key.StudentID.String()),
		logger.FeedDate(key.Date.String()),
		logger.Token(token.String()),
	)

	// Domain validation against the tenant's taxonomy. A draft that fails here
	// never reaches the store.
	cfg, err := h.validationConfig(ctx, key.TenantID)
	if err != nil {
		return nil, err
	}
	if violations := feed.Validate(cmd.Draft, cfg); len(violations) > 0 {
		log.Warn("save rejected by validation", logger.Int("violations", len(violations)))
		return &SaveFeedResult{Status: feed.StatusError, Violations: violations}, shared.ErrCardInvalid
	}

	// Idempotency: a token already recorded on the live row means this exact
	// submission was persisted before, so the upsert is skipped. Ticket
	// settlement still runs: it reuses an open ticket and treats a completed
	// one as completed, so nothing is applied twice, and a retry after the
	// first attempt failed between persist and settlement still delivers the
	// ticket that attempt owed.
	existing, err := h.feedRepo.GetByStudentDate(ctx, key.TenantID, key.StudentID, key.Date)
	if err != nil && !shared.IsNotFound(err) {
		return nil, fmt.Errorf("save_feed: failed to check existing record: %w", err)
	}
	if existing != nil && existing.SaveToken == token {
		log.Info("duplicate submission acknowledged", logger.RecordID(existing.ID))
		result := &SaveFeedResult{
			RecordID:     existing.ID,
			Status:       feed.StatusSaved,
			Deduplicated: true,
			SavedAt:      existing.UpdatedAt,
		}
		if err := h.settleTickets(ctx, existing, result); err != nil {
			log.Error("ticket side effect failed", logger.RecordID(existing.ID), logger.Err(err))
			return result, err
		}
		return result, nil
	}

	rec, err := h.buildRecord(key, cmd.Draft, token, existing)
	if err != nil {
		return nil, err
	}

	recordID, err := h.persist(ctx, rec)
	if err != nil {
		log.Error("save failed", logger.Err(err))
		return nil, err
	}
	rec.ID = recordID

	result := &SaveFeedResult{
		RecordID: recordID,
		Status:   feed.StatusSaved,
		SavedAt:  rec.UpdatedAt,
	}

	if err := h.settleTickets(ctx, rec, result); err != nil {
		// The record is already durable; ticket bookkeeping failures are
		// reported but do not undo the save.
		log.Error("ticket side effect failed", logger.RecordID(recordID), logger.Err(err))
		return result, err
	}

	// The persisted state supersedes any cached draft.
	if err := h.draftCache.Remove(ctx, key); err != nil {
		log.Warn("failed to clear cached draft", logger.Err(err))
	}

	h.publishEvents(ctx, rec, cmd.CorrelationID)

	log.Info("feed record saved",
		logger.RecordID(recordID),
		logger.String("attendance", string(rec.Values.Attendance)),
	)

	return result, nil
}

// parseKey builds the record key and token from the raw command fields.
func (h *SaveFeedHandler) parseKey(cmd SaveFeedCommand) (feed.Key, shared.IdempotencyToken, error) {
	tenantID, err := shared.NewTenantID(cmd.TenantID)
	if err != nil {
		return feed.Key{}, "", err
	}
	studentID, err := shared.NewStudentID(cmd.StudentID)
	if err != nil {
		return feed.Key{}, "", err
	}
	classID, err := shared.NewClassID(cmd.ClassID)
	if err != nil {
		return feed.Key{}, "", err
	}
	date, err := shared.ParseFeedDate(cmd.Date)
	if err != nil {
		return feed.Key{}, "", err
	}
	token, err := shared.NewIdempotencyToken(cmd.IdempotencyToken)
	if err != nil {
		return feed.Key{}, "", err
	}

	return feed.Key{TenantID: tenantID, StudentID: studentID, ClassID: classID, Date: date}, token, nil
}

// validationConfig loads the tenant's mode and option sets.
func (h *SaveFeedHandler) validationConfig(ctx context.Context, tenantID shared.TenantID) (feed.ValidationConfig, error) {
	mode, err := h.taxonomyReader.OperationMode(ctx, tenantID)
	if err != nil {
		return feed.ValidationConfig{}, fmt.Errorf("save_feed: failed to load operation mode: %w", err)
	}
	sets, err := h.taxonomyReader.OptionSets(ctx, tenantID)
	if err != nil {
		return feed.ValidationConfig{}, fmt.Errorf("save_feed: failed to load option sets: %w", err)
	}
	return feed.ValidationConfig{Mode: mode, OptionSets: sets}, nil
}

// buildRecord constructs the record to persist, carrying forward identity and
// creation time from an existing live record.
func (h *SaveFeedHandler) buildRecord(key feed.Key, draft feed.Draft, token shared.IdempotencyToken, existing *feed.FeedRecord) (*feed.FeedRecord, error) {
	id := uuid.NewString()
	if existing != nil {
		id = existing.ID
	}

	rec, err := feed.NewFeedRecord(id, key, draft, token)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		rec.CreatedAt = existing.CreatedAt
	}
	return rec, nil
}

// persist submits the upsert through the circuit breaker and retrier.
func (h *SaveFeedHandler) persist(ctx context.Context, rec *feed.FeedRecord) (string, error) {
	var recordID string

	err := h.breaker.Execute(ctx, func(ctx context.Context) error {
		return h.retrier.Do(ctx, func(ctx context.Context) error {
			id, err := h.feedRepo.Upsert(ctx, rec)
			if err != nil {
				if ctx.Err() != nil {
					return retry.Permanent(err)
				}
				return retry.Retryable(err)
			}
			recordID = id
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return "", shared.WrapError("feed", "SaveFeed", shared.ErrStoreUnavailable, "record store unavailable", err)
		}
		return "", shared.WrapError("feed", "SaveFeed", shared.ErrPersistence, "failed to persist record", err)
	}

	return recordID, nil
}

// settleTickets applies the makeup-ticket side effects of a save.
func (h *SaveFeedHandler) settleTickets(ctx context.Context, rec *feed.FeedRecord, result *SaveFeedResult) error {
	if rec.IsAbsence() {
		return h.settleAbsence(ctx, rec, result)
	}

	// Attended. A makeup session referencing a ticket settles it.
	if rec.Values.IsMakeup && rec.Values.MakeupTicketID != "" {
		if err := h.completeTicket(ctx, rec, result); err != nil {
			return err
		}
	}

	// If the day was previously recorded as an absence, an open ticket keyed
	// to it may remain. It stays open and is surfaced, never auto-cancelled.
	open, err := h.ticketRepo.FindOpenByAbsence(ctx, rec.TenantID, rec.StudentID, rec.Date)
	if err != nil && !shared.IsNotFound(err) {
		return fmt.Errorf("save_feed: failed to check open ticket: %w", err)
	}
	if open != nil {
		result.OpenTicketLeft = true
	}

	return nil
}

// settleAbsence opens a makeup ticket when the tenant's defaults (or the
// record's override) say the absence earns one.
func (h *SaveFeedHandler) settleAbsence(ctx context.Context, rec *feed.FeedRecord, result *SaveFeedResult) error {
	defaults, err := h.defaultsReader.AbsenceDefaults(ctx, rec.TenantID)
	if err != nil {
		return fmt.Errorf("save_feed: failed to load absence defaults: %w", err)
	}

	needsMakeup := defaults.Resolve(rec.Values.AbsenceReason, rec.Values.NeedsMakeupOverride)

	open, err := h.ticketRepo.FindOpenByAbsence(ctx, rec.TenantID, rec.StudentID, rec.Date)
	if err != nil && !shared.IsNotFound(err) {
		return fmt.Errorf("save_feed: failed to check open ticket: %w", err)
	}

	if !needsMakeup {
		if open != nil {
			result.OpenTicketLeft = true
		}
		return nil
	}

	// At most one open ticket per (student, absence date). An existing one is
	// reused untouched.
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
		// A concurrent save won the race; the invariant held either way.
		if errors.Is(err, shared.ErrAlreadyExists) {
			if won, ferr := h.ticketRepo.FindOpenByAbsence(ctx, rec.TenantID, rec.StudentID, rec.Date); ferr == nil {
				result.CreatedTicketID = won.ID
			}
			return nil
		}
		return fmt.Errorf("save_feed: failed to create ticket: %w", err)
	}

	result.CreatedTicketID = t.ID

	event := ticket.NewLifecycleEvent(shared.EventTicketCreated, t, "", "")
	if err := h.eventPublisher.Publish(ctx, event); err != nil {
		h.log.Warn("failed to publish ticket created event", logger.Err(err))
	}

	return nil
}

// completeTicket settles the ticket referenced by a makeup session.
func (h *SaveFeedHandler) completeTicket(ctx context.Context, rec *feed.FeedRecord, result *SaveFeedResult) error {
	t, err := h.ticketRepo.GetByID(ctx, rec.TenantID, rec.Values.MakeupTicketID)
	if err != nil {
		return fmt.Errorf("save_feed: referenced ticket not found: %w", err)
	}

	// Already settled is fine: re-saving the makeup session is idempotent.
	if t.Status == ticket.StatusCompleted {
		result.CompletedTicketID = t.ID
		return nil
	}

	from := t.Status
	if err := t.Complete("settled by makeup session on " + rec.Date.String()); err != nil {
		return err
	}
	if err := h.ticketRepo.Update(ctx, t); err != nil {
		return fmt.Errorf("save_feed: failed to complete ticket: %w", err)
	}

	result.CompletedTicketID = t.ID

	event := ticket.NewLifecycleEvent(shared.EventTicketCompleted, t, from, "")
	if err := h.eventPublisher.Publish(ctx, event); err != nil {
		h.log.Warn("failed to publish ticket completed event", logger.Err(err))
	}

	return nil
}

// publishEvents emits the feed events for a persisted record.
func (h *SaveFeedHandler) publishEvents(ctx context.Context, rec *feed.FeedRecord, correlationID string) {
	saved := feed.NewSavedEvent(rec, correlationID)
	if err := h.eventPublisher.Publish(ctx, saved); err != nil {
		h.log.Warn("failed to publish saved event", logger.Err(err))
	}

	if rec.IsAbsence() {
		absence := feed.NewAbsenceRecordedEvent(rec, correlationID)
		if err := h.eventPublisher.Publish(ctx, absence); err != nil {
			h.log.Warn("failed to publish absence event", logger.Err(err))
		}
	}
}
