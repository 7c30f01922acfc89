package query

import (
	"context"
	"errors"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CLASS FEED QUERY
// Hydrates the feed screen: one card per roster student for a class and day.
// Persisted records load as saved cards; students without a record get empty
// cards. Cached drafts from an interrupted session are recovered on top, so a
// browser crash never loses typed-in work.
// ══════════════════════════════════════════════════════════════════════════════

// GetClassFeedQuery contains the parameters of the screen load.
type GetClassFeedQuery struct {
	// TenantID - the owning academy.
	TenantID string

	// ClassID - the class whose screen is being opened.
	ClassID string

	// Date - the session day, "YYYY-MM-DD".
	Date string

	// StudentIDs - the class roster. Cards are returned in this order.
	StudentIDs []string
}

// Validate checks the query parameters.
func (q *GetClassFeedQuery) Validate() error {
	if q.TenantID == "" {
		return errors.New("tenant_id must be provided")
	}
	if q.ClassID == "" {
		return errors.New("class_id must be provided")
	}
	if q.Date == "" {
		return errors.New("date must be provided")
	}
	if len(q.StudentIDs) == 0 {
		return errors.New("student roster must not be empty")
	}
	return nil
}

// RuleViolationDTO is the presentation shape of a failed validation rule.
type RuleViolationDTO struct {
	Field       string `json:"field"`
	OptionSetID string `json:"option_set_id,omitempty"`
	Message     string `json:"message"`
}

// CardDTO is the presentation shape of one student's card.
type CardDTO struct {
	StudentID string `json:"student_id"`

	// RecordID - the persisted record behind the card, "" for empty cards.
	RecordID string `json:"record_id,omitempty"`

	// Status - empty, dirty, error or saved.
	Status string `json:"status"`

	// Draft - the card's current field values.
	Draft feed.Draft `json:"draft"`

	// Violations - failed rules when Status is error.
	Violations []RuleViolationDTO `json:"violations,omitempty"`

	// RecoveredDraft - true when an unsaved draft was restored from the cache.
	RecoveredDraft bool `json:"recovered_draft"`
}

// GetClassFeedResult contains the hydrated screen.
type GetClassFeedResult struct {
	// ClassID, Date - the screen identity.
	ClassID string `json:"class_id"`
	Date    string `json:"date"`

	// Mode - the tenant's operation mode, steering which fields are required.
	Mode string `json:"mode"`

	// Cards - one per roster student, in roster order.
	Cards []CardDTO `json:"cards"`
}

// GetClassFeedHandler handles the GetClassFeedQuery.
type GetClassFeedHandler struct {
	feedRepo       feed.Repository
	taxonomyReader taxonomy.Reader
	draftCache     feed.DraftCache
}

// NewGetClassFeedHandler creates a new GetClassFeedHandler.
func NewGetClassFeedHandler(feedRepo feed.Repository, taxonomyReader taxonomy.Reader, draftCache feed.DraftCache) *GetClassFeedHandler {
	return &GetClassFeedHandler{
		feedRepo:       feedRepo,
		taxonomyReader: taxonomyReader,
		draftCache:     draftCache,
	}
}

// Handle executes the query.
func (h *GetClassFeedHandler) Handle(ctx context.Context, query GetClassFeedQuery) (*GetClassFeedResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetClassFeed", shared.ErrInvalidInput, err.Error(), err)
	}

	tenantID, err := shared.NewTenantID(query.TenantID)
	if err != nil {
		return nil, err
	}
	classID, err := shared.NewClassID(query.ClassID)
	if err != nil {
		return nil, err
	}
	date, err := shared.ParseFeedDate(query.Date)
	if err != nil {
		return nil, err
	}

	cfg, err := h.validationConfig(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	records, err := h.feedRepo.ListByClassDate(ctx, tenantID, classID, date)
	if err != nil {
		return nil, shared.WrapError("query", "GetClassFeed", shared.ErrPersistence, "failed to load records", err)
	}
	byStudent := make(map[shared.StudentID]*feed.FeedRecord, len(records))
	for _, rec := range records {
		byStudent[rec.StudentID] = rec
	}

	cards := make([]CardDTO, 0, len(query.StudentIDs))
	for _, raw := range query.StudentIDs {
		studentID, serr := shared.NewStudentID(raw)
		if serr != nil {
			return nil, serr
		}

		key := feed.Key{TenantID: tenantID, StudentID: studentID, ClassID: classID, Date: date}
		card := h.hydrateCard(ctx, key, byStudent[studentID], cfg)
		cards = append(cards, card)
	}

	return &GetClassFeedResult{
		ClassID: classID.String(),
		Date:    date.String(),
		Mode:    string(cfg.Mode),
		Cards:   cards,
	}, nil
}

// hydrateCard builds one student's card, layering a recovered draft over the
// persisted record when the cache holds newer unsaved work.
func (h *GetClassFeedHandler) hydrateCard(ctx context.Context, key feed.Key, rec *feed.FeedRecord, cfg feed.ValidationConfig) CardDTO {
	var card *feed.Card
	if rec != nil {
		card = feed.NewCardFromRecord(rec, cfg)
	} else {
		card = feed.NewCard(key, cfg)
	}

	recovered := false
	if cached, err := h.draftCache.Get(ctx, key); err == nil && cached != nil {
		// A cached draft equal to the persisted state is stale, not unsaved work.
		if rec == nil || !cached.Equal(rec.Values) {
			card.RestoreDraft(*cached)
			recovered = true
		}
	}

	dto := CardDTO{
		StudentID:      key.StudentID.String(),
		RecordID:       card.RecordID(),
		Status:         string(card.Status()),
		Draft:          card.Draft(),
		RecoveredDraft: recovered,
	}
	for _, v := range card.Violations() {
		dto.Violations = append(dto.Violations, RuleViolationDTO{
			Field:       v.Field,
			OptionSetID: v.OptionSetID,
			Message:     v.Message,
		})
	}
	return dto
}

// validationConfig loads the tenant's mode and option sets.
func (h *GetClassFeedHandler) validationConfig(ctx context.Context, tenantID shared.TenantID) (feed.ValidationConfig, error) {
	mode, err := h.taxonomyReader.OperationMode(ctx, tenantID)
	if err != nil {
		return feed.ValidationConfig{}, shared.WrapError("query", "GetClassFeed", shared.ErrPersistence, "failed to load operation mode", err)
	}
	sets, err := h.taxonomyReader.OptionSets(ctx, tenantID)
	if err != nil {
		return feed.ValidationConfig{}, shared.WrapError("query", "GetClassFeed", shared.ErrPersistence, "failed to load option sets", err)
	}
	return feed.ValidationConfig{Mode: mode, OptionSets: sets}, nil
}
