package feed

import (
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CARD STATE MACHINE
// One Card per (student, date) editing session. The card owns the draft, the
// last persisted snapshot and the computed status. The status only ever moves
// on external input: field edits and save outcomes. Each editing session is
// single-writer, so the Card carries no locking.
// ══════════════════════════════════════════════════════════════════════════════

// Card is the editable projection of one student's feed for one day.
type Card struct {
	key      Key
	cfg      ValidationConfig
	draft    Draft
	snapshot *Draft
	recordID string

	status     CardStatus
	violations []RuleViolation

	// inFlight marks that a save for this card has been submitted and not yet
	// acknowledged. Only this card is blocked; sibling cards stay editable.
	inFlight  bool
	lastToken shared.IdempotencyToken
}

// NewCard creates an empty card for a student with no persisted record.
func NewCard(key Key, cfg ValidationConfig) *Card {
	c := &Card{key: key, cfg: cfg}
	c.recompute()
	return c
}

// NewCardFromRecord creates a card loaded from a persisted record. Initial
// status is saved.
func NewCardFromRecord(rec *FeedRecord, cfg ValidationConfig) *Card {
	snapshot := rec.Values.Clone()
	c := &Card{
		key:      rec.Key(),
		cfg:      cfg,
		draft:    rec.Values.Clone(),
		snapshot: &snapshot,
		recordID: rec.ID,
	}
	c.recompute()
	return c
}

// Key returns the card's key.
func (c *Card) Key() Key {
	return c.key
}

// RecordID returns the persisted record's ID, or "" before first save.
func (c *Card) RecordID() string {
	return c.recordID
}

// Draft returns a copy of the current draft.
func (c *Card) Draft() Draft {
	return c.draft.Clone()
}

// Snapshot returns a copy of the last persisted snapshot, or nil.
func (c *Card) Snapshot() *Draft {
	if c.snapshot == nil {
		return nil
	}
	s := c.snapshot.Clone()
	return &s
}

// Status returns the computed card status.
func (c *Card) Status() CardStatus {
	return c.status
}

// Violations returns the validation failures behind a StatusError.
func (c *Card) Violations() []RuleViolation {
	return c.violations
}

// InFlight reports whether a save is currently submitted.
func (c *Card) InFlight() bool {
	return c.inFlight
}

// LastToken returns the idempotency token of the last save attempt.
func (c *Card) LastToken() shared.IdempotencyToken {
	return c.lastToken
}

// Edit applies a field mutation to the draft and recomputes the status.
func (c *Card) Edit(mutate func(*Draft)) {
	mutate(&c.draft)
	c.recompute()
}

// RestoreDraft replaces the draft with one recovered from the local draft
// cache (unsaved work from an earlier session) and recomputes the status.
func (c *Card) RestoreDraft(d Draft) {
	c.draft = d.Clone()
	c.recompute()
}

// Reset discards unsaved edits, returning the draft to the last persisted
// snapshot (or to blank when nothing was ever persisted).
func (c *Card) Reset() {
	if c.snapshot != nil {
		c.draft = c.snapshot.Clone()
	} else {
		c.draft = Draft{}
	}
	c.recompute()
}

// BeginSave checks whether a save may be submitted and, if so, marks the card
// in flight under the given token.
//
// Returns (false, nil) for saved/empty cards - a save attempt there is a
// no-op, not an error. Returns an error for error-state cards (the validation
// failure is surfaced to the caller) and for cards already in flight.
func (c *Card) BeginSave(token shared.IdempotencyToken) (bool, error) {
	if c.inFlight {
		return false, shared.ErrCardInFlight
	}

	switch c.status {
	case StatusError:
		return false, shared.ErrCardInvalid
	case StatusSaved, StatusEmpty:
		return false, nil
	case StatusDirty:
		c.inFlight = true
		c.lastToken = token
		return true, nil
	default:
		return false, shared.NewDomainError("feed", "BeginSave", shared.ErrInvalidState, "unknown card status")
	}
}

// CompleteSave records an acknowledged save: the submitted draft becomes the
// new persisted snapshot and the card transitions to saved.
func (c *Card) CompleteSave(recordID string) {
	snapshot := c.draft.Clone()
	c.snapshot = &snapshot
	c.recordID = recordID
	c.inFlight = false
	c.recompute()
}

// FailSave records a failed save: the card stays dirty and the draft is kept.
// No rollback is needed - local state was never ahead of persisted truth.
func (c *Card) FailSave() {
	c.inFlight = false
	c.recompute()
}

func (c *Card) recompute() {
	c.status, c.violations = ComputeStatus(c.draft, c.snapshot, c.cfg)
}
