package command

import (
	"context"
	"io"
	"sync"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/ticket"
	"github.com/academy-hub/attendance-feed-engine/pkg/logger"
)

// Shared UUIDs for handler tests.
const (
	tenantA  = "11111111-1111-1111-1111-111111111111"
	studentA = "22222222-2222-2222-2222-222222222222"
	studentB = "99999999-9999-9999-9999-999999999999"
	classA   = "33333333-3333-3333-3333-333333333333"
	tokenA   = "44444444-4444-4444-4444-444444444444"
	tokenB   = "66666666-6666-6666-6666-666666666666"
	ticketA  = "55555555-5555-5555-5555-555555555555"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

// ─────────────────────────────────────────────────────────────────────────────
// Feed repository fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeFeedRepo struct {
	mu      sync.Mutex
	records map[string]*feed.FeedRecord

	upsertErr   error
	upsertCalls int
}

func newFakeFeedRepo() *fakeFeedRepo {
	return &fakeFeedRepo{records: make(map[string]*feed.FeedRecord)}
}

func feedKeyID(tenantID shared.TenantID, studentID shared.StudentID, date shared.FeedDate) string {
	return tenantID.String() + ":" + studentID.String() + ":" + date.String()
}

func (r *fakeFeedRepo) Upsert(ctx context.Context, rec *feed.FeedRecord) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.upsertCalls++
	if r.upsertErr != nil {
		return "", r.upsertErr
	}

	clone := *rec
	r.records[feedKeyID(rec.TenantID, rec.StudentID, rec.Date)] = &clone
	return rec.ID, nil
}

func (r *fakeFeedRepo) GetByKey(ctx context.Context, key feed.Key) (*feed.FeedRecord, error) {
	return r.GetByStudentDate(ctx, key.TenantID, key.StudentID, key.Date)
}

func (r *fakeFeedRepo) GetByStudentDate(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID, date shared.FeedDate) (*feed.FeedRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[feedKeyID(tenantID, studentID, date)]
	if !ok || rec.IsDeleted() {
		return nil, shared.ErrRecordNotFound
	}
	clone := *rec
	return &clone, nil
}

func (r *fakeFeedRepo) SoftDelete(ctx context.Context, key feed.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[feedKeyID(key.TenantID, key.StudentID, key.Date)]
	if !ok || rec.IsDeleted() {
		return shared.ErrRecordNotFound
	}
	now := rec.UpdatedAt
	rec.DeletedAt = &now
	return nil
}

func (r *fakeFeedRepo) ListByClassDate(ctx context.Context, tenantID shared.TenantID, classID shared.ClassID, date shared.FeedDate) ([]*feed.FeedRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*feed.FeedRecord
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.ClassID == classID && rec.Date.Equal(date) && !rec.IsDeleted() {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeFeedRepo) ListAbsences(ctx context.Context, tenantID shared.TenantID, dates shared.DateRange, p shared.Pagination) ([]*feed.FeedRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*feed.FeedRecord
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.IsAbsence() && !rec.IsDeleted() && dates.Contains(rec.Date) {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeFeedRepo) CountAbsences(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID, dates shared.DateRange) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.StudentID == studentID && rec.IsAbsence() && !rec.IsDeleted() && dates.Contains(rec.Date) {
			count++
		}
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Ticket repository fake
// ─────────────────────────────────────────────────────────────────────────────

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets map[string]*ticket.MakeupTicket

	createErr error

	// findOpenMisses makes the first N FindOpenByAbsence calls report no open
	// ticket, simulating a lookup racing a concurrent create.
	findOpenMisses int
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: make(map[string]*ticket.MakeupTicket)}
}

func (r *fakeTicketRepo) Create(ctx context.Context, t *ticket.MakeupTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return r.createErr
	}

	// Mirrors the store's partial unique index on open tickets.
	for _, existing := range r.tickets {
		if existing.TenantID == t.TenantID && existing.StudentID == t.StudentID &&
			existing.AbsenceDate.Equal(t.AbsenceDate) && existing.Status.IsOpen() {
			return shared.ErrTicketAlreadyOpen
		}
	}

	clone := *t
	r.tickets[t.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, tenantID shared.TenantID, id string) (*ticket.MakeupTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tickets[id]
	if !ok || t.TenantID != tenantID {
		return nil, shared.ErrTicketNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *fakeTicketRepo) Update(ctx context.Context, t *ticket.MakeupTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tickets[t.ID]; !ok {
		return shared.ErrTicketNotFound
	}
	clone := *t
	r.tickets[t.ID] = &clone
	return nil
}

func (r *fakeTicketRepo) FindOpenByAbsence(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID, absenceDate shared.FeedDate) (*ticket.MakeupTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findOpenMisses > 0 {
		r.findOpenMisses--
		return nil, shared.ErrTicketNotFound
	}

	for _, t := range r.tickets {
		if t.TenantID == tenantID && t.StudentID == studentID && t.AbsenceDate.Equal(absenceDate) && t.Status.IsOpen() {
			clone := *t
			return &clone, nil
		}
	}
	return nil, shared.ErrTicketNotFound
}

func (r *fakeTicketRepo) List(ctx context.Context, tenantID shared.TenantID, filter ticket.ListFilter, p shared.Pagination) ([]*ticket.MakeupTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*ticket.MakeupTicket
	for _, t := range r.tickets {
		if t.TenantID != tenantID {
			continue
		}
		clone := *t
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeTicketRepo) CountOpen(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, t := range r.tickets {
		if t.TenantID == tenantID && t.StudentID == studentID && t.Status.IsOpen() {
			count++
		}
	}
	return count, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Taxonomy fake (Reader + DefaultsReader)
// ─────────────────────────────────────────────────────────────────────────────

type fakeTaxonomy struct {
	mode     taxonomy.OperationMode
	sets     []taxonomy.OptionSet
	defaults taxonomy.AbsenceDefaults

	// defaultsFails makes the first N AbsenceDefaults calls fail, simulating a
	// transient taxonomy store outage between persist and ticket settlement.
	defaultsFails int
}

func newFakeTaxonomy() *fakeTaxonomy {
	return &fakeTaxonomy{
		mode:     taxonomy.OperationModeStandard,
		defaults: taxonomy.DefaultAbsenceDefaults(shared.TenantID(tenantA)),
	}
}

func (f *fakeTaxonomy) OptionSets(ctx context.Context, tenantID shared.TenantID) ([]taxonomy.OptionSet, error) {
	return f.sets, nil
}

func (f *fakeTaxonomy) OptionSet(ctx context.Context, tenantID shared.TenantID, setID string) (*taxonomy.OptionSet, error) {
	for i := range f.sets {
		if f.sets[i].ID == setID {
			return &f.sets[i], nil
		}
	}
	return nil, shared.ErrOptionSetNotFound
}

func (f *fakeTaxonomy) OperationMode(ctx context.Context, tenantID shared.TenantID) (taxonomy.OperationMode, error) {
	return f.mode, nil
}

func (f *fakeTaxonomy) AbsenceDefaults(ctx context.Context, tenantID shared.TenantID) (taxonomy.AbsenceDefaults, error) {
	if f.defaultsFails > 0 {
		f.defaultsFails--
		return taxonomy.AbsenceDefaults{}, shared.ErrStoreUnavailable
	}
	return f.defaults, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Event publisher fake
// ─────────────────────────────────────────────────────────────────────────────

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(ctx context.Context, event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) byType(t shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}
