package query

import (
	"context"
	"sort"
	"sync"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/ticket"
)

const (
	tenantA  = "11111111-1111-1111-1111-111111111111"
	studentA = "22222222-2222-2222-2222-222222222222"
	studentB = "99999999-9999-9999-9999-999999999999"
	classA   = "33333333-3333-3333-3333-333333333333"
	tokenA   = "44444444-4444-4444-4444-444444444444"
	ticketA  = "55555555-5555-5555-5555-555555555555"
)

// ─────────────────────────────────────────────────────────────────────────────
// Read-side fakes
// ─────────────────────────────────────────────────────────────────────────────

type fakeFeedStore struct {
	mu      sync.Mutex
	records []*feed.FeedRecord
}

func (r *fakeFeedStore) add(rec *feed.FeedRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *fakeFeedStore) Upsert(ctx context.Context, rec *feed.FeedRecord) (string, error) {
	r.add(rec)
	return rec.ID, nil
}

func (r *fakeFeedStore) GetByKey(ctx context.Context, key feed.Key) (*feed.FeedRecord, error) {
	return r.GetByStudentDate(ctx, key.TenantID, key.StudentID, key.Date)
}

func (r *fakeFeedStore) GetByStudentDate(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID, date shared.FeedDate) (*feed.FeedRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.StudentID == studentID && rec.Date.Equal(date) && !rec.IsDeleted() {
			return rec, nil
		}
	}
	return nil, shared.ErrRecordNotFound
}

func (r *fakeFeedStore) SoftDelete(ctx context.Context, key feed.Key) error {
	return shared.ErrRecordNotFound
}

func (r *fakeFeedStore) ListByClassDate(ctx context.Context, tenantID shared.TenantID, classID shared.ClassID, date shared.FeedDate) ([]*feed.FeedRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*feed.FeedRecord
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.ClassID == classID && rec.Date.Equal(date) && !rec.IsDeleted() {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeFeedStore) ListAbsences(ctx context.Context, tenantID shared.TenantID, dates shared.DateRange, p shared.Pagination) ([]*feed.FeedRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*feed.FeedRecord
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.IsAbsence() && !rec.IsDeleted() && dates.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Date.Before(out[i].Date) })
	return out, nil
}

func (r *fakeFeedStore) CountAbsences(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID, dates shared.DateRange) (int, error) {
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

type fakeTicketStore struct {
	mu      sync.Mutex
	tickets []*ticket.MakeupTicket
}

func (r *fakeTicketStore) add(t *ticket.MakeupTicket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets = append(r.tickets, t)
}

func (r *fakeTicketStore) Create(ctx context.Context, t *ticket.MakeupTicket) error {
	r.add(t)
	return nil
}

func (r *fakeTicketStore) GetByID(ctx context.Context, tenantID shared.TenantID, id string) (*ticket.MakeupTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tickets {
		if t.ID == id && t.TenantID == tenantID {
			return t, nil
		}
	}
	return nil, shared.ErrTicketNotFound
}

func (r *fakeTicketStore) Update(ctx context.Context, t *ticket.MakeupTicket) error {
	return nil
}

func (r *fakeTicketStore) FindOpenByAbsence(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID, absenceDate shared.FeedDate) (*ticket.MakeupTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tickets {
		if t.TenantID == tenantID && t.StudentID == studentID && t.AbsenceDate.Equal(absenceDate) && t.Status.IsOpen() {
			return t, nil
		}
	}
	return nil, shared.ErrTicketNotFound
}

func (r *fakeTicketStore) List(ctx context.Context, tenantID shared.TenantID, filter ticket.ListFilter, p shared.Pagination) ([]*ticket.MakeupTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*ticket.MakeupTicket
	for _, t := range r.tickets {
		if t.TenantID != tenantID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		if !filter.StudentID.IsEmpty() && t.StudentID != filter.StudentID {
			continue
		}
		if filter.AbsenceDates.IsValid() && !filter.AbsenceDates.Contains(t.AbsenceDate) {
			continue
		}
		if filter.ScheduledDates.IsValid() && (t.ScheduledDate.IsZero() || !filter.ScheduledDates.Contains(t.ScheduledDate)) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func containsStatus(statuses []ticket.Status, s ticket.Status) bool {
	for _, candidate := range statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

func (r *fakeTicketStore) CountOpen(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID) (int, error) {
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

type fakeTaxonomyReader struct {
	mode taxonomy.OperationMode
	sets []taxonomy.OptionSet
}

func (f *fakeTaxonomyReader) OptionSets(ctx context.Context, tenantID shared.TenantID) ([]taxonomy.OptionSet, error) {
	return f.sets, nil
}

func (f *fakeTaxonomyReader) OptionSet(ctx context.Context, tenantID shared.TenantID, setID string) (*taxonomy.OptionSet, error) {
	for i := range f.sets {
		if f.sets[i].ID == setID {
			return &f.sets[i], nil
		}
	}
	return nil, shared.ErrOptionSetNotFound
}

func (f *fakeTaxonomyReader) OperationMode(ctx context.Context, tenantID shared.TenantID) (taxonomy.OperationMode, error) {
	if f.mode == "" {
		return taxonomy.OperationModeStandard, nil
	}
	return f.mode, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Builders
// ─────────────────────────────────────────────────────────────────────────────

func absenceRecord(id, studentID string, date shared.FeedDate, reason taxonomy.AbsenceReason) *feed.FeedRecord {
	rec, err := feed.NewFeedRecord(id, feed.Key{
		TenantID:  shared.TenantID(tenantA),
		StudentID: shared.StudentID(studentID),
		ClassID:   shared.ClassID(classA),
		Date:      date,
	}, feed.Draft{
		Attendance:    feed.AttendanceAbsent,
		AbsenceReason: reason,
	}, shared.IdempotencyToken(tokenA))
	if err != nil {
		panic(err)
	}
	return rec
}

func presenceRecord(id, studentID string, date shared.FeedDate) *feed.FeedRecord {
	rec, err := feed.NewFeedRecord(id, feed.Key{
		TenantID:  shared.TenantID(tenantA),
		StudentID: shared.StudentID(studentID),
		ClassID:   shared.ClassID(classA),
		Date:      date,
	}, feed.Draft{Attendance: feed.AttendancePresent}, shared.IdempotencyToken(tokenA))
	if err != nil {
		panic(err)
	}
	return rec
}

func openTicket(id, studentID string, absenceDate shared.FeedDate) *ticket.MakeupTicket {
	t, err := ticket.NewTicket(ticket.NewTicketParams{
		ID:            id,
		TenantID:      shared.TenantID(tenantA),
		StudentID:     shared.StudentID(studentID),
		ClassID:       shared.ClassID(classA),
		AbsenceDate:   absenceDate,
		AbsenceReason: taxonomy.ReasonSick,
	})
	if err != nil {
		panic(err)
	}
	return t
}
