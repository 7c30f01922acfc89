package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/academy-hub/attendance-feed-engine/internal/domain/feed"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/shared"
	"github.com/academy-hub/attendance-feed-engine/internal/domain/taxonomy"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// FEED RECORD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// FeedRepository implements feed.Repository for PostgreSQL.
type FeedRepository struct {
	conn *Connection
}

// NewFeedRepository creates a new FeedRepository.
func NewFeedRepository(conn *Connection) *FeedRepository {
	return &FeedRepository{conn: conn}
}

const feedRecordColumns = `
	id, tenant_id, student_id, class_id, date, attendance,
	absence_reason, absence_detail, notify_parent, is_makeup, makeup_ticket_id,
	needs_makeup_override, selections, exam_scores, progress, memo,
	save_token, created_at, updated_at, deleted_at
`

// ─────────────────────────────────────────────────────────────────────────────
// Write Operations
// ─────────────────────────────────────────────────────────────────────────────

// Upsert inserts or replaces the live record for (tenant, student, date).
// The partial unique index on live records makes the conflict target match
// only non-deleted rows, so re-saving after a soft delete inserts fresh.
func (r *FeedRepository) Upsert(ctx context.Context, rec *feed.FeedRecord) (string, error) {
	query := `
		INSERT INTO feed_records (
			id, tenant_id, student_id, class_id, date, attendance,
			absence_reason, absence_detail, notify_parent, is_makeup, makeup_ticket_id,
			needs_makeup_override, selections, exam_scores, progress, memo,
			save_token, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (tenant_id, student_id, date) WHERE deleted_at IS NULL
		DO UPDATE SET
			class_id = EXCLUDED.class_id,
			attendance = EXCLUDED.attendance,
			absence_reason = EXCLUDED.absence_reason,
			absence_detail = EXCLUDED.absence_detail,
			notify_parent = EXCLUDED.notify_parent,
			is_makeup = EXCLUDED.is_makeup,
			makeup_ticket_id = EXCLUDED.makeup_ticket_id,
			needs_makeup_override = EXCLUDED.needs_makeup_override,
			selections = EXCLUDED.selections,
			exam_scores = EXCLUDED.exam_scores,
			progress = EXCLUDED.progress,
			memo = EXCLUDED.memo,
			save_token = EXCLUDED.save_token,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`

	selectionsJSON, scoresJSON, progressJSON, err := marshalDraftJSON(rec.Values)
	if err != nil {
		return "", err
	}

	var makeupTicketID *string
	if rec.Values.MakeupTicketID != "" {
		makeupTicketID = &rec.Values.MakeupTicketID
	}
	var absenceReason *string
	if rec.Values.AbsenceReason != "" {
		s := rec.Values.AbsenceReason.String()
		absenceReason = &s
	}

	var id string
	err = r.conn.QueryRow(ctx, query,
		rec.ID,
		rec.TenantID.String(),
		rec.StudentID.String(),
		rec.ClassID.String(),
		rec.Date.Time(),
		string(rec.Values.Attendance),
		absenceReason,
		rec.Values.AbsenceDetail,
		rec.Values.NotifyParent,
		rec.Values.IsMakeup,
		makeupTicketID,
		rec.Values.NeedsMakeupOverride,
		selectionsJSON,
		scoresJSON,
		progressJSON,
		rec.Values.Memo,
		rec.SaveToken.String(),
		rec.CreatedAt,
		rec.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to upsert feed record: %w", err)
	}

	return id, nil
}

// SoftDelete marks the live record for a key as deleted.
func (r *FeedRepository) SoftDelete(ctx context.Context, key feed.Key) error {
	query := `
		UPDATE feed_records
		SET deleted_at = $1, updated_at = $1
		WHERE tenant_id = $2 AND student_id = $3 AND date = $4 AND deleted_at IS NULL
	`

	result, err := r.conn.Exec(ctx, query,
		time.Now().UTC(),
		key.TenantID.String(),
		key.StudentID.String(),
		key.Date.Time(),
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete feed record: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.ErrRecordNotFound
	}

	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Read Operations
// ─────────────────────────────────────────────────────────────────────────────

// GetByKey returns the live record for a key.
func (r *FeedRepository) GetByKey(ctx context.Context, key feed.Key) (*feed.FeedRecord, error) {
	query := `
		SELECT ` + feedRecordColumns + `
		FROM feed_records
		WHERE tenant_id = $1 AND student_id = $2 AND date = $3 AND deleted_at IS NULL
	`

	row := r.conn.QueryRow(ctx, query,
		key.TenantID.String(),
		key.StudentID.String(),
		key.Date.Time(),
	)
	return scanFeedRecord(row)
}

// GetByStudentDate returns the live record for a student and day.
func (r *FeedRepository) GetByStudentDate(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID, date shared.FeedDate) (*feed.FeedRecord, error) {
	query := `
		SELECT ` + feedRecordColumns + `
		FROM feed_records
		WHERE tenant_id = $1 AND student_id = $2 AND date = $3 AND deleted_at IS NULL
	`

	row := r.conn.QueryRow(ctx, query, tenantID.String(), studentID.String(), date.Time())
	return scanFeedRecord(row)
}

// ListByClassDate returns the live records of a class on a day.
func (r *FeedRepository) ListByClassDate(ctx context.Context, tenantID shared.TenantID, classID shared.ClassID, date shared.FeedDate) ([]*feed.FeedRecord, error) {
	query := `
		SELECT ` + feedRecordColumns + `
		FROM feed_records
		WHERE tenant_id = $1 AND class_id = $2 AND date = $3 AND deleted_at IS NULL
		ORDER BY student_id
	`

	rows, err := r.conn.Query(ctx, query, tenantID.String(), classID.String(), date.Time())
	if err != nil {
		return nil, fmt.Errorf("failed to list feed records by class and date: %w", err)
	}
	defer rows.Close()

	return scanFeedRecords(rows)
}

// ListAbsences returns absence records in the date range, newest first.
func (r *FeedRepository) ListAbsences(ctx context.Context, tenantID shared.TenantID, dates shared.DateRange, p shared.Pagination) ([]*feed.FeedRecord, error) {
	query := `
		SELECT ` + feedRecordColumns + `
		FROM feed_records
		WHERE tenant_id = $1 AND attendance = 'absent' AND deleted_at IS NULL
		  AND date >= $2 AND date <= $3
		ORDER BY date DESC, student_id
		LIMIT $4 OFFSET $5
	`

	rows, err := r.conn.Query(ctx, query,
		tenantID.String(),
		dates.From.Time(),
		dates.To.Time(),
		p.Limit(),
		p.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list absences: %w", err)
	}
	defer rows.Close()

	return scanFeedRecords(rows)
}

// CountAbsences counts a student's absence records in the range. Always hits
// the store; the aggregate this backs must never read stale counts.
func (r *FeedRepository) CountAbsences(ctx context.Context, tenantID shared.TenantID, studentID shared.StudentID, dates shared.DateRange) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM feed_records
		WHERE tenant_id = $1 AND student_id = $2
		  AND attendance = 'absent' AND deleted_at IS NULL
		  AND date >= $3 AND date <= $4
	`

	var count int
	err := r.conn.QueryRow(ctx, query,
		tenantID.String(),
		studentID.String(),
		dates.From.Time(),
		dates.To.Time(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count absences: %w", err)
	}

	return count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// marshalDraftJSON serializes the JSONB columns of a draft. Nil maps and
// slices are stored as their empty JSON forms to satisfy the table defaults.
func marshalDraftJSON(d feed.Draft) (selections, scores, progress []byte, err error) {
	sel := d.Selections
	if sel == nil {
		sel = map[string]string{}
	}
	selections, err = json.Marshal(sel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal selections: %w", err)
	}

	sc := d.ExamScores
	if sc == nil {
		sc = map[string]int{}
	}
	scores, err = json.Marshal(sc)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal exam scores: %w", err)
	}

	pr := d.Progress
	if pr == nil {
		pr = []feed.ProgressEntry{}
	}
	progress, err = json.Marshal(pr)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal progress: %w", err)
	}

	return selections, scores, progress, nil
}

// scanFeedRecord scans a single feed record from a row.
func scanFeedRecord(row pgx.Row) (*feed.FeedRecord, error) {
	rec, err := scanFeedRecordValues(row.Scan)
	if IsNoRows(err) {
		return nil, shared.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan feed record: %w", err)
	}
	return rec, nil
}

// scanFeedRecords scans multiple feed records from rows.
func scanFeedRecords(rows pgx.Rows) ([]*feed.FeedRecord, error) {
	var records []*feed.FeedRecord

	for rows.Next() {
		rec, err := scanFeedRecordValues(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return records, nil
}

// scanFeedRecordValues maps one row onto a FeedRecord through the given scan
// function, shared between single-row and multi-row reads.
func scanFeedRecordValues(scan func(dest ...interface{}) error) (*feed.FeedRecord, error) {
	var rec feed.FeedRecord
	var tenantID, studentID, classID, attendance, saveToken string
	var date time.Time
	var absenceReason, makeupTicketID *string
	var selectionsJSON, scoresJSON, progressJSON []byte

	err := scan(
		&rec.ID,
		&tenantID,
		&studentID,
		&classID,
		&date,
		&attendance,
		&absenceReason,
		&rec.Values.AbsenceDetail,
		&rec.Values.NotifyParent,
		&rec.Values.IsMakeup,
		&makeupTicketID,
		&rec.Values.NeedsMakeupOverride,
		&selectionsJSON,
		&scoresJSON,
		&progressJSON,
		&rec.Values.Memo,
		&saveToken,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.TenantID = shared.TenantID(tenantID)
	rec.StudentID = shared.StudentID(studentID)
	rec.ClassID = shared.ClassID(classID)
	rec.Date = shared.FeedDateOf(date)
	rec.Values.Attendance = feed.AttendanceStatus(attendance)
	rec.SaveToken = shared.IdempotencyToken(saveToken)
	if absenceReason != nil {
		rec.Values.AbsenceReason = taxonomy.AbsenceReason(*absenceReason)
	}
	if makeupTicketID != nil {
		rec.Values.MakeupTicketID = *makeupTicketID
	}

	if len(selectionsJSON) > 0 {
		var selections map[string]string
		if err := json.Unmarshal(selectionsJSON, &selections); err != nil {
			return nil, fmt.Errorf("failed to unmarshal selections: %w", err)
		}
		if len(selections) > 0 {
			rec.Values.Selections = selections
		}
	}
	if len(scoresJSON) > 0 {
		var scores map[string]int
		if err := json.Unmarshal(scoresJSON, &scores); err != nil {
			return nil, fmt.Errorf("failed to unmarshal exam scores: %w", err)
		}
		if len(scores) > 0 {
			rec.Values.ExamScores = scores
		}
	}
	if len(progressJSON) > 0 {
		var progress []feed.ProgressEntry
		if err := json.Unmarshal(progressJSON, &progress); err != nil {
			return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
		}
		if len(progress) > 0 {
			rec.Values.Progress = progress
		}
	}

	return &rec, nil
}
