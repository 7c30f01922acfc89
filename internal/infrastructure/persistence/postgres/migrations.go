// Package postgres implements the PostgreSQL persistence layer for the
// attendance feed engine.
package postgres

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE FEED RECORDS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create feed_records table
-- Version: 001

CREATE TABLE IF NOT EXISTS feed_records (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    tenant_id UUID NOT NULL,
    student_id UUID NOT NULL,
    class_id UUID NOT NULL,
    date DATE NOT NULL,
    attendance VARCHAR(10) NOT NULL,
    absence_reason VARCHAR(20),
    absence_detail TEXT NOT NULL DEFAULT '',
    notify_parent BOOLEAN NOT NULL DEFAULT FALSE,
    is_makeup BOOLEAN NOT NULL DEFAULT FALSE,
    makeup_ticket_id UUID,
    needs_makeup_override BOOLEAN,
    selections JSONB NOT NULL DEFAULT '{}'::jsonb,
    exam_scores JSONB NOT NULL DEFAULT '{}'::jsonb,
    progress JSONB NOT NULL DEFAULT '[]'::jsonb,
    memo TEXT NOT NULL DEFAULT '',
    save_token UUID NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    deleted_at TIMESTAMP WITH TIME ZONE,

    CONSTRAINT valid_attendance CHECK (attendance IN ('present', 'late', 'absent')),
    CONSTRAINT absence_has_reason CHECK (attendance != 'absent' OR absence_reason IS NOT NULL),
    -- Absence purity: absence records never carry evaluation data.
    CONSTRAINT absence_purity CHECK (
        attendance != 'absent' OR (selections = '{}'::jsonb AND exam_scores = '{}'::jsonb)
    )
);

-- Uniqueness invariant: one live record per (student, date).
CREATE UNIQUE INDEX IF NOT EXISTS idx_feed_records_student_date
    ON feed_records(tenant_id, student_id, date) WHERE deleted_at IS NULL;

CREATE INDEX IF NOT EXISTS idx_feed_records_class_date
    ON feed_records(tenant_id, class_id, date) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_feed_records_absences
    ON feed_records(tenant_id, student_id, date) WHERE attendance = 'absent' AND deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_feed_records_save_token ON feed_records(save_token);
`

const migration001Down = `
DROP TABLE IF EXISTS feed_records;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE MAKEUP TICKETS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
-- Migration: Create makeup_tickets table
-- Version: 002

CREATE TABLE IF NOT EXISTS makeup_tickets (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    tenant_id UUID NOT NULL,
    student_id UUID NOT NULL,
    class_id UUID NOT NULL,
    absence_date DATE NOT NULL,
    absence_reason VARCHAR(20) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    scheduled_date DATE,
    scheduled_time VARCHAR(5) NOT NULL DEFAULT '',
    completion_note TEXT NOT NULL DEFAULT '',
    cancellation_reason TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_ticket_status CHECK (status IN ('pending', 'scheduled', 'completed', 'cancelled')),
    CONSTRAINT scheduled_has_date CHECK (status != 'scheduled' OR scheduled_date IS NOT NULL),
    CONSTRAINT cancelled_has_reason CHECK (status != 'cancelled' OR cancellation_reason != '')
);

-- Singularity invariant: at most one open ticket per (student, absence date).
CREATE UNIQUE INDEX IF NOT EXISTS idx_makeup_tickets_open_absence
    ON makeup_tickets(tenant_id, student_id, absence_date)
    WHERE status IN ('pending', 'scheduled');

CREATE INDEX IF NOT EXISTS idx_makeup_tickets_status
    ON makeup_tickets(tenant_id, status, absence_date DESC);
CREATE INDEX IF NOT EXISTS idx_makeup_tickets_scheduled
    ON makeup_tickets(tenant_id, scheduled_date) WHERE status = 'scheduled';
CREATE INDEX IF NOT EXISTS idx_makeup_tickets_student
    ON makeup_tickets(tenant_id, student_id, absence_date DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS makeup_tickets;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE TAXONOMY (read-only reference data)
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
-- Migration: Create evaluation taxonomy and tenant settings tables
-- Version: 003
-- These tables are maintained by the configuration surface; the engine reads them.

CREATE TABLE IF NOT EXISTS option_sets (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    tenant_id UUID NOT NULL,
    name VARCHAR(100) NOT NULL,
    scored BOOLEAN NOT NULL DEFAULT FALSE,
    score_step INTEGER NOT NULL DEFAULT 0,
    required BOOLEAN NOT NULL DEFAULT FALSE,
    modes VARCHAR(20)[] NOT NULL DEFAULT '{}',
    sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_option_sets_tenant ON option_sets(tenant_id, sort_order);

CREATE TABLE IF NOT EXISTS options (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    option_set_id UUID NOT NULL REFERENCES option_sets(id) ON DELETE CASCADE,
    label VARCHAR(100) NOT NULL,
    score INTEGER,
    sort_order INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_options_set ON options(option_set_id, sort_order);

CREATE TABLE IF NOT EXISTS tenant_settings (
    tenant_id UUID PRIMARY KEY,
    operation_mode VARCHAR(20) NOT NULL DEFAULT 'standard',
    absence_defaults JSONB NOT NULL DEFAULT '{}'::jsonb,
    absence_default_fallback BOOLEAN NOT NULL DEFAULT FALSE,

    CONSTRAINT valid_operation_mode CHECK (operation_mode IN ('standard', 'team'))
);
`

const migration003Down = `
DROP TABLE IF EXISTS tenant_settings;
DROP TABLE IF EXISTS options;
DROP TABLE IF EXISTS option_sets;
`
