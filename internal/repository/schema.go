package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema tables backing the Postgres repositories
const Schema = `
CREATE TABLE IF NOT EXISTS shifts (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	start_time    TEXT NOT NULL,
	end_time      TEXT NOT NULL,
	primary_count INT  NOT NULL DEFAULT 1,
	backup_count  INT  NOT NULL DEFAULT 0,
	sort_order    INT  NOT NULL DEFAULT 0,
	color         TEXT
);

CREATE TABLE IF NOT EXISTS crew_members (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	department TEXT,
	role       TEXT,
	status     TEXT NOT NULL DEFAULT 'off-duty',
	shift      TEXT
);

CREATE TABLE IF NOT EXISTS shift_assignments (
	date     DATE NOT NULL,
	shift_id TEXT NOT NULL REFERENCES shifts(id) ON DELETE CASCADE,
	crew_id  TEXT NOT NULL REFERENCES crew_members(id) ON DELETE CASCADE,
	type     TEXT NOT NULL CHECK (type IN ('primary', 'backup')),
	PRIMARY KEY (date, shift_id, crew_id)
);

CREATE TABLE IF NOT EXISTS locations (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS guests (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'expected',
	location_id    TEXT REFERENCES locations(id) ON DELETE SET NULL,
	check_in_date  TIMESTAMPTZ,
	check_out_date TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS service_requests (
	id               TEXT PRIMARY KEY,
	guest_id         TEXT,
	guest_name       TEXT NOT NULL,
	location_id      TEXT,
	guest_cabin      TEXT NOT NULL,
	priority         TEXT NOT NULL,
	status           TEXT NOT NULL,
	request_type     TEXT,
	created_at       TIMESTAMPTZ NOT NULL,
	accepted_at      TIMESTAMPTZ,
	completed_at     TIMESTAMPTZ,
	assigned_to      TEXT,
	voice_transcript TEXT,
	voice_audio_url  TEXT,
	category         TEXT,
	notes            TEXT,
	device_id        TEXT
);

CREATE TABLE IF NOT EXISTS service_request_history (
	id               TEXT PRIMARY KEY,
	request          JSONB NOT NULL,
	completed_by     TEXT NOT NULL,
	completed_at     TIMESTAMPTZ NOT NULL,
	duration_seconds BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_completed_at ON service_request_history (completed_at);
`

// EnsureSchema creates missing tables
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func ptrString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
