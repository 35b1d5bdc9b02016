package database

import (
	"context"
	"fmt"
	"log/slog"
)

// schema is applied at startup. Every uniqueness invariant the services rely
// on lives here: credential handles, external IDs, center codes, and the
// one-record-per-(date, subject) attendance constraint. Concurrent writers
// racing on the same key resolve to one winner and one unique-violation
// loser at this layer.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS centers (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		code          TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		town          TEXT NOT NULL,
		city          TEXT NOT NULL,
		incharge_code TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS instructors (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		external_id TEXT NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		email       TEXT NOT NULL UNIQUE,
		center_id   UUID REFERENCES centers(id),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		external_id  TEXT NOT NULL UNIQUE,
		name         TEXT NOT NULL,
		age_or_grade TEXT NOT NULL,
		gender       TEXT NOT NULL,
		center_id    UUID NOT NULL REFERENCES centers(id),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		username      TEXT NOT NULL UNIQUE,
		email         TEXT UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		profile_kind  TEXT,
		profile_id    UUID,
		active        BOOLEAN NOT NULL DEFAULT true,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (profile_kind, profile_id)
	)`,
	`CREATE TABLE IF NOT EXISTS seminars (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title         TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		date          DATE NOT NULL,
		center_id     UUID NOT NULL REFERENCES centers(id),
		instructor_id UUID REFERENCES instructors(id),
		status        TEXT NOT NULL DEFAULT 'scheduled',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		date         DATE NOT NULL,
		subject_kind TEXT NOT NULL,
		subject_id   UUID NOT NULL,
		center_id    UUID NOT NULL REFERENCES centers(id),
		status       TEXT NOT NULL DEFAULT 'present',
		marked_by    UUID NOT NULL,
		notes        TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT attendance_date_subject_key UNIQUE (date, subject_kind, subject_id)
	)`,
	`CREATE INDEX IF NOT EXISTS attendance_center_date_idx ON attendance (center_id, date)`,
}

// EnsureSchema applies the schema statements in order. Statements are
// idempotent so repeated startups are safe.
func (cp *ConnectionPool) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := cp.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	cp.logger.Info("database schema ensured", slog.Int("statements", len(schema)))
	return nil
}
