// Package postgres is a PostgreSQL-backed [progress.Store].
package postgres

import (
	"context"
	"fmt"
)

// Schema is the DDL applied by [Store.Migrate]. Every statement is
// idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS progress_sessions (
    id                    BIGSERIAL PRIMARY KEY,
    challenge_id          TEXT NOT NULL DEFAULT '',
    sentence              TEXT NOT NULL,
    words_total           INTEGER NOT NULL,
    words_correct         INTEGER NOT NULL,
    words_helped          INTEGER NOT NULL,
    first_attempt_mastery DOUBLE PRECISION NOT NULL,
    recorded_at           TIMESTAMPTZ NOT NULL
);
ALTER TABLE progress_sessions ADD COLUMN IF NOT EXISTS retell_file TEXT NOT NULL DEFAULT '';
CREATE INDEX IF NOT EXISTS idx_progress_sessions_recorded ON progress_sessions(recorded_at);

CREATE TABLE IF NOT EXISTS progress_daily_counts (
    day   TEXT PRIMARY KEY,
    count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS progress_screen_time (
    day     TEXT PRIMARY KEY,
    minutes DOUBLE PRECISION NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS progress_struggling_words (
    word  TEXT PRIMARY KEY,
    count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS progress_focus_words (
    word     TEXT PRIMARY KEY,
    added_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    seq      BIGSERIAL
);
`

// Migrate executes [Schema].
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("progress postgres: migrate: %w", err)
	}
	return nil
}
