package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/readtowatch/internal/progress"
)

// DB is the database interface used by [Store]. *pgxpool.Pool satisfies it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements [progress.Store] on PostgreSQL.
type Store struct {
	db          DB
	pool        *pgxpool.Pool
	maxSessions int
}

var _ progress.Store = (*Store)(nil)

// New wraps an existing connection. The caller runs [Store.Migrate].
func New(db DB, maxSessions int) *Store {
	if maxSessions <= 0 {
		maxSessions = progress.DefaultMaxSessions
	}
	return &Store{db: db, maxSessions: maxSessions}
}

// Open connects to dsn, pings the server and applies [Schema].
func Open(ctx context.Context, dsn string, maxSessions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("progress postgres: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("progress postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("progress postgres: ping: %w", err)
	}

	s := New(pool, maxSessions)
	s.pool = pool
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Ping checks the connection. It backs the readiness check.
func (s *Store) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

// Close releases the pool opened by [Open]. It is a no-op for stores built
// with [New].
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// RecordSession implements [progress.Store].
func (s *Store) RecordSession(ctx context.Context, sess progress.Session) error {
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		const insert = `
			INSERT INTO progress_sessions (
				challenge_id, sentence, words_total, words_correct, words_helped,
				first_attempt_mastery, recorded_at, retell_file
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
		if _, err := tx.Exec(ctx, insert,
			sess.ChallengeID, sess.Sentence, sess.WordsTotal, sess.WordsCorrect, sess.WordsHelped,
			sess.FirstAttemptMastery, sess.Timestamp, sess.RetellFile,
		); err != nil {
			return err
		}

		const trim = `
			DELETE FROM progress_sessions
			WHERE id NOT IN (
				SELECT id FROM progress_sessions ORDER BY recorded_at DESC, id DESC LIMIT $1
			)`
		if _, err := tx.Exec(ctx, trim, s.maxSessions); err != nil {
			return err
		}

		const count = `
			INSERT INTO progress_daily_counts (day, count) VALUES ($1, 1)
			ON CONFLICT (day) DO UPDATE SET count = progress_daily_counts.count + 1`
		_, err := tx.Exec(ctx, count, progress.Day(sess.Timestamp))
		return err
	})
	if err != nil {
		return fmt.Errorf("progress postgres: record session: %w", err)
	}
	return nil
}

// Sessions implements [progress.Store].
func (s *Store) Sessions(ctx context.Context) ([]progress.Session, error) {
	const query = `
		SELECT challenge_id, sentence, words_total, words_correct, words_helped,
		       first_attempt_mastery, recorded_at, retell_file
		FROM progress_sessions
		ORDER BY recorded_at, id`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("progress postgres: sessions: %w", err)
	}
	defer rows.Close()

	var out []progress.Session
	for rows.Next() {
		var sess progress.Session
		if err := rows.Scan(
			&sess.ChallengeID, &sess.Sentence, &sess.WordsTotal, &sess.WordsCorrect, &sess.WordsHelped,
			&sess.FirstAttemptMastery, &sess.Timestamp, &sess.RetellFile,
		); err != nil {
			return nil, fmt.Errorf("progress postgres: sessions scan: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("progress postgres: sessions: %w", err)
	}
	return out, nil
}

// DailyCounts implements [progress.Store].
func (s *Store) DailyCounts(ctx context.Context) (map[string]int, error) {
	m, err := s.wordCounts(ctx, `SELECT day, count FROM progress_daily_counts`)
	if err != nil {
		return nil, fmt.Errorf("progress postgres: daily counts: %w", err)
	}
	return m, nil
}

// AddScreenTime implements [progress.Store].
func (s *Store) AddScreenTime(ctx context.Context, day time.Time, minutes float64) error {
	if minutes < 0 {
		return fmt.Errorf("progress postgres: negative screen time %.2f", minutes)
	}
	const query = `
		INSERT INTO progress_screen_time (day, minutes) VALUES ($1, $2)
		ON CONFLICT (day) DO UPDATE SET minutes = progress_screen_time.minutes + EXCLUDED.minutes`
	if _, err := s.db.Exec(ctx, query, progress.Day(day), minutes); err != nil {
		return fmt.Errorf("progress postgres: add screen time: %w", err)
	}
	return nil
}

// ScreenTime implements [progress.Store].
func (s *Store) ScreenTime(ctx context.Context, day time.Time) (float64, error) {
	var minutes float64
	err := s.db.QueryRow(ctx, `SELECT minutes FROM progress_screen_time WHERE day = $1`, progress.Day(day)).Scan(&minutes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("progress postgres: screen time: %w", err)
	}
	return minutes, nil
}

// StrugglingWords implements [progress.Store].
func (s *Store) StrugglingWords(ctx context.Context) (map[string]int, error) {
	m, err := s.wordCounts(ctx, `SELECT word, count FROM progress_struggling_words`)
	if err != nil {
		return nil, fmt.Errorf("progress postgres: struggling words: %w", err)
	}
	return m, nil
}

// AddStrugglingWords implements [progress.Store].
func (s *Store) AddStrugglingWords(ctx context.Context, words []string) error {
	if len(words) == 0 {
		return nil
	}
	const query = `
		INSERT INTO progress_struggling_words (word, count) VALUES ($1, 1)
		ON CONFLICT (word) DO UPDATE SET count = progress_struggling_words.count + 1`
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		for _, w := range words {
			if _, err := tx.Exec(ctx, query, w); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("progress postgres: add struggling words: %w", err)
	}
	return nil
}

// FocusWords implements [progress.Store].
func (s *Store) FocusWords(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT word FROM progress_focus_words ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("progress postgres: focus words: %w", err)
	}
	words, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("progress postgres: focus words: %w", err)
	}
	return words, nil
}

// AddFocusWord implements [progress.Store].
func (s *Store) AddFocusWord(ctx context.Context, raw string) (string, error) {
	word, err := progress.NormalizeFocusWord(raw)
	if err != nil {
		return "", err
	}
	tag, err := s.db.Exec(ctx, `INSERT INTO progress_focus_words (word) VALUES ($1) ON CONFLICT (word) DO NOTHING`, word)
	if err != nil {
		return "", fmt.Errorf("progress postgres: add focus word: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", fmt.Errorf("%w: %q", progress.ErrDuplicateWord, word)
	}
	return word, nil
}

// RemoveFocusWord implements [progress.Store].
func (s *Store) RemoveFocusWord(ctx context.Context, word string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM progress_focus_words WHERE word = $1`, word); err != nil {
		return fmt.Errorf("progress postgres: remove focus word: %w", err)
	}
	return nil
}

// Reset implements [progress.Store].
func (s *Store) Reset(ctx context.Context) error {
	const query = `
		TRUNCATE progress_sessions, progress_daily_counts, progress_screen_time,
		         progress_struggling_words, progress_focus_words`
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("progress postgres: reset: %w", err)
	}
	return nil
}

func (s *Store) wordCounts(ctx context.Context, query string) (map[string]int, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		out[key] = count
	}
	return out, rows.Err()
}
