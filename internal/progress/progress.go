// Package progress records what the reader has done: completed sentences,
// daily counts, screen time, words that needed help and the focus words a
// parent chose. [Store] has an in-memory implementation here and a
// PostgreSQL one in the postgres sub-package.
package progress

import (
	"context"
	"errors"
	"time"
)

// DefaultMaxSessions is the number of session records kept when a store is
// created without an explicit limit.
const DefaultMaxSessions = 200

// DayLayout formats the per-day keys used for counts and screen time.
const DayLayout = "2006-01-02"

var (
	// ErrInvalidWord is returned for focus words that are empty after
	// normalisation or contain a blocked substring.
	ErrInvalidWord = errors.New("progress: invalid focus word")

	// ErrDuplicateWord is returned when adding a focus word that is already
	// in the list.
	ErrDuplicateWord = errors.New("progress: focus word already present")
)

// Session is the record of one completed sentence.
type Session struct {
	ChallengeID         string
	Sentence            string
	WordsTotal          int
	WordsCorrect        int
	WordsHelped         int
	FirstAttemptMastery float64
	Timestamp           time.Time

	// RetellFile is the recording of the reader retelling the story, if
	// one was made.
	RetellFile string
}

// Store persists progress. Implementations must be safe for concurrent use.
type Store interface {
	// RecordSession appends s, bumps the count for its day and drops the
	// oldest records beyond the store's limit.
	RecordSession(ctx context.Context, s Session) error

	// Sessions returns the kept records, oldest first.
	Sessions(ctx context.Context) ([]Session, error)

	// DailyCounts maps a [DayLayout] key to the number of sentences read that
	// day.
	DailyCounts(ctx context.Context) (map[string]int, error)

	// AddScreenTime adds minutes to the total for day.
	AddScreenTime(ctx context.Context, day time.Time, minutes float64) error

	// ScreenTime returns the minutes recorded for day.
	ScreenTime(ctx context.Context, day time.Time) (float64, error)

	// StrugglingWords returns the cumulative help count per word.
	StrugglingWords(ctx context.Context) (map[string]int, error)

	// AddStrugglingWords increments the count of every word by one per
	// occurrence.
	AddStrugglingWords(ctx context.Context, words []string) error

	// FocusWords returns the focus list in insertion order.
	FocusWords(ctx context.Context) ([]string, error)

	// AddFocusWord normalises and validates raw, then appends it. It returns
	// the stored form.
	AddFocusWord(ctx context.Context, raw string) (string, error)

	// RemoveFocusWord removes word. Removing an absent word is not an error.
	RemoveFocusWord(ctx context.Context, word string) error

	// Reset deletes all recorded progress.
	Reset(ctx context.Context) error
}

// Day returns the [DayLayout] key for t in t's location.
func Day(t time.Time) string { return t.Format(DayLayout) }
