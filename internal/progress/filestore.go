package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

// fileSnapshot is the on-disk form of a [FileStore].
type fileSnapshot struct {
	SavedAt    time.Time          `json:"saved_at"`
	Sessions   []fileSession      `json:"sessions"`
	Counts     map[string]int     `json:"daily_counts"`
	Screen     map[string]float64 `json:"screen_minutes"`
	Struggling map[string]int     `json:"struggling_words"`
	Focus      []string           `json:"focus_words"`
}

type fileSession struct {
	ChallengeID         string    `json:"challenge_id"`
	Sentence            string    `json:"sentence"`
	WordsTotal          int       `json:"words_total"`
	WordsCorrect        int       `json:"words_correct"`
	WordsHelped         int       `json:"words_helped"`
	FirstAttemptMastery float64   `json:"first_attempt_mastery"`
	Timestamp           time.Time `json:"timestamp"`
	RetellFile          string    `json:"retell_file,omitempty"`
}

// FileStore keeps progress in memory and rewrites a JSON file after every
// change. Writes go to a temporary file that is renamed over the target, so
// a crash never leaves a half-written file behind.
type FileStore struct {
	*MemStore
	path string

	saveMu sync.Mutex
}

var _ Store = (*FileStore)(nil)

// OpenFileStore loads the store at path. A missing file yields an empty
// store; the file is created on the first change.
func OpenFileStore(path string, maxSessions int) (*FileStore, error) {
	store := &FileStore{MemStore: NewMemStore(maxSessions), path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("progress: read %s: %w", path, err)
	}

	var snap fileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("progress: decode %s: %w", path, err)
	}
	store.restore(snap)
	return store, nil
}

// Path returns the file the store writes to.
func (f *FileStore) Path() string { return f.path }

// RecordSession implements [Store].
func (f *FileStore) RecordSession(ctx context.Context, s Session) error {
	if err := f.MemStore.RecordSession(ctx, s); err != nil {
		return err
	}
	return f.save()
}

// AddScreenTime implements [Store].
func (f *FileStore) AddScreenTime(ctx context.Context, day time.Time, minutes float64) error {
	if err := f.MemStore.AddScreenTime(ctx, day, minutes); err != nil {
		return err
	}
	return f.save()
}

// AddStrugglingWords implements [Store].
func (f *FileStore) AddStrugglingWords(ctx context.Context, words []string) error {
	if len(words) == 0 {
		return nil
	}
	if err := f.MemStore.AddStrugglingWords(ctx, words); err != nil {
		return err
	}
	return f.save()
}

// AddFocusWord implements [Store].
func (f *FileStore) AddFocusWord(ctx context.Context, raw string) (string, error) {
	word, err := f.MemStore.AddFocusWord(ctx, raw)
	if err != nil {
		return "", err
	}
	return word, f.save()
}

// RemoveFocusWord implements [Store].
func (f *FileStore) RemoveFocusWord(ctx context.Context, word string) error {
	if err := f.MemStore.RemoveFocusWord(ctx, word); err != nil {
		return err
	}
	return f.save()
}

// Reset implements [Store].
func (f *FileStore) Reset(ctx context.Context) error {
	if err := f.MemStore.Reset(ctx); err != nil {
		return err
	}
	return f.save()
}

func (f *FileStore) save() error {
	f.saveMu.Lock()
	defer f.saveMu.Unlock()

	snap := f.snapshot()
	snap.SavedAt = time.Now().UTC()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("progress: marshal: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("progress: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".progress-*.json")
	if err != nil {
		return fmt.Errorf("progress: open temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("progress: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("progress: write: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("progress: chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("progress: replace %s: %w", f.path, err)
	}
	return nil
}

// snapshot copies the in-memory state under the lock.
func (m *MemStore) snapshot() fileSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := fileSnapshot{
		Sessions:   make([]fileSession, 0, len(m.sessions)),
		Counts:     make(map[string]int, len(m.counts)),
		Screen:     make(map[string]float64, len(m.screen)),
		Struggling: make(map[string]int, len(m.struggling)),
		Focus:      slices.Clone(m.focus),
	}
	for _, s := range m.sessions {
		snap.Sessions = append(snap.Sessions, fileSession(s))
	}
	for k, v := range m.counts {
		snap.Counts[k] = v
	}
	for k, v := range m.screen {
		snap.Screen[k] = v
	}
	for k, v := range m.struggling {
		snap.Struggling[k] = v
	}
	return snap
}

// restore replaces the in-memory state with snap, keeping only the newest
// records that fit the session limit.
func (m *MemStore) restore(snap fileSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = m.sessions[:0]
	for _, s := range snap.Sessions {
		m.sessions = append(m.sessions, Session(s))
	}
	if over := len(m.sessions) - m.maxSessions; over > 0 {
		m.sessions = slices.Clone(m.sessions[over:])
	}
	for k, v := range snap.Counts {
		m.counts[k] = v
	}
	for k, v := range snap.Screen {
		m.screen[k] = v
	}
	for k, v := range snap.Struggling {
		m.struggling[k] = v
	}
	m.focus = slices.Clone(snap.Focus)
}
