package progress

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// MemStore is an in-memory [Store]. It is used when no database is
// configured and in tests.
type MemStore struct {
	maxSessions int

	mu         sync.Mutex
	sessions   []Session
	counts     map[string]int
	screen     map[string]float64
	struggling map[string]int
	focus      []string
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty store keeping at most maxSessions records.
// A non-positive limit selects [DefaultMaxSessions].
func NewMemStore(maxSessions int) *MemStore {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	return &MemStore{
		maxSessions: maxSessions,
		counts:      make(map[string]int),
		screen:      make(map[string]float64),
		struggling:  make(map[string]int),
	}
}

// RecordSession implements [Store].
func (m *MemStore) RecordSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = append(m.sessions, s)
	if over := len(m.sessions) - m.maxSessions; over > 0 {
		m.sessions = slices.Clone(m.sessions[over:])
	}
	m.counts[Day(s.Timestamp)]++
	return nil
}

// Sessions implements [Store].
func (m *MemStore) Sessions(context.Context) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sessions), nil
}

// DailyCounts implements [Store].
func (m *MemStore) DailyCounts(context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out, nil
}

// AddScreenTime implements [Store].
func (m *MemStore) AddScreenTime(_ context.Context, day time.Time, minutes float64) error {
	if minutes < 0 {
		return fmt.Errorf("progress: negative screen time %.2f", minutes)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.screen[Day(day)] += minutes
	return nil
}

// ScreenTime implements [Store].
func (m *MemStore) ScreenTime(_ context.Context, day time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.screen[Day(day)], nil
}

// StrugglingWords implements [Store].
func (m *MemStore) StrugglingWords(context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.struggling))
	for k, v := range m.struggling {
		out[k] = v
	}
	return out, nil
}

// AddStrugglingWords implements [Store].
func (m *MemStore) AddStrugglingWords(_ context.Context, words []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range words {
		m.struggling[w]++
	}
	return nil
}

// FocusWords implements [Store].
func (m *MemStore) FocusWords(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.focus), nil
}

// AddFocusWord implements [Store].
func (m *MemStore) AddFocusWord(_ context.Context, raw string) (string, error) {
	word, err := NormalizeFocusWord(raw)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if slices.Contains(m.focus, word) {
		return "", fmt.Errorf("%w: %q", ErrDuplicateWord, word)
	}
	m.focus = append(m.focus, word)
	return word, nil
}

// RemoveFocusWord implements [Store].
func (m *MemStore) RemoveFocusWord(_ context.Context, word string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.focus = slices.DeleteFunc(m.focus, func(w string) bool { return w == word })
	return nil
}

// Reset implements [Store].
func (m *MemStore) Reset(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = nil
	m.focus = nil
	clear(m.counts)
	clear(m.screen)
	clear(m.struggling)
	return nil
}
