// Package app wires the reading challenge engine to its collaborators: the
// sentence bank, the progress store, the screen-time gate and the console.
//
// The App struct owns the long-lived pieces. New resolves defaults for any
// collaborator not injected through an Option, RunChallenge runs one gated
// reading challenge, and Shutdown releases everything in order.
//
// For testing, inject doubles via functional options (WithStore, WithBank,
// WithClock, etc.). When an option is not provided, New builds the
// in-memory store and loads the configured sentence bank.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/readtowatch/internal/config"
	"github.com/MrWong99/readtowatch/internal/observe"
	"github.com/MrWong99/readtowatch/internal/progress"
	"github.com/MrWong99/readtowatch/internal/sentences"
	"github.com/MrWong99/readtowatch/pkg/audio"
	"github.com/MrWong99/readtowatch/pkg/clock"
	"github.com/MrWong99/readtowatch/pkg/recognizer"
)

// ErrChallengeActive is returned by [App.RunChallenge] while another
// challenge is still running.
var ErrChallengeActive = errors.New("app: a challenge is already active")

// ChallengeInfo describes the running challenge.
type ChallengeInfo struct {
	ChallengeID string    `json:"challenge_id"`
	Sentence    string    `json:"sentence"`
	Level       int       `json:"level"`
	StartedAt   time.Time `json:"started_at"`
}

// App owns the collaborators shared by every challenge.
type App struct {
	// mu guards cfg, bank and active.
	mu     sync.RWMutex
	cfg    *config.Config
	bank   *sentences.Bank
	active *ChallengeInfo

	provider recognizer.Provider
	store    progress.Store
	clock    clock.Clock
	metrics  *observe.Metrics
	out      io.Writer
	newID    func() string

	// newCapturer opens the microphone for retell recordings. Nil disables
	// them.
	newCapturer func() audio.Capturer

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a progress store instead of the in-memory default.
func WithStore(s progress.Store) Option {
	return func(a *App) { a.store = s }
}

// WithBank injects a sentence bank instead of loading sentences.path.
func WithBank(b *sentences.Bank) Option {
	return func(a *App) { a.bank = b }
}

// WithClock sets the clock for engine timers and screen-time accounting.
func WithClock(c clock.Clock) Option {
	return func(a *App) { a.clock = c }
}

// WithMetrics enables metric recording.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithOutput sets where the console renderer writes. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// WithIDGenerator overrides challenge ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(a *App) { a.newID = gen }
}

// WithCapturer sets the microphone factory used for retell recordings.
func WithCapturer(fn func() audio.Capturer) Option {
	return func(a *App) { a.newCapturer = fn }
}

// WithCloser registers fn to run during Shutdown.
func WithCloser(fn func() error) Option {
	return func(a *App) { a.closers = append(a.closers, fn) }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App around provider. cfg must already be validated.
func New(cfg *config.Config, provider recognizer.Provider, opts ...Option) (*App, error) {
	if provider == nil {
		return nil, errors.New("app: recognizer provider is required")
	}
	a := &App{
		cfg:      cfg,
		provider: provider,
		clock:    clock.Real(),
		out:      os.Stdout,
		newID:    uuid.NewString,
	}
	for _, o := range opts {
		o(a)
	}

	if a.bank == nil {
		bank, err := sentences.Load(cfg.Sentences.Path)
		if err != nil {
			return nil, fmt.Errorf("app: load sentence bank: %w", err)
		}
		a.bank = bank
	}
	if a.store == nil {
		a.store = progress.NewMemStore(cfg.Progress.MaxSessions)
	}
	return a, nil
}

// Store returns the progress store used by the app.
func (a *App) Store() progress.Store { return a.store }

// Config returns the settings the next challenge will use.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// ApplyConfig installs settings reloaded by a config watcher. They take
// effect with the next challenge; a running challenge keeps its settings.
// A sentence bank that fails to load leaves the current bank in place.
func (a *App) ApplyConfig(cfg *config.Config, diff config.ConfigDiff) {
	var bank *sentences.Bank
	if diff.SentencesChanged {
		b, err := sentences.Load(cfg.Sentences.Path)
		if err != nil {
			slog.Warn("app: keeping previous sentence bank", "path", cfg.Sentences.Path, "err", err)
		} else {
			bank = b
		}
	}

	a.mu.Lock()
	a.cfg = cfg
	if bank != nil {
		a.bank = bank
	}
	a.mu.Unlock()

	if diff.RestartRequired() {
		slog.Warn("app: some settings only apply after a restart",
			"recognizer", diff.RecognizerChanged,
			"progress", diff.ProgressChanged,
			"listen_addr", diff.ListenAddrChanged,
		)
	}
	slog.Info("app: settings updated",
		"challenge", diff.ChallengeChanged,
		"gate", diff.GateChanged,
		"sentences", diff.SentencesChanged,
	)
}

// Status reports the running challenge for the /status endpoint. It returns
// nil when no challenge is active.
func (a *App) Status() any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.active == nil {
		return nil
	}
	info := *a.active
	return info
}

func (a *App) snapshot() (*config.Config, *sentences.Bank) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg, a.bank
}

func (a *App) claim(info ChallengeInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.active != nil {
		return fmt.Errorf("%w (id=%s)", ErrChallengeActive, a.active.ChallengeID)
	}
	a.active = &info
	return nil
}

func (a *App) release() {
	a.mu.Lock()
	a.active = nil
	a.mu.Unlock()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown runs the registered closers in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
