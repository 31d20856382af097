// Package challenge implements the reading challenge engine: the per-word
// progression state machine and the speech-recognizer lifecycle manager that
// feeds it.
//
// An [Engine] is single-threaded. Every method must be called from the
// goroutine that runs its [Dispatcher] (for a [Loop], inside [Loop.Call] or
// [Loop.Dispatch]). Recognizer events and timer callbacks are posted to the
// same Dispatcher, so no engine state is ever touched concurrently.
//
// Typical use:
//
//	loop := challenge.NewLoop()
//	go loop.Run(ctx)
//	var eng *challenge.Engine
//	_ = loop.Call(ctx, func() {
//	    eng = challenge.New(ctx, provider, challenge.DefaultConfig(),
//	        challenge.WithDispatcher(loop), challenge.WithObserver(ui))
//	    _ = eng.BeginSentence("The cat sat.")
//	    eng.Start(false)
//	})
package challenge

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/readtowatch/internal/observe"
	"github.com/MrWong99/readtowatch/pkg/clock"
	"github.com/MrWong99/readtowatch/pkg/recognizer"
	"github.com/MrWong99/readtowatch/pkg/wordmatch"
)

// Config holds the engine's tunable constants.
type Config struct {
	// Language is the single locale the recognizer listens for.
	Language string

	// MaxAttempts is the number of unrecognised attempts after which a word
	// is revealed. Zero disables automatic help.
	MaxAttempts int

	// SuppressionDelay is how long to wait after speech ends before
	// declaring the active word unrecognised.
	SuppressionDelay time.Duration

	// SettleDelay is the pause between revealing a word and moving on.
	SettleDelay time.Duration

	// Restart controls automatic recognizer restarts.
	Restart RestartPolicy

	// ProviderName labels logs and metrics.
	ProviderName string
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Language:         "en-US",
		MaxAttempts:      2,
		SuppressionDelay: 800 * time.Millisecond,
		SettleDelay:      1100 * time.Millisecond,
		Restart:          DefaultRestartPolicy(),
	}
}

// Option is a functional option for [New].
type Option func(*Engine)

// WithClock sets the clock used for suppression, settle and restart timers.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithDispatcher sets the dispatcher that serialises callbacks. Defaults to
// an [Inline] dispatcher.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Engine) { e.dispatch = d }
}

// WithObserver sets the event observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.obs = o }
}

// WithMatcher replaces the default word matcher.
func WithMatcher(m *wordmatch.Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithMetrics enables metric recording.
func WithMetrics(m *observe.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithStrugglingWords seeds the cumulative struggling-word counts, usually
// loaded from the progress store.
func WithStrugglingWords(counts map[string]int) Option {
	return func(e *Engine) {
		e.seed = make(map[string]int, len(counts))
		for k, v := range counts {
			e.seed[k] = v
		}
	}
}

// WithIDGenerator overrides challenge ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// Engine runs reading challenges against a recognizer provider.
type Engine struct {
	ctx      context.Context
	clock    clock.Clock
	dispatch Dispatcher
	obs      Observer
	matcher  *wordmatch.Matcher
	metrics  *observe.Metrics
	seed     map[string]int
	newID    func() string

	running bool
	prog    *progression
	life    *lifecycle
}

// New creates an Engine. ctx bounds recognizer sessions created by the
// engine; cancelling it does not stop the engine by itself.
func New(ctx context.Context, provider recognizer.Provider, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		ctx:   ctx,
		clock: clock.Real(),
		obs:   NopObserver{},
		newID: func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(e)
	}
	if e.dispatch == nil {
		e.dispatch = &Inline{}
	}
	if e.matcher == nil {
		e.matcher = wordmatch.New()
	}
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}

	e.prog = &progression{
		ctx:         ctx,
		clock:       e.clock,
		dispatch:    e.dispatch,
		matcher:     e.matcher,
		obs:         e.obs,
		metrics:     e.metrics,
		maxAttempts: cfg.MaxAttempts,
		settleDelay: cfg.SettleDelay,
		struggling:  e.seed,
	}
	e.life = &lifecycle{
		ctx:      ctx,
		provider: provider,
		cfg: recognizer.Config{
			Language:       cfg.Language,
			Continuous:     true,
			InterimResults: true,
		},
		name:     cfg.ProviderName,
		clock:    e.clock,
		dispatch: e.dispatch,
		obs:      e.obs,
		metrics:  e.metrics,
		policy:   cfg.Restart,
		suppress: cfg.SuppressionDelay,
		target:   e.prog,
	}
	e.prog.onAdvance = e.life.cancelSuppression
	e.prog.onComplete = func(Summary) {
		e.life.stop()
		e.finish()
	}
	return e
}

// Begin starts a new challenge over tokens and returns its ID. The tokens
// must already be normalised. It returns [ErrEmptySequence] if tokens is
// empty.
func (e *Engine) Begin(tokens []string) (string, error) {
	id := e.newID()
	if err := e.prog.begin(id, append([]string(nil), tokens...)); err != nil {
		return "", err
	}
	e.life.cancelSuppression()
	e.life.resetBackoff()
	if !e.running {
		e.running = true
		e.metrics.ChallengeStarted(e.ctx)
	}
	return id, nil
}

// BeginSentence tokenizes sentence and calls [Engine.Begin].
func (e *Engine) BeginSentence(sentence string) (string, error) {
	return e.Begin(wordmatch.Tokenize(sentence))
}

// Start asks the recognizer to listen. fromGesture marks a start triggered by
// the user, which resets the restart counter.
func (e *Engine) Start(fromGesture bool) {
	e.life.start(fromGesture)
}

// Stop stops listening without ending the challenge.
func (e *Engine) Stop() {
	e.life.stop()
}

// Abort stops listening and abandons the current challenge. No completion
// event is emitted.
func (e *Engine) Abort() {
	e.life.stop()
	e.prog.abort()
	e.finish()
}

// Close aborts the challenge and releases the recognizer session.
func (e *Engine) Close() error {
	e.prog.abort()
	e.finish()
	return e.life.close()
}

// Help reveals the active word. It returns false if no word is active.
func (e *Engine) Help() bool {
	return e.prog.help()
}

// Skip is an alias for [Engine.Help].
func (e *Engine) Skip() bool {
	return e.prog.help()
}

// SubmitRecognizedText checks text against the active word and advances on
// a match. Recognizer results reach the engine through this same path.
func (e *Engine) SubmitRecognizedText(text string) bool {
	return e.prog.submit(text)
}

// ChallengeID returns the ID of the current challenge.
func (e *Engine) ChallengeID() string { return e.prog.id }

// Words returns a copy of the per-word state.
func (e *Engine) Words() []WordState { return e.prog.snapshot() }

// Index returns the index of the active word. It equals len(Words()) once
// the sentence is complete.
func (e *Engine) Index() int { return e.prog.index }

// Complete reports whether the sentence has been read to the end.
func (e *Engine) Complete() bool { return e.prog.complete }

// Helped returns the words revealed so far in this challenge.
func (e *Engine) Helped() []string { return append([]string(nil), e.prog.helped...) }

// StrugglingWords returns a copy of the cumulative help counts per word.
func (e *Engine) StrugglingWords() map[string]int { return e.prog.strugglingCopy() }

// Listening reports whether the recognizer session is believed active.
func (e *Engine) Listening() bool { return e.life.active }

// Unsupported reports whether recognition was found to be unavailable.
func (e *Engine) Unsupported() bool { return e.life.unsupported }

func (e *Engine) finish() {
	if !e.running {
		return
	}
	e.running = false
	e.metrics.ChallengeEnded(e.ctx)
}
