package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/readtowatch/internal/challenge"
	"github.com/MrWong99/readtowatch/internal/config"
	"github.com/MrWong99/readtowatch/internal/observe"
	"github.com/MrWong99/readtowatch/internal/progress"
	"github.com/MrWong99/readtowatch/pkg/recognizer"
)

var (
	// ErrScreenLimit is returned when today's screen time has reached the
	// configured daily limit.
	ErrScreenLimit = errors.New("app: daily screen time limit reached")

	// ErrUnlocked is returned when the parent code ended a challenge early.
	ErrUnlocked = errors.New("app: challenge unlocked by parent")

	// ErrAborted is returned when console input ended before the sentence
	// was read.
	ErrAborted = errors.New("app: challenge aborted")
)

// closeTimeout bounds engine teardown once a challenge has ended.
const closeTimeout = 2 * time.Second

// Result describes how a challenge ended.
type Result struct {
	ChallengeID string
	Sentence    string

	// Completed is true when every word was read or helped.
	Completed bool

	// Summary is set when Completed is true.
	Summary challenge.Summary

	// Mastery is the first-attempt mastery percentage of a completed
	// sentence.
	Mastery float64

	// ScreenMinutes is the time spent in the challenge, added to today's
	// screen time.
	ScreenMinutes float64

	// RetellFile is the WAV recording made after a completed sentence when
	// challenge.ask_retell is set.
	RetellFile string
}

// RunChallenge runs one reading challenge and blocks until it ends. The
// sentence is chosen from the configured level, biased towards struggling
// and focus words. commands carries console input; a closed channel aborts
// the challenge with [ErrAborted].
//
// RunChallenge returns [ErrScreenLimit] without starting when the daily
// limit is used up, [ErrUnlocked] when the parent code was entered and an
// error wrapping [recognizer.ErrUnsupported] when no recognizer is
// available. Only completed sentences are recorded as sessions; elapsed time
// is always added to today's screen time. With challenge.ask_retell set, a
// completed sentence is followed by a retell recording before the session
// is stored.
func (a *App) RunChallenge(ctx context.Context, commands <-chan Command) (Result, error) {
	cfg, bank := a.snapshot()
	console := NewConsole(a.out)
	now := a.clock.Now()

	if limit := cfg.Gate.DailyScreenLimit; limit > 0 {
		used, err := a.store.ScreenTime(ctx, now)
		if err != nil {
			return Result{}, fmt.Errorf("app: read screen time: %w", err)
		}
		if used >= float64(limit) {
			console.Limit(used, limit)
			return Result{}, ErrScreenLimit
		}
	}

	struggling, err := a.store.StrugglingWords(ctx)
	if err != nil {
		slog.Warn("app: failed to load struggling words", "err", err)
		struggling = nil
	}
	focus, err := a.store.FocusWords(ctx)
	if err != nil {
		slog.Warn("app: failed to load focus words", "err", err)
		focus = nil
	}

	res := Result{
		ChallengeID: a.newID(),
		Sentence:    bank.Choose(cfg.Challenge.Level, struggling, focus),
	}
	if err := a.claim(ChallengeInfo{
		ChallengeID: res.ChallengeID,
		Sentence:    res.Sentence,
		Level:       cfg.Challenge.Level,
		StartedAt:   now,
	}); err != nil {
		return Result{}, err
	}
	defer a.release()

	ctx, span := observe.StartChallengeSpan(ctx, res.ChallengeID, cfg.Challenge.Level)
	log := observe.Logger(ctx).With("challenge_id", res.ChallengeID)
	log.Info("app: challenge started", "sentence", res.Sentence, "level", cfg.Challenge.Level)

	runErr := a.run(ctx, cfg, console, struggling, commands, &res)

	res.ScreenMinutes = a.clock.Now().Sub(now).Minutes()
	bg := context.WithoutCancel(ctx)
	if err := a.store.AddScreenTime(bg, now, res.ScreenMinutes); err != nil {
		log.Warn("app: failed to record screen time", "err", err)
	}
	if res.Completed && cfg.Challenge.AskRetell {
		path, err := a.retell(ctx, cfg, console, commands, log)
		if err != nil {
			log.Warn("app: retell recording failed", "err", err)
			console.Warn("Could not access the microphone for recording.")
		}
		res.RetellFile = path
	}
	if res.Completed {
		if err := a.record(bg, &res); err != nil {
			log.Warn("app: failed to record session", "err", err)
			runErr = errors.Join(runErr, err)
		}
	}

	spanErr := runErr
	if errors.Is(runErr, ErrUnlocked) {
		spanErr = nil
	}
	observe.EndSpan(span, spanErr)
	log.Info("app: challenge ended", "completed", res.Completed, "minutes", res.ScreenMinutes, "err", runErr)
	return res, runErr
}

// run drives the engine on its own loop until the sentence completes, the
// challenge is cancelled or recognition turns out to be unsupported.
func (a *App) run(ctx context.Context, cfg *config.Config, console *Console, struggling map[string]int, commands <-chan Command, res *Result) error {
	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loop := challenge.NewLoop()
	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error { return loop.Run(gctx) })
	defer func() {
		cancel()
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("app: challenge loop stopped", "err", err)
		}
	}()

	done := make(chan challenge.Summary, 1)
	unsupported := make(chan struct{}, 1)
	signals := challenge.ObserverFuncs{
		SentenceComplete: func(s challenge.Summary) {
			select {
			case done <- s:
			default:
			}
		},
		RecognitionUnsupported: func() {
			select {
			case unsupported <- struct{}{}:
			default:
			}
		},
	}

	engCfg := cfg.Engine()
	var (
		eng      *challenge.Engine
		beginErr error
	)
	if err := loop.Call(ctx, func() {
		eng = challenge.New(gctx, a.provider, engCfg,
			challenge.WithClock(a.clock),
			challenge.WithDispatcher(loop),
			challenge.WithObserver(challenge.Multi{console, signals}),
			challenge.WithMatcher(cfg.Matcher()),
			challenge.WithMetrics(a.metrics),
			challenge.WithStrugglingWords(struggling),
			challenge.WithIDGenerator(func() string { return res.ChallengeID }),
		)
		if _, beginErr = eng.BeginSentence(res.Sentence); beginErr != nil {
			return
		}
		words := eng.Words()
		tokens := make([]string, len(words))
		for i, w := range words {
			tokens[i] = w.Token
		}
		console.Show(tokens)
		eng.Start(false)
	}); err != nil {
		return fmt.Errorf("app: start challenge: %w", err)
	}
	defer func() {
		closeCtx, cancelClose := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancelClose()
		var closeErr error
		err := loop.Call(closeCtx, func() { closeErr = eng.Close() })
		switch {
		case errors.Is(err, challenge.ErrLoopStopped):
			// Nothing else can reach the engine once its loop is gone.
			closeErr = eng.Close()
		case err != nil:
			closeErr = err
		}
		if closeErr != nil {
			slog.Warn("app: failed to close challenge engine", "challenge_id", res.ChallengeID, "err", closeErr)
		}
	}()
	if beginErr != nil {
		return fmt.Errorf("app: begin challenge: %w", beginErr)
	}

	call := func(fn func()) error {
		if err := loop.Call(ctx, fn); err != nil {
			return fmt.Errorf("app: engine call: %w", err)
		}
		return nil
	}

	for {
		select {
		case s := <-done:
			res.Completed = true
			res.Summary = s
			return nil

		case <-unsupported:
			return fmt.Errorf("app: %w", recognizer.ErrUnsupported)

		case cmd, ok := <-commands:
			if !ok {
				_ = call(eng.Abort)
				return ErrAborted
			}
			if cmd.Kind == CommandUnlock && cmd.Arg != "" && cmd.Arg == cfg.Gate.ParentCode {
				console.Notice("Unlocked.")
				_ = call(eng.Abort)
				return ErrUnlocked
			}
			if err := a.handle(call, eng, console, cmd); err != nil {
				return err
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// handle applies a console command other than a correct unlock.
func (a *App) handle(call func(func()) error, eng *challenge.Engine, console *Console, cmd Command) error {
	var ok bool
	switch cmd.Kind {
	case CommandSay:
		return call(func() { eng.SubmitRecognizedText(cmd.Arg) })
	case CommandHelp:
		if err := call(func() { ok = eng.Help() }); err != nil {
			return err
		}
	case CommandSkip:
		if err := call(func() { ok = eng.Skip() }); err != nil {
			return err
		}
	case CommandMic:
		return call(func() { eng.Start(true) })
	case CommandUnlock:
		console.Warn("Wrong code.")
		return nil
	case CommandDone:
		console.Notice("Nothing to finish yet. Keep reading!")
		return nil
	default:
		console.Notice(fmt.Sprintf("Unknown command %q. Try /help, /skip, /mic or /unlock CODE.", cmd.Arg))
		return nil
	}
	if !ok {
		console.Notice("Hold on, the next word is coming.")
	}
	return nil
}

// record stores a completed sentence and its helped words.
func (a *App) record(ctx context.Context, res *Result) error {
	s := res.Summary
	res.Mastery = progress.FirstAttemptMastery(s.FirstTryCorrect, s.TotalWords)
	var errs []error
	if err := a.store.RecordSession(ctx, progress.Session{
		ChallengeID:         res.ChallengeID,
		Sentence:            res.Sentence,
		WordsTotal:          s.TotalWords,
		WordsCorrect:        s.WordsCorrect(),
		WordsHelped:         len(s.HelpedWords),
		FirstAttemptMastery: res.Mastery,
		Timestamp:           s.CompletedAt,
		RetellFile:          res.RetellFile,
	}); err != nil {
		errs = append(errs, fmt.Errorf("app: record session: %w", err))
	}
	if len(s.HelpedWords) > 0 {
		if err := a.store.AddStrugglingWords(ctx, s.HelpedWords); err != nil {
			errs = append(errs, fmt.Errorf("app: record struggling words: %w", err))
		}
	}
	return errors.Join(errs...)
}
