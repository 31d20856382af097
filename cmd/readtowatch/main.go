// Command readtowatch runs read-aloud challenges: the reader has to read a
// sentence word by word before screen time continues.
//
// Usage:
//
//	readtowatch [-config file] [command]
//
// Commands:
//
//	challenge            run one reading challenge (default)
//	stats                print progress, streak and struggling words
//	focus add WORD       add a focus word
//	focus remove WORD    remove a focus word
//	focus list           list focus words
//	export [-o file]     write all sessions as CSV
//	reset                delete all progress
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/readtowatch/internal/app"
	"github.com/MrWong99/readtowatch/internal/config"
	"github.com/MrWong99/readtowatch/internal/health"
	"github.com/MrWong99/readtowatch/internal/observe"
	"github.com/MrWong99/readtowatch/internal/progress"
	"github.com/MrWong99/readtowatch/internal/progress/postgres"
	"github.com/MrWong99/readtowatch/internal/resilience"
	"github.com/MrWong99/readtowatch/pkg/audio"
	audiomalgo "github.com/MrWong99/readtowatch/pkg/audio/malgo"
	"github.com/MrWong99/readtowatch/pkg/recognizer"
	"github.com/MrWong99/readtowatch/pkg/recognizer/deepgram"
	"github.com/MrWong99/readtowatch/pkg/recognizer/typed"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "", "path to the YAML configuration file (defaults apply when empty)")
	flag.Usage = usage
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	var (
		cfg     *config.Config
		watcher *config.Watcher
		err     error
	)
	logLevel := new(slog.LevelVar)
	var application *app.App
	if *configPath == "" {
		cfg = config.Default()
	} else {
		watcher, err = config.NewWatcher(*configPath, func(old, next *config.Config, diff config.ConfigDiff) {
			if diff.LogLevelChanged {
				logLevel.Set(slogLevel(diff.NewLogLevel))
				slog.Info("log level changed", "level", diff.NewLogLevel)
			}
			if application != nil {
				application.ApplyConfig(next, diff)
			}
		})
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(os.Stderr, "readtowatch: config file %q not found\n", *configPath)
			} else {
				fmt.Fprintf(os.Stderr, "readtowatch: %v\n", err)
			}
			return 1
		}
		cfg = watcher.Current()
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(newLogger(logLevel))

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Progress store ────────────────────────────────────────────────────────
	store, ping, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open progress store", "err", err)
		return 1
	}
	defer closeStore()

	command := flag.Arg(0)
	if command == "" {
		command = "challenge"
	}
	args := flag.Args()
	if len(args) > 0 {
		args = args[1:]
	}

	switch command {
	case "challenge":
	case "stats":
		return runStats(ctx, store, os.Stdout)
	case "focus":
		return runFocus(ctx, store, args, os.Stdout)
	case "export":
		return runExport(ctx, store, args)
	case "reset":
		if err := store.Reset(ctx); err != nil {
			slog.Error("reset failed", "err", err)
			return 1
		}
		fmt.Println("All progress deleted.")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "readtowatch: unknown command %q\n", command)
		usage()
		return 2
	}

	// ── Telemetry ─────────────────────────────────────────────────────────────
	tel, err := observe.Init(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Recognizer ────────────────────────────────────────────────────────────
	// Validate only accepts typed as the primary provider, so console
	// speech never has to reach a fallback.
	var speech chan string
	if cfg.Recognizer.Provider.Name == "typed" {
		speech = make(chan string)
	}
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, speech)

	provider, err := buildRecognizer(cfg, reg)
	if err != nil {
		slog.Error("failed to build recognizer", "err", err)
		return 1
	}

	application, err = app.New(cfg, provider,
		app.WithStore(store),
		app.WithMetrics(tel.Metrics),
		app.WithCapturer(func() audio.Capturer { return audiomalgo.New(audio.DefaultCaptureConfig()) }),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	printStartupSummary(cfg, reg)

	// ── Run ───────────────────────────────────────────────────────────────────
	commands := make(chan app.Command)
	go func() {
		if err := app.ReadInput(ctx, os.Stdin, commands, speech); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("console input error", "err", err)
		}
	}()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)

	if addr := cfg.Server.ListenAddr; addr != "" {
		srv := newOpsServer(addr, tel, application, provider, ping)
		g.Go(func() error {
			slog.Info("ops server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("ops server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	if watcher != nil {
		g.Go(func() error { return watcher.Run(gctx) })
	}

	exit := 0
	g.Go(func() error {
		defer cancelRun()
		res, err := application.RunChallenge(gctx, commands)
		exit = challengeExitCode(res, err)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("run error", "err", err)
		exit = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	return exit
}

func usage() {
	fmt.Fprint(flag.CommandLine.Output(), `Usage: readtowatch [-config file] [command]

Commands:
  challenge            run one reading challenge (default)
  stats                print progress, streak and struggling words
  focus add WORD       add a focus word
  focus remove WORD    remove a focus word
  focus list           list focus words
  export [-o file]     write all sessions as CSV
  reset                delete all progress

During a challenge, type what you read (or speak it) and use:
  /help  /skip  /mic  /unlock CODE

Flags:
`)
	flag.PrintDefaults()
}

// challengeExitCode maps the outcome of a challenge to a process exit code.
func challengeExitCode(res app.Result, err error) int {
	switch {
	case err == nil:
		slog.Info("challenge complete", "challenge_id", res.ChallengeID, "mastery", res.Mastery)
		return 0
	case errors.Is(err, app.ErrUnlocked):
		return 0
	case errors.Is(err, app.ErrScreenLimit):
		return 3
	case errors.Is(err, context.Canceled), errors.Is(err, app.ErrAborted):
		slog.Info("challenge abandoned", "err", err)
		return 130
	default:
		slog.Error("challenge failed", "err", err)
		return 1
	}
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires the built-in recognizer factories into reg.
// Typed sessions read from lines, which carries console input that is not a
// command.
func registerBuiltinProviders(reg *config.Registry, lines <-chan string) {
	reg.Register("deepgram", func(entry config.ProviderEntry) (recognizer.Provider, error) {
		capture := audio.DefaultCaptureConfig()
		capture.SampleRate = entry.OptionInt("sample_rate", capture.SampleRate)

		opts := []deepgram.Option{
			deepgram.WithSampleRate(capture.SampleRate),
			deepgram.WithCapturer(func() audio.Capturer { return audiomalgo.New(capture) }),
		}
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		if ms := entry.OptionInt("utterance_end_ms", 0); ms > 0 {
			opts = append(opts, deepgram.WithUtteranceEnd(time.Duration(ms)*time.Millisecond))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.Register("typed", func(config.ProviderEntry) (recognizer.Provider, error) {
		return typed.New(lines), nil
	})

	for _, name := range reg.Names() {
		slog.Debug("registered recognizer", "name", name)
	}
}

// buildRecognizer creates the configured recognizer and its fallbacks behind
// per-provider circuit breakers.
func buildRecognizer(cfg *config.Config, reg *config.Registry) (*resilience.RecognizerFallback, error) {
	primary, err := reg.Create(cfg.Recognizer.Provider)
	if err != nil {
		return nil, err
	}
	fb := resilience.NewRecognizerFallback(primary, cfg.Recognizer.Provider.Name, resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.Recognizer.Breaker.MaxFailures,
			ResetTimeout: cfg.Recognizer.Breaker.ResetTimeout,
		},
	})
	slog.Info("recognizer created", "name", cfg.Recognizer.Provider.Name, "model", cfg.Recognizer.Provider.Model)

	for _, entry := range cfg.Recognizer.Fallbacks {
		p, err := reg.Create(entry)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("fallback recognizer not available, skipping", "name", entry.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create fallback recognizer %q: %w", entry.Name, err)
		}
		fb.AddFallback(entry.Name, p)
		slog.Info("fallback recognizer added", "name", entry.Name)
	}
	return fb, nil
}

// ── Progress store ────────────────────────────────────────────────────────────

// openStore returns the PostgreSQL store when a DSN is configured, a JSON
// file store when a path is, and an in-memory store otherwise. ping is nil
// for the file and memory stores.
func openStore(ctx context.Context, cfg *config.Config) (store progress.Store, ping func(context.Context) error, closeFn func(), err error) {
	if cfg.Progress.PostgresDSN == "" {
		if cfg.Progress.Path != "" {
			fs, err := progress.OpenFileStore(cfg.Progress.Path, cfg.Progress.MaxSessions)
			if err != nil {
				return nil, nil, nil, err
			}
			slog.Info("progress store opened", "backend", "file", "path", fs.Path())
			return fs, nil, func() {}, nil
		}
		slog.Info("progress kept in memory; set progress.path or progress.postgres_dsn to persist it")
		return progress.NewMemStore(cfg.Progress.MaxSessions), nil, func() {}, nil
	}
	pg, err := postgres.Open(ctx, cfg.Progress.PostgresDSN, cfg.Progress.MaxSessions)
	if err != nil {
		return nil, nil, nil, err
	}
	slog.Info("progress store connected", "backend", "postgres")
	return pg, pg.Ping, pg.Close, nil
}

// ── Ops server ────────────────────────────────────────────────────────────────

func newOpsServer(addr string, tel *observe.Telemetry, application *app.App, rec *resilience.RecognizerFallback, ping func(context.Context) error) *http.Server {
	opts := []health.Option{
		health.WithStatus(application.Status),
		health.WithChecker("recognizer", func(context.Context) error {
			group := rec.Group()
			for _, name := range group.Names() {
				if group.Breaker(name).State() != resilience.StateOpen {
					return nil
				}
			}
			return resilience.ErrCircuitOpen
		}),
	}
	if ping != nil {
		opts = append(opts, health.WithChecker("progress", ping))
	}

	mux := http.NewServeMux()
	health.New(opts...).Register(mux)
	mux.Handle("GET /metrics", tel.Handler())

	return &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(tel.Metrics)(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// ── Subcommands ───────────────────────────────────────────────────────────────

func runStats(ctx context.Context, store progress.Store, w io.Writer) int {
	stats, err := progress.ComputeStats(ctx, store, time.Now())
	if err != nil {
		slog.Error("failed to compute stats", "err", err)
		return 1
	}
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true)
	label := r.NewStyle().Faint(true)

	fmt.Fprintln(w, title.Render("Reading progress"))
	fmt.Fprintf(w, "  %s %d\n", label.Render("Sentences today:   "), stats.TodayCount)
	fmt.Fprintf(w, "  %s %d day(s)\n", label.Render("Streak:            "), stats.Streak)
	fmt.Fprintf(w, "  %s %d\n", label.Render("Sessions kept:     "), stats.TotalSessions)
	fmt.Fprintf(w, "  %s %.1f%%\n", label.Render("First-try mastery: "), stats.MasteryPercent)
	fmt.Fprintf(w, "  %s %.0f min\n", label.Render("Screen time today: "), stats.TodayScreenTime)

	if len(stats.StrugglingWords) > 0 {
		fmt.Fprintln(w, title.Render("Struggling words"))
		for _, wc := range stats.StrugglingWords {
			fmt.Fprintf(w, "  %-16s %d\n", wc.Word, wc.Count)
		}
	}
	if len(stats.FocusWords) > 0 {
		fmt.Fprintln(w, title.Render("Focus words"))
		fmt.Fprintf(w, "  %s\n", strings.Join(stats.FocusWords, ", "))
	}
	if len(stats.RecentSessions) > 0 {
		fmt.Fprintln(w, title.Render("Recent sessions"))
		for _, s := range stats.RecentSessions {
			fmt.Fprintf(w, "  %s  %5.1f%%  %s\n", s.Timestamp.Local().Format("2006-01-02 15:04"), s.FirstAttemptMastery, s.Sentence)
		}
	}
	return 0
}

func runFocus(ctx context.Context, store progress.Store, args []string, w io.Writer) int {
	if len(args) == 0 {
		args = []string{"list"}
	}
	switch args[0] {
	case "list":
		words, err := store.FocusWords(ctx)
		if err != nil {
			slog.Error("failed to list focus words", "err", err)
			return 1
		}
		for _, word := range words {
			fmt.Fprintln(w, word)
		}
		return 0
	case "add":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: readtowatch focus add WORD")
			return 2
		}
		word, err := store.AddFocusWord(ctx, args[1])
		switch {
		case errors.Is(err, progress.ErrInvalidWord):
			fmt.Fprintf(os.Stderr, "readtowatch: %q is not an allowed word\n", args[1])
			return 1
		case errors.Is(err, progress.ErrDuplicateWord):
			fmt.Fprintf(w, "%q is already a focus word\n", args[1])
			return 0
		case err != nil:
			slog.Error("failed to add focus word", "err", err)
			return 1
		}
		fmt.Fprintf(w, "added %q\n", word)
		return 0
	case "remove":
		if len(args) != 2 {
			fmt.Fprintln(os.Stderr, "usage: readtowatch focus remove WORD")
			return 2
		}
		if err := store.RemoveFocusWord(ctx, strings.ToLower(strings.TrimSpace(args[1]))); err != nil {
			slog.Error("failed to remove focus word", "err", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "readtowatch: unknown focus command %q\n", args[0])
		return 2
	}
}

func runExport(ctx context.Context, store progress.Store, args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("o", "", "write CSV to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		slog.Error("failed to load sessions", "err", err)
		return 1
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			slog.Error("failed to create export file", "path", *out, "err", err)
			return 1
		}
		defer f.Close()
		w = f
	}
	if err := progress.ExportCSV(w, sessions); err != nil {
		slog.Error("export failed", "err", err)
		return 1
	}
	if *out != "" {
		slog.Info("sessions exported", "path", *out, "count", len(sessions))
	}
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, reg *config.Registry) {
	fallbacks := make([]string, 0, len(cfg.Recognizer.Fallbacks))
	for _, f := range cfg.Recognizer.Fallbacks {
		fallbacks = append(fallbacks, f.Name)
	}
	limit := "unlimited"
	if cfg.Gate.DailyScreenLimit > 0 {
		limit = fmt.Sprintf("%d min", cfg.Gate.DailyScreenLimit)
	}
	slog.Info("readtowatch starting",
		"version", version,
		"recognizer", cfg.Recognizer.Provider.Name,
		"fallbacks", fallbacks,
		"available", reg.Names(),
		"language", cfg.Recognizer.Language,
		"level", cfg.Challenge.Level,
		"screen_limit", limit,
		"listen_addr", cfg.Server.ListenAddr,
	)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
