package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/readtowatch/internal/app"
	"github.com/MrWong99/readtowatch/internal/config"
	"github.com/MrWong99/readtowatch/internal/progress"
)

func TestChallengeExitCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"completed", nil, 0},
		{"unlocked", app.ErrUnlocked, 0},
		{"screen limit", app.ErrScreenLimit, 3},
		{"aborted", app.ErrAborted, 130},
		{"cancelled", context.Canceled, 130},
		{"failure", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := challengeExitCode(app.Result{}, tt.err); got != tt.want {
				t.Errorf("challengeExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()
	tests := map[config.LogLevel]slog.Level{
		config.LogDebug: slog.LevelDebug,
		config.LogInfo:  slog.LevelInfo,
		config.LogWarn:  slog.LevelWarn,
		config.LogError: slog.LevelError,
		"":              slog.LevelInfo,
	}
	for in, want := range tests {
		if got := slogLevel(in); got != want {
			t.Errorf("slogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuildRecognizer(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Recognizer.Fallbacks = []config.ProviderEntry{
		{Name: "deepgram", APIKey: "key"},
		{Name: "whisper"},
	}
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, make(chan string))

	fb, err := buildRecognizer(cfg, reg)
	if err != nil {
		t.Fatalf("buildRecognizer: %v", err)
	}
	if got := fb.Group().Names(); !slices.Equal(got, []string{"typed", "deepgram"}) {
		t.Errorf("providers = %v, want [typed deepgram]", got)
	}
}

func TestBuildRecognizer_DeepgramNeedsKey(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Recognizer.Provider = config.ProviderEntry{Name: "deepgram"}
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, nil)

	if _, err := buildRecognizer(cfg, reg); err == nil {
		t.Fatal("buildRecognizer without api_key returned nil error")
	}
}

func TestRunFocus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := progress.NewMemStore(0)
	var out bytes.Buffer

	if code := runFocus(ctx, store, []string{"add", "Rabbit"}, &out); code != 0 {
		t.Fatalf("focus add exit = %d", code)
	}
	if code := runFocus(ctx, store, []string{"add", "rabbit"}, &out); code != 0 {
		t.Errorf("duplicate focus add exit = %d, want 0", code)
	}
	if code := runFocus(ctx, store, []string{"add", "123!"}, &out); code != 1 {
		t.Errorf("focus add with no letters exit = %d, want 1", code)
	}
	if code := runFocus(ctx, store, []string{"add"}, &out); code != 2 {
		t.Errorf("focus add without word exit = %d, want 2", code)
	}

	out.Reset()
	if code := runFocus(ctx, store, nil, &out); code != 0 {
		t.Fatalf("focus list exit = %d", code)
	}
	if got := strings.TrimSpace(out.String()); got != "rabbit" {
		t.Errorf("focus list = %q, want rabbit", got)
	}

	if code := runFocus(ctx, store, []string{"remove", "Rabbit"}, &out); code != 0 {
		t.Fatalf("focus remove exit = %d", code)
	}
	if words, _ := store.FocusWords(ctx); len(words) != 0 {
		t.Errorf("focus words after remove = %v", words)
	}
	if code := runFocus(ctx, store, []string{"shuffle"}, &out); code != 2 {
		t.Errorf("unknown focus command exit = %d, want 2", code)
	}
}

func TestRunStats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := progress.NewMemStore(0)
	_ = store.RecordSession(ctx, progress.Session{
		ChallengeID:         "a",
		Sentence:            "The cat sat.",
		WordsTotal:          3,
		WordsCorrect:        3,
		FirstAttemptMastery: 100,
		Timestamp:           time.Now(),
	})
	_ = store.AddStrugglingWords(ctx, []string{"sat"})

	var out bytes.Buffer
	if code := runStats(ctx, store, &out); code != 0 {
		t.Fatalf("stats exit = %d", code)
	}
	for _, want := range []string{"Sentences today:", "100.0%", "Struggling words", "sat", "The cat sat."} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("stats output missing %q:\n%s", want, out.String())
		}
	}
}
