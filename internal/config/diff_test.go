package config_test

import (
	"testing"

	"github.com/MrWong99/readtowatch/internal/config"
)

func TestDiff(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		mutate      func(c *config.Config)
		wantLive    bool
		wantRestart bool
		check       func(t *testing.T, d config.ConfigDiff)
	}{
		{"identical", func(*config.Config) {}, false, false, nil},
		{"log level", func(c *config.Config) { c.Server.LogLevel = config.LogDebug }, true, false,
			func(t *testing.T, d config.ConfigDiff) {
				if d.NewLogLevel != config.LogDebug {
					t.Errorf("NewLogLevel = %q", d.NewLogLevel)
				}
			}},
		{"threshold", func(c *config.Config) { c.Challenge.MatchThreshold = 0.8 }, true, false,
			func(t *testing.T, d config.ConfigDiff) {
				if !d.ChallengeChanged {
					t.Error("ChallengeChanged not set")
				}
			}},
		{"screen limit", func(c *config.Config) { c.Gate.DailyScreenLimit = 30 }, true, false, nil},
		{"sentence bank", func(c *config.Config) { c.Sentences.Path = "x.yaml" }, true, false, nil},
		{"recognizer option", func(c *config.Config) {
			c.Recognizer.Provider.Options = map[string]any{"sample_rate": 8000}
		}, false, true, nil},
		{"fallback added", func(c *config.Config) {
			c.Recognizer.Fallbacks = append(c.Recognizer.Fallbacks, config.ProviderEntry{Name: "whisper"})
		}, false, true, nil},
		{"dsn", func(c *config.Config) { c.Progress.PostgresDSN = "postgres://x" }, false, true, nil},
		{"progress file", func(c *config.Config) { c.Progress.Path = "progress.json" }, false, true, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			old, cur := config.Default(), config.Default()
			tc.mutate(cur)
			d := config.Diff(old, cur)
			if d.Live() != tc.wantLive || d.RestartRequired() != tc.wantRestart {
				t.Errorf("Live/RestartRequired = %v/%v, want %v/%v", d.Live(), d.RestartRequired(), tc.wantLive, tc.wantRestart)
			}
			if tc.check != nil {
				tc.check(t, d)
			}
		})
	}
}

func TestDiff_NestedOptionsDoNotPanic(t *testing.T) {
	t.Parallel()
	old, cur := config.Default(), config.Default()
	old.Recognizer.Provider.Options = map[string]any{"extra": map[string]any{"a": []any{1}}}
	cur.Recognizer.Provider.Options = map[string]any{"extra": map[string]any{"a": []any{1}}}
	if config.Diff(old, cur).RecognizerChanged {
		t.Error("equal nested options reported as changed")
	}
}
