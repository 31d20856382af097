package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/readtowatch/internal/challenge"
	"github.com/MrWong99/readtowatch/internal/progress"
	"github.com/MrWong99/readtowatch/pkg/wordmatch"
)

// ValidProviderNames lists the recognizer backends built into readtowatch.
// [Validate] warns about other names.
var ValidProviderNames = []string{"deepgram", "typed"}

// DefaultRetellLength caps a retell recording.
const DefaultRetellLength = 60 * time.Second

// Default returns a configuration with every default applied. It uses the
// typed recognizer, so it works without credentials or a microphone.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes YAML from r, applies defaults and validates.
// Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}

	if cfg.Recognizer.Provider.Name == "" {
		cfg.Recognizer.Provider.Name = "typed"
	}
	if cfg.Recognizer.Language == "" {
		cfg.Recognizer.Language = "en-US"
	}

	def := challenge.DefaultConfig()
	ch := &cfg.Challenge
	if ch.Level == 0 {
		ch.Level = 1
	}
	if ch.MaxAttempts == 0 {
		ch.MaxAttempts = def.MaxAttempts
	}
	if ch.MatchThreshold == 0 {
		ch.MatchThreshold = wordmatch.DefaultThreshold
	}
	if ch.MatchWindow == 0 {
		ch.MatchWindow = wordmatch.DefaultWindow
	}
	if ch.SuppressionDelay == 0 {
		ch.SuppressionDelay = def.SuppressionDelay
	}
	if ch.SettleDelay == 0 {
		ch.SettleDelay = def.SettleDelay
	}
	if ch.Restart.BaseDelay == 0 {
		ch.Restart.BaseDelay = def.Restart.BaseDelay
	}
	if ch.Restart.Step == 0 {
		ch.Restart.Step = def.Restart.Step
	}
	if ch.Restart.MaxDelay == 0 {
		ch.Restart.MaxDelay = def.Restart.MaxDelay
	}
	if ch.Restart.MaxAttempts == 0 {
		ch.Restart.MaxAttempts = def.Restart.MaxAttempts
	}
	if ch.RetellLength == 0 {
		ch.RetellLength = DefaultRetellLength
	}
	if ch.RetellDir == "" {
		ch.RetellDir = "retell"
	}

	if cfg.Gate.ParentCode == "" {
		cfg.Gate.ParentCode = "0429"
	}
	if cfg.Progress.MaxSessions == 0 {
		cfg.Progress.MaxSessions = progress.DefaultMaxSessions
	}
}

// Validate checks that cfg is coherent and returns every problem found,
// joined.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	errs = append(errs, validateProvider("recognizer.provider", cfg.Recognizer.Provider)...)
	seen := map[string]string{cfg.Recognizer.Provider.Name: "recognizer.provider"}
	for i, fb := range cfg.Recognizer.Fallbacks {
		prefix := fmt.Sprintf("recognizer.fallbacks[%d]", i)
		errs = append(errs, validateProvider(prefix, fb)...)
		if fb.Name == "typed" {
			errs = append(errs, fmt.Errorf("%s: typed reads console input and can only be the primary provider", prefix))
		}
		if prev, ok := seen[fb.Name]; ok && fb.Name != "" {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of %s", prefix, fb.Name, prev))
		}
		seen[fb.Name] = prefix
	}
	if strings.ContainsAny(cfg.Recognizer.Language, " \t") {
		errs = append(errs, fmt.Errorf("recognizer.language %q must be a single locale", cfg.Recognizer.Language))
	}
	if cfg.Recognizer.Breaker.MaxFailures < 0 {
		errs = append(errs, errors.New("recognizer.breaker.max_failures must not be negative"))
	}

	ch := cfg.Challenge
	if ch.Level < 0 {
		errs = append(errs, fmt.Errorf("challenge.level %d must not be negative", ch.Level))
	}
	if ch.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("challenge.max_attempts %d must not be negative", ch.MaxAttempts))
	}
	if ch.MatchThreshold <= 0 || ch.MatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("challenge.match_threshold %.2f is out of range (0, 1]", ch.MatchThreshold))
	}
	if ch.MatchWindow < 1 {
		errs = append(errs, fmt.Errorf("challenge.match_window %d must be at least 1", ch.MatchWindow))
	}
	if ch.SuppressionDelay < 0 || ch.SettleDelay < 0 {
		errs = append(errs, errors.New("challenge delays must not be negative"))
	}
	if ch.RetellLength < 0 {
		errs = append(errs, fmt.Errorf("challenge.retell_length %v must not be negative", ch.RetellLength))
	}
	r := ch.Restart
	if r.BaseDelay < 0 || r.Step < 0 || r.MaxDelay < 0 {
		errs = append(errs, errors.New("challenge.restart delays must not be negative"))
	}
	if r.MaxDelay < r.BaseDelay {
		errs = append(errs, fmt.Errorf("challenge.restart.max_delay %v is below base_delay %v", r.MaxDelay, r.BaseDelay))
	}
	if r.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("challenge.restart.max_attempts %d must be at least 1", r.MaxAttempts))
	}

	if cfg.Gate.DailyScreenLimit < 0 {
		errs = append(errs, fmt.Errorf("gate.daily_screen_limit %d must not be negative", cfg.Gate.DailyScreenLimit))
	}
	if strings.TrimSpace(cfg.Gate.ParentCode) == "" {
		errs = append(errs, errors.New("gate.parent_code must not be blank"))
	}

	if cfg.Progress.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("progress.max_sessions %d must not be negative", cfg.Progress.MaxSessions))
	}
	if cfg.Progress.PostgresDSN != "" && cfg.Progress.Path != "" {
		slog.Warn("progress.path is ignored when progress.postgres_dsn is set")
	}
	if cfg.Progress.PostgresDSN == "" && cfg.Progress.Path == "" {
		slog.Debug("no progress backend configured; progress is kept in memory only")
	}

	return errors.Join(errs...)
}

func validateProvider(prefix string, e ProviderEntry) []error {
	var errs []error
	if e.Name == "" {
		return append(errs, fmt.Errorf("%s.name is required", prefix))
	}
	if !slices.Contains(ValidProviderNames, e.Name) {
		slog.Warn("unknown recognizer provider; it must be registered before use",
			"field", prefix,
			"name", e.Name,
			"known", ValidProviderNames,
		)
	}
	if e.Name == "deepgram" && e.APIKey == "" {
		errs = append(errs, fmt.Errorf("%s.api_key is required for deepgram", prefix))
	}
	return errs
}
