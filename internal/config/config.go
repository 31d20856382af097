// Package config provides the configuration schema, loader, recognizer
// provider registry and file watcher for readtowatch.
package config

import (
	"time"

	"github.com/MrWong99/readtowatch/internal/challenge"
	"github.com/MrWong99/readtowatch/pkg/wordmatch"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration, usually loaded with [Load].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Recognizer RecognizerConfig `yaml:"recognizer"`
	Challenge  ChallengeConfig  `yaml:"challenge"`
	Gate       GateConfig       `yaml:"gate"`
	Sentences  SentencesConfig  `yaml:"sentences"`
	Progress   ProgressConfig   `yaml:"progress"`
}

// ServerConfig holds logging and the optional metrics/health listener.
type ServerConfig struct {
	// ListenAddr serves /metrics, /healthz, /readyz and /status when set
	// (e.g. ":9090").
	ListenAddr string `yaml:"listen_addr"`

	LogLevel LogLevel `yaml:"log_level"`
}

// RecognizerConfig selects the speech recognizer and its fallbacks.
type RecognizerConfig struct {
	// Provider is tried first.
	Provider ProviderEntry `yaml:"provider"`

	// Fallbacks are tried in order when the provider cannot open a session
	// or its circuit breaker is open.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`

	// Language is the single locale recognised. Default: "en-US".
	Language string `yaml:"language"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the per-provider circuit breaker.
type BreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// ProviderEntry configures one recognizer backend. Name is looked up in the
// [Registry].
type ProviderEntry struct {
	Name    string         `yaml:"name"`
	APIKey  string         `yaml:"api_key"`
	BaseURL string         `yaml:"base_url"`
	Model   string         `yaml:"model"`
	Options map[string]any `yaml:"options"`
}

// ChallengeConfig holds the reading challenge constants.
type ChallengeConfig struct {
	// Level selects the sentence bank level.
	Level int `yaml:"level"`

	MaxAttempts      int           `yaml:"max_attempts"`
	MatchThreshold   float64       `yaml:"match_threshold"`
	MatchWindow      int           `yaml:"match_window"`
	PhoneticFallback bool          `yaml:"phonetic_fallback"`
	SuppressionDelay time.Duration `yaml:"suppression_delay"`
	SettleDelay      time.Duration `yaml:"settle_delay"`
	Restart          RestartConfig `yaml:"restart"`

	// AskRetell records the reader telling the story back after a
	// completed sentence. RetellLength caps the recording; RetellDir is
	// where the WAV files go.
	AskRetell    bool          `yaml:"ask_retell"`
	RetellLength time.Duration `yaml:"retell_length"`
	RetellDir    string        `yaml:"retell_dir"`
}

// RestartConfig mirrors [challenge.RestartPolicy].
type RestartConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	Step        time.Duration `yaml:"step"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// GateConfig holds the parental controls around a challenge.
type GateConfig struct {
	// ParentCode ends a challenge early without recording it.
	ParentCode string `yaml:"parent_code"`

	// DailyScreenLimit in minutes. Zero means unlimited.
	DailyScreenLimit int `yaml:"daily_screen_limit"`
}

// SentencesConfig points at the sentence bank.
type SentencesConfig struct {
	// Path to a YAML or JSON bank. Empty selects the built-in bank.
	Path string `yaml:"path"`
}

// ProgressConfig selects the progress store.
type ProgressConfig struct {
	// PostgresDSN selects the PostgreSQL store.
	PostgresDSN string `yaml:"postgres_dsn"`

	// Path selects a JSON file store when no DSN is set. With neither,
	// progress is kept in memory for the lifetime of the process.
	Path string `yaml:"path"`

	MaxSessions int `yaml:"max_sessions"`
}

// Engine converts the challenge settings into an engine configuration.
func (c *Config) Engine() challenge.Config {
	return challenge.Config{
		Language:         c.Recognizer.Language,
		MaxAttempts:      c.Challenge.MaxAttempts,
		SuppressionDelay: c.Challenge.SuppressionDelay,
		SettleDelay:      c.Challenge.SettleDelay,
		Restart: challenge.RestartPolicy{
			BaseDelay:   c.Challenge.Restart.BaseDelay,
			Step:        c.Challenge.Restart.Step,
			MaxDelay:    c.Challenge.Restart.MaxDelay,
			MaxAttempts: c.Challenge.Restart.MaxAttempts,
		},
		ProviderName: c.Recognizer.Provider.Name,
	}
}

// Matcher builds the word matcher described by the challenge settings.
func (c *Config) Matcher() *wordmatch.Matcher {
	return wordmatch.New(
		wordmatch.WithThreshold(c.Challenge.MatchThreshold),
		wordmatch.WithWindow(c.Challenge.MatchWindow),
		wordmatch.WithPhoneticFallback(c.Challenge.PhoneticFallback),
	)
}
