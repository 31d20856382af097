package config

import "reflect"

// ConfigDiff describes what changed between two configs. The challenge and
// gate settings apply from the next challenge on; recognizer and progress
// changes need a restart.
type ConfigDiff struct {
	LogLevelChanged   bool
	NewLogLevel       LogLevel
	ChallengeChanged  bool
	GateChanged       bool
	SentencesChanged  bool
	RecognizerChanged bool
	ProgressChanged   bool
	ListenAddrChanged bool
}

// Live reports whether anything that is applied without restart changed.
func (d ConfigDiff) Live() bool {
	return d.LogLevelChanged || d.ChallengeChanged || d.GateChanged || d.SentencesChanged
}

// RestartRequired reports whether a changed setting only takes effect after
// a restart.
func (d ConfigDiff) RestartRequired() bool {
	return d.RecognizerChanged || d.ProgressChanged || d.ListenAddrChanged
}

// Diff compares old and new.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{
		ChallengeChanged:  old.Challenge != new.Challenge,
		GateChanged:       old.Gate != new.Gate,
		SentencesChanged:  old.Sentences != new.Sentences,
		ProgressChanged:   old.Progress != new.Progress,
		ListenAddrChanged: old.Server.ListenAddr != new.Server.ListenAddr,
		RecognizerChanged: !recognizerEqual(old.Recognizer, new.Recognizer),
	}
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	return d
}

func recognizerEqual(a, b RecognizerConfig) bool {
	if a.Language != b.Language || a.Breaker != b.Breaker || len(a.Fallbacks) != len(b.Fallbacks) {
		return false
	}
	if !entryEqual(a.Provider, b.Provider) {
		return false
	}
	for i := range a.Fallbacks {
		if !entryEqual(a.Fallbacks[i], b.Fallbacks[i]) {
			return false
		}
	}
	return true
}

func entryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	return len(a.Options) == len(b.Options) && (len(a.Options) == 0 || reflect.DeepEqual(a.Options, b.Options))
}
