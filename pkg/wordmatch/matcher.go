package wordmatch

const (
	// DefaultThreshold is the minimum [Similarity] for a spoken token to count
	// as the target word. It tolerates one wrong letter in a four-letter word
	// while rejecting unrelated words.
	DefaultThreshold = 0.68

	// DefaultWindow is the number of trailing tokens of a transcript that are
	// compared against the target word.
	DefaultWindow = 4
)

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithThreshold sets the minimum similarity accepted as a match. Values
// outside (0, 1] are ignored. Default: 0.68.
func WithThreshold(threshold float64) Option {
	return func(m *Matcher) {
		if threshold > 0 && threshold <= 1 {
			m.threshold = threshold
		}
	}
}

// WithWindow sets how many trailing tokens of a transcript are considered.
// Values below 1 are ignored. Default: 4.
func WithWindow(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.window = n
		}
	}
}

// WithPhoneticFallback enables a second pass that accepts tokens which sound
// like the target (see [PhoneticMatch]) when the edit-distance score is below
// the threshold. Disabled by default.
func WithPhoneticFallback(enabled bool) Option {
	return func(m *Matcher) {
		m.phonetic = enabled
	}
}

// Matcher decides whether spoken tokens match a target word. It is read-only
// after construction and safe for concurrent use.
type Matcher struct {
	threshold float64
	window    int
	phonetic  bool
}

// New returns a [Matcher] with the default threshold and window, adjusted by
// opts.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		threshold: DefaultThreshold,
		window:    DefaultWindow,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Threshold returns the configured similarity threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// WindowSize returns the configured number of trailing tokens.
func (m *Matcher) WindowSize() int { return m.window }

// IsMatch reports whether candidate is close enough to target.
func (m *Matcher) IsMatch(target, candidate string) bool {
	if Similarity(target, candidate) >= m.threshold {
		return true
	}
	return m.phonetic && PhoneticMatch(target, candidate)
}

// Window returns the trailing tokens of tokens that take part in matching.
// The returned slice aliases tokens.
func (m *Matcher) Window(tokens []string) []string {
	if len(tokens) <= m.window {
		return tokens
	}
	return tokens[len(tokens)-m.window:]
}

// MatchText tokenizes text and reports whether any token inside the trailing
// window matches target. Only the most recently spoken words are considered so
// that earlier words of a long final transcript cannot satisfy a later target.
func (m *Matcher) MatchText(target, text string) bool {
	for _, tok := range m.Window(Tokenize(text)) {
		if m.IsMatch(target, tok) {
			return true
		}
	}
	return false
}
