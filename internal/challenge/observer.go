package challenge

import "time"

// Outcome is the result reported for a single word.
type Outcome int

const (
	// OutcomeCorrect means the word was read and recognised.
	OutcomeCorrect Outcome = iota
	// OutcomeError means speech ended without the word being recognised.
	OutcomeError
	// OutcomeHelped means the word was revealed by help or skip.
	OutcomeHelped
)

// String returns the lower-case outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeCorrect:
		return "correct"
	case OutcomeError:
		return "error"
	case OutcomeHelped:
		return "helped"
	default:
		return "unknown"
	}
}

// Status is the progression state of one word.
type Status int

const (
	StatusPending Status = iota
	StatusActive
	StatusCorrect
	StatusHelped
)

// String returns the lower-case status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusCorrect:
		return "correct"
	case StatusHelped:
		return "helped"
	default:
		return "unknown"
	}
}

// WordState is the progress of one word of the target sequence.
type WordState struct {
	Token    string
	Attempts int
	Status   Status
}

// Summary describes a completed sentence.
type Summary struct {
	ChallengeID string

	// Tokens is the target sequence that was read.
	Tokens []string

	TotalWords int

	// HelpedWords lists the revealed words in the order they were helped.
	HelpedWords []string

	// FirstTryCorrect counts words recognised without any failed attempt.
	FirstTryCorrect int

	StartedAt   time.Time
	CompletedAt time.Time
}

// WordsCorrect returns the number of words read without help.
func (s Summary) WordsCorrect() int {
	return s.TotalWords - len(s.HelpedWords)
}

// Elapsed returns the time taken to read the sentence.
func (s Summary) Elapsed() time.Duration {
	return s.CompletedAt.Sub(s.StartedAt)
}

// Observer receives engine events. Callbacks run on the engine's dispatcher
// goroutine and must not block.
type Observer interface {
	// OnWordOutcome reports an outcome for the word at index.
	OnWordOutcome(index int, token string, outcome Outcome)

	// OnSentenceComplete fires exactly once per challenge when the last word
	// has been read or helped.
	OnSentenceComplete(Summary)

	// OnRecognitionUnsupported fires once when no recognizer is available.
	// The challenge cannot proceed.
	OnRecognitionUnsupported()

	// OnGestureRequired shows (true) or hides (false) the manual microphone
	// start affordance.
	OnGestureRequired(required bool)

	// OnListening shows or hides the listening indicator.
	OnListening(listening bool)
}

// NopObserver ignores all events. Embed it to implement a subset of
// [Observer].
type NopObserver struct{}

func (NopObserver) OnWordOutcome(int, string, Outcome) {}
func (NopObserver) OnSentenceComplete(Summary)         {}
func (NopObserver) OnRecognitionUnsupported()          {}
func (NopObserver) OnGestureRequired(bool)             {}
func (NopObserver) OnListening(bool)                   {}

// ObserverFuncs implements [Observer] with optional function fields. Nil
// fields are ignored.
type ObserverFuncs struct {
	WordOutcome            func(index int, token string, outcome Outcome)
	SentenceComplete       func(Summary)
	RecognitionUnsupported func()
	GestureRequired        func(required bool)
	Listening              func(listening bool)
}

func (o ObserverFuncs) OnWordOutcome(index int, token string, outcome Outcome) {
	if o.WordOutcome != nil {
		o.WordOutcome(index, token, outcome)
	}
}

func (o ObserverFuncs) OnSentenceComplete(s Summary) {
	if o.SentenceComplete != nil {
		o.SentenceComplete(s)
	}
}

func (o ObserverFuncs) OnRecognitionUnsupported() {
	if o.RecognitionUnsupported != nil {
		o.RecognitionUnsupported()
	}
}

func (o ObserverFuncs) OnGestureRequired(required bool) {
	if o.GestureRequired != nil {
		o.GestureRequired(required)
	}
}

func (o ObserverFuncs) OnListening(listening bool) {
	if o.Listening != nil {
		o.Listening(listening)
	}
}

// Multi fans events out to several observers in order.
type Multi []Observer

func (m Multi) OnWordOutcome(index int, token string, outcome Outcome) {
	for _, o := range m {
		o.OnWordOutcome(index, token, outcome)
	}
}

func (m Multi) OnSentenceComplete(s Summary) {
	for _, o := range m {
		o.OnSentenceComplete(s)
	}
}

func (m Multi) OnRecognitionUnsupported() {
	for _, o := range m {
		o.OnRecognitionUnsupported()
	}
}

func (m Multi) OnGestureRequired(required bool) {
	for _, o := range m {
		o.OnGestureRequired(required)
	}
}

func (m Multi) OnListening(listening bool) {
	for _, o := range m {
		o.OnListening(listening)
	}
}

var (
	_ Observer = NopObserver{}
	_ Observer = ObserverFuncs{}
	_ Observer = Multi(nil)
)
