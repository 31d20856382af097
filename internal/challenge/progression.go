package challenge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrWong99/readtowatch/internal/observe"
	"github.com/MrWong99/readtowatch/pkg/clock"
	"github.com/MrWong99/readtowatch/pkg/wordmatch"
)

// ErrEmptySequence is returned by Begin when the target sequence has no
// words.
var ErrEmptySequence = errors.New("challenge: empty target sequence")

// progression is the per-word state machine. It walks the target sequence
// strictly forward: each index becomes active once and leaves it as correct
// or helped. All methods run on the dispatcher goroutine.
type progression struct {
	ctx         context.Context
	clock       clock.Clock
	dispatch    Dispatcher
	matcher     *wordmatch.Matcher
	obs         Observer
	metrics     *observe.Metrics
	maxAttempts int
	settleDelay time.Duration

	id        string
	words     []WordState
	index     int
	helped    []string
	started   time.Time
	begun     bool
	complete  bool
	aborted   bool
	settling  bool
	settleSeq uint64
	settle    clock.Timer

	// struggling accumulates help counts per token across challenges.
	struggling map[string]int

	onAdvance  func()
	onComplete func(Summary)
}

// begin resets the state machine to index 0 of tokens.
func (p *progression) begin(id string, tokens []string) error {
	if len(tokens) == 0 {
		slog.Warn("challenge: begin called with empty target sequence", "challenge_id", id)
		return ErrEmptySequence
	}
	p.cancelSettle()
	p.id = id
	p.words = make([]WordState, len(tokens))
	for i, t := range tokens {
		p.words[i] = WordState{Token: t, Status: StatusPending}
	}
	p.words[0].Status = StatusActive
	p.index = 0
	p.helped = nil
	p.started = p.clock.Now()
	p.begun = true
	p.complete = false
	p.aborted = false
	return nil
}

// exhausted reports whether no word is left to read.
func (p *progression) exhausted() bool {
	return !p.begun || p.aborted || p.index >= len(p.words)
}

// activeIndex returns the index results and timers may act on. It reports
// false once the sequence is exhausted and while a helped word settles.
func (p *progression) activeIndex() (int, bool) {
	if p.exhausted() || p.settling {
		return 0, false
	}
	return p.index, true
}

// submit checks text against the active word only. It returns true if the
// word matched and the index advanced.
func (p *progression) submit(text string) bool {
	idx, ok := p.activeIndex()
	if !ok {
		return false
	}
	target := p.words[idx].Token
	if !p.matcher.MatchText(target, text) {
		slog.Debug("challenge: no match", "challenge_id", p.id, "index", idx, "target", target, "heard", text)
		return false
	}
	p.words[idx].Status = StatusCorrect
	p.emit(idx, OutcomeCorrect)
	p.advance()
	return true
}

// unrecognized records a failed attempt on index if it is still the active
// word. Reaching maxAttempts reveals the word.
func (p *progression) unrecognized(index int) {
	idx, ok := p.activeIndex()
	if !ok || idx != index {
		return
	}
	p.words[idx].Attempts++
	p.emit(idx, OutcomeError)
	if p.maxAttempts > 0 && p.words[idx].Attempts >= p.maxAttempts {
		p.help()
	}
}

// help reveals the active word, records it as struggling and advances after
// the settle delay. It returns false if there is no active word.
func (p *progression) help() bool {
	idx, ok := p.activeIndex()
	if !ok {
		return false
	}
	token := p.words[idx].Token
	p.words[idx].Status = StatusHelped
	p.helped = append(p.helped, token)
	if p.struggling == nil {
		p.struggling = make(map[string]int)
	}
	p.struggling[token]++
	p.emit(idx, OutcomeHelped)

	if p.settleDelay <= 0 {
		p.advance()
		return true
	}
	p.settling = true
	p.settleSeq++
	seq := p.settleSeq
	p.settle = p.clock.AfterFunc(p.settleDelay, func() {
		p.dispatch.Dispatch(func() {
			if seq != p.settleSeq || p.index != idx || p.aborted {
				return
			}
			p.settle = nil
			p.advance()
		})
	})
	return true
}

func (p *progression) advance() {
	p.settling = false
	p.index++
	if p.index < len(p.words) {
		p.words[p.index].Status = StatusActive
		if p.onAdvance != nil {
			p.onAdvance()
		}
		return
	}
	if p.complete {
		return
	}
	p.complete = true
	s := p.summary()
	slog.Info("challenge: sentence complete",
		"challenge_id", p.id,
		"words", s.TotalWords,
		"helped", len(s.HelpedWords),
		"elapsed", s.Elapsed(),
	)
	p.metrics.RecordSentenceCompleted(p.ctx, len(s.HelpedWords), s.Elapsed())
	if p.onComplete != nil {
		p.onComplete(s)
	}
	p.obs.OnSentenceComplete(s)
}

func (p *progression) summary() Summary {
	tokens := make([]string, len(p.words))
	firstTry := 0
	for i, w := range p.words {
		tokens[i] = w.Token
		if w.Status == StatusCorrect && w.Attempts == 0 {
			firstTry++
		}
	}
	return Summary{
		ChallengeID:     p.id,
		Tokens:          tokens,
		TotalWords:      len(p.words),
		HelpedWords:     append([]string(nil), p.helped...),
		FirstTryCorrect: firstTry,
		StartedAt:       p.started,
		CompletedAt:     p.clock.Now(),
	}
}

func (p *progression) emit(idx int, o Outcome) {
	slog.Debug("challenge: word outcome", "challenge_id", p.id, "index", idx, "word", p.words[idx].Token, "outcome", o)
	p.metrics.RecordWordOutcome(p.ctx, o.String())
	p.obs.OnWordOutcome(idx, p.words[idx].Token, o)
}

// abort ends the challenge without completing it.
func (p *progression) abort() {
	p.cancelSettle()
	p.aborted = true
}

func (p *progression) cancelSettle() {
	p.settleSeq++
	p.settling = false
	if p.settle != nil {
		p.settle.Stop()
		p.settle = nil
	}
}

func (p *progression) snapshot() []WordState {
	return append([]WordState(nil), p.words...)
}

func (p *progression) strugglingCopy() map[string]int {
	out := make(map[string]int, len(p.struggling))
	for k, v := range p.struggling {
		out[k] = v
	}
	return out
}
