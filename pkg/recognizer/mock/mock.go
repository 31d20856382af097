// Package mock provides test doubles for the recognizer package interfaces.
//
// Provider hands out a controllable Session and records the Listener it was
// given. Session counts Start/Stop/Close calls and exposes Emit helpers that
// drive the recorded Listener as a real backend would.
//
// Example:
//
//	sess := &mock.Session{}
//	p := &mock.Provider{Session: sess}
//	s, _ := p.NewSession(ctx, cfg, listener)
//	_ = s.Start()
//	sess.EmitFinal("the cat")
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/readtowatch/pkg/recognizer"
)

// NewSessionCall records a single invocation of Provider.NewSession.
type NewSessionCall struct {
	// Ctx is the context passed to NewSession.
	Ctx context.Context
	// Cfg is the Config passed to NewSession.
	Cfg recognizer.Config
}

// Provider is a mock implementation of recognizer.Provider.
type Provider struct {
	mu sync.Mutex

	// Session is returned by NewSession. If nil, a new default Session is
	// created on each call.
	Session *Session

	// NewSessionErr, if non-nil, is returned as the error from NewSession.
	NewSessionErr error

	// NewSessionCalls records every call to NewSession.
	NewSessionCalls []NewSessionCall
}

// NewSession records the call, binds the Listener to the session and returns
// it.
func (p *Provider) NewSession(ctx context.Context, cfg recognizer.Config, l recognizer.Listener) (recognizer.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.NewSessionCalls = append(p.NewSessionCalls, NewSessionCall{Ctx: ctx, Cfg: cfg})
	if p.NewSessionErr != nil {
		return nil, p.NewSessionErr
	}
	s := p.Session
	if s == nil {
		s = &Session{}
	}
	s.bind(l)
	return s, nil
}

// CallCount returns the number of recorded NewSession calls. Thread-safe.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.NewSessionCalls)
}

// Ensure Provider implements recognizer.Provider at compile time.
var _ recognizer.Provider = (*Provider)(nil)

// Session is a mock implementation of recognizer.Session. It tracks a
// running flag so that Start on a running session returns
// recognizer.ErrAlreadyStarted like a real backend.
type Session struct {
	mu       sync.Mutex
	listener recognizer.Listener
	running  bool
	closed   bool

	// StartErr, if non-nil, is returned from every Start call.
	StartErr error

	// StartErrs, if non-empty, is consumed one entry per Start call before
	// falling back to StartErr. A nil entry means success.
	StartErrs []error

	// EndOnStop makes Stop emit OnEnd synchronously.
	EndOnStop bool

	// StartCalls, StopCalls and CloseCalls count method invocations.
	StartCalls int
	StopCalls  int
	CloseCalls int
}

func (s *Session) bind(l recognizer.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Start records the call and marks the session as running unless an error is
// configured.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StartCalls++
	if s.closed {
		return recognizer.ErrClosed
	}
	var err error
	if len(s.StartErrs) > 0 {
		err = s.StartErrs[0]
		s.StartErrs = s.StartErrs[1:]
	} else {
		err = s.StartErr
	}
	if err != nil {
		return err
	}
	if s.running {
		return recognizer.ErrAlreadyStarted
	}
	s.running = true
	return nil
}

// Stop records the call and clears the running flag.
func (s *Session) Stop() error {
	s.mu.Lock()
	s.StopCalls++
	wasRunning := s.running
	s.running = false
	l := s.listener
	endOnStop := s.EndOnStop
	s.mu.Unlock()
	if wasRunning && endOnStop && l != nil {
		l.OnEnd()
	}
	return nil
}

// Close records the call.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CloseCalls++
	s.closed = true
	s.running = false
	return nil
}

// Running reports whether the session is currently started.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Starts returns the number of Start calls. Thread-safe.
func (s *Session) Starts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.StartCalls
}

func (s *Session) l() recognizer.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

// EmitResult delivers r to the bound Listener.
func (s *Session) EmitResult(r recognizer.Result) {
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = time.Now()
	}
	s.l().OnResult(r)
}

// EmitFinal delivers a batch with a single final hypothesis.
func (s *Session) EmitFinal(text string) {
	s.EmitResult(recognizer.Result{Hypotheses: []recognizer.Hypothesis{{Transcript: text, IsFinal: true, Confidence: 1}}})
}

// EmitInterim delivers a batch with a single interim hypothesis.
func (s *Session) EmitInterim(text string) {
	s.EmitResult(recognizer.Result{Hypotheses: []recognizer.Hypothesis{{Transcript: text}}})
}

// EmitSpeechStart calls OnSpeechStart on the bound Listener.
func (s *Session) EmitSpeechStart() { s.l().OnSpeechStart() }

// EmitSpeechEnd calls OnSpeechEnd on the bound Listener.
func (s *Session) EmitSpeechEnd() { s.l().OnSpeechEnd() }

// EmitEnd clears the running flag and calls OnEnd, simulating the backend
// ending the session on its own.
func (s *Session) EmitEnd() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.l().OnEnd()
}

// EmitError calls OnError on the bound Listener.
func (s *Session) EmitError(err error) { s.l().OnError(err) }

// Ensure Session implements recognizer.Session at compile time.
var _ recognizer.Session = (*Session)(nil)
