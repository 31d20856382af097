// Package typed provides a recognizer fed by lines of text instead of a
// microphone. It backs the console mode and end-to-end tests: each line
// arrives as one utterance with speech start and end markers around a final
// result, in the same order a streaming recognizer reports them.
package typed

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/readtowatch/pkg/recognizer"
)

// Provider creates sessions reading from a shared line channel. Lines read
// while no session is running stay in the channel.
type Provider struct {
	lines <-chan string
	now   func() time.Time
}

// New returns a Provider reading utterances from lines. Closing lines ends
// every running session.
func New(lines <-chan string) *Provider {
	return &Provider{lines: lines, now: time.Now}
}

// NewSession returns a session bound to l.
func (p *Provider) NewSession(ctx context.Context, _ recognizer.Config, l recognizer.Listener) (recognizer.Session, error) {
	return &session{ctx: ctx, p: p, listener: l}, nil
}

type session struct {
	ctx      context.Context
	p        *Provider
	listener recognizer.Listener

	mu      sync.Mutex
	running bool
	closed  bool
	stop    chan struct{}
	done    chan struct{}
}

func (s *session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return recognizer.ErrClosed
	}
	if s.running {
		return recognizer.ErrAlreadyStarted
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
	return nil
}

func (s *session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}

func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stop, done := s.stop, s.done
	if stop != nil {
		close(stop)
		s.stop = nil
	}
	s.mu.Unlock()
	if done != nil {
		<-done
	}
	return nil
}

func (s *session) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.stop = nil
		s.mu.Unlock()
		s.listener.OnEnd()
	}()
	for {
		select {
		case <-stop:
			return
		case <-s.ctx.Done():
			return
		case line, ok := <-s.p.lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			s.listener.OnSpeechStart()
			s.listener.OnSpeechEnd()
			s.listener.OnResult(recognizer.Result{
				Hypotheses: []recognizer.Hypothesis{{Transcript: line, Confidence: 1, IsFinal: true}},
				ReceivedAt: s.p.now(),
			})
		}
	}
}

var _ recognizer.Provider = (*Provider)(nil)
