package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/readtowatch/pkg/recognizer"
)

// RecognizerFallback implements [recognizer.Provider] with failover across
// several recognizer backends. A session is created on the first healthy
// backend. Errors that session reports later count against that backend's
// breaker, so a backend that keeps failing mid-session is skipped for the
// next challenge.
type RecognizerFallback struct {
	group *FallbackGroup[recognizer.Provider]
}

var _ recognizer.Provider = (*RecognizerFallback)(nil)

// NewRecognizerFallback creates a [RecognizerFallback] with primary as the
// preferred backend.
func NewRecognizerFallback(primary recognizer.Provider, primaryName string, cfg FallbackConfig) *RecognizerFallback {
	return &RecognizerFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another backend.
func (f *RecognizerFallback) AddFallback(name string, p recognizer.Provider) {
	f.group.AddFallback(name, p)
}

// Group exposes the underlying group for inspection.
func (f *RecognizerFallback) Group() *FallbackGroup[recognizer.Provider] { return f.group }

// NewSession creates a session on the first backend that accepts. When no
// backend does, the error still matches [recognizer.ErrUnsupported] if the
// last backend reported it.
func (f *RecognizerFallback) NewSession(ctx context.Context, cfg recognizer.Config, l recognizer.Listener) (recognizer.Session, error) {
	var tl *trackingListener
	s, name, err := ExecuteWithResult(f.group, func(p recognizer.Provider) (recognizer.Session, error) {
		tl = &trackingListener{next: l}
		return p.NewSession(ctx, cfg, tl)
	})
	if err != nil {
		return nil, fmt.Errorf("resilience: new recognizer session: %w", err)
	}
	tl.breaker = f.group.Breaker(name)
	return s, nil
}

// trackingListener reports session health to a breaker: results count as
// success and errors as failure.
type trackingListener struct {
	next    recognizer.Listener
	breaker *CircuitBreaker
}

func (t *trackingListener) OnResult(r recognizer.Result) {
	if t.breaker != nil && r.FinalText() != "" {
		t.breaker.Record(nil)
	}
	t.next.OnResult(r)
}

func (t *trackingListener) OnSpeechStart() { t.next.OnSpeechStart() }
func (t *trackingListener) OnSpeechEnd()   { t.next.OnSpeechEnd() }
func (t *trackingListener) OnEnd()         { t.next.OnEnd() }

func (t *trackingListener) OnError(err error) {
	if t.breaker != nil && !errors.Is(err, context.Canceled) {
		t.breaker.Record(err)
	}
	t.next.OnError(err)
}
