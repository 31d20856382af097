package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MrWong99/readtowatch/pkg/recognizer"
	recmock "github.com/MrWong99/readtowatch/pkg/recognizer/mock"
)

func TestExecuteWithResult_Failover(t *testing.T) {
	t.Parallel()
	fg := NewFallbackGroup("primary", "a", FallbackConfig{})
	fg.AddFallback("b", "secondary")

	got, name, err := ExecuteWithResult(fg, func(v string) (string, error) {
		if v == "primary" {
			return "", errBoom
		}
		return v + "-ok", nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithResult: %v", err)
	}
	if got != "secondary-ok" || name != "b" {
		t.Errorf("got %q from %q, want secondary-ok from b", got, name)
	}
}

func TestExecuteWithResult_AllFail(t *testing.T) {
	t.Parallel()
	fg := NewFallbackGroup(1, "one", FallbackConfig{})
	fg.AddFallback("two", 2)

	_, _, err := ExecuteWithResult(fg, func(int) (int, error) { return 0, errBoom })
	if !errors.Is(err, ErrAllFailed) || !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want ErrAllFailed wrapping errBoom", err)
	}
	if got := fg.Names(); len(got) != 2 || got[0] != "one" {
		t.Errorf("Names() = %v", got)
	}
}

func TestExecuteWithResult_SkipsOpenBreaker(t *testing.T) {
	t.Parallel()
	fg := NewFallbackGroup("a", "a", FallbackConfig{CircuitBreaker: CircuitBreakerConfig{MaxFailures: 1}})
	fg.AddFallback("b", "b")

	calls := map[string]int{}
	fn := func(v string) (string, error) {
		calls[v]++
		if v == "a" {
			return "", errBoom
		}
		return v, nil
	}
	_, _, _ = ExecuteWithResult(fg, fn)
	_, _, _ = ExecuteWithResult(fg, fn)

	if calls["a"] != 1 {
		t.Errorf("primary called %d times, want 1 (breaker open after first failure)", calls["a"])
	}
	if calls["b"] != 2 {
		t.Errorf("fallback called %d times, want 2", calls["b"])
	}
}

type nopListener struct{}

func (nopListener) OnResult(recognizer.Result) {}
func (nopListener) OnSpeechStart()             {}
func (nopListener) OnSpeechEnd()               {}
func (nopListener) OnEnd()                     {}
func (nopListener) OnError(error)              {}

func TestRecognizerFallback_UsesFallback(t *testing.T) {
	t.Parallel()
	primary := &recmock.Provider{NewSessionErr: errBoom}
	sess := &recmock.Session{}
	secondary := &recmock.Provider{Session: sess}

	f := NewRecognizerFallback(primary, "deepgram", FallbackConfig{})
	f.AddFallback("typed", secondary)

	got, err := f.NewSession(context.Background(), recognizer.Config{Language: "en-US"}, nopListener{})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if got != sess {
		t.Error("expected the fallback session")
	}
	if primary.CallCount() != 1 || secondary.CallCount() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.CallCount(), secondary.CallCount())
	}
}

func TestRecognizerFallback_PreservesUnsupported(t *testing.T) {
	t.Parallel()
	primary := &recmock.Provider{NewSessionErr: fmt.Errorf("no mic: %w", recognizer.ErrUnsupported)}
	f := NewRecognizerFallback(primary, "deepgram", FallbackConfig{})

	_, err := f.NewSession(context.Background(), recognizer.Config{}, nopListener{})
	if !errors.Is(err, recognizer.ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", err)
	}
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
}

func TestRecognizerFallback_SessionErrorsTripBreaker(t *testing.T) {
	t.Parallel()
	sess := &recmock.Session{}
	primary := &recmock.Provider{Session: sess}
	f := NewRecognizerFallback(primary, "deepgram", FallbackConfig{CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2}})

	if _, err := f.NewSession(context.Background(), recognizer.Config{}, nopListener{}); err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	sess.EmitError(errBoom)
	sess.EmitError(errBoom)

	if got := f.Group().Breaker("deepgram").State(); got != StateOpen {
		t.Errorf("breaker state = %v, want open", got)
	}
	if _, err := f.NewSession(context.Background(), recognizer.Config{}, nopListener{}); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("NewSession with open breaker = %v, want ErrCircuitOpen", err)
	}
}
