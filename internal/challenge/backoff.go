package challenge

import "time"

// RestartPolicy controls automatic recognizer restarts.
//
// The n-th consecutive restart (counting from zero) waits
// min(MaxDelay, BaseDelay + Step*n). Once MaxAttempts restarts have been
// scheduled without the session proving healthy, automatic restarts stop and
// the user is asked to start the microphone by hand.
type RestartPolicy struct {
	BaseDelay   time.Duration
	Step        time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultRestartPolicy returns 100ms, 200ms, ... capped at 1s, giving up
// after 8 consecutive restarts.
func DefaultRestartPolicy() RestartPolicy {
	return RestartPolicy{
		BaseDelay:   100 * time.Millisecond,
		Step:        100 * time.Millisecond,
		MaxDelay:    time.Second,
		MaxAttempts: 8,
	}
}

// Delay returns the wait before restart number attempt.
func (p RestartPolicy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.BaseDelay + p.Step*time.Duration(attempt)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Exhausted reports whether no further automatic restart may be scheduled
// after attempts restarts.
func (p RestartPolicy) Exhausted(attempts int) bool {
	return attempts >= p.MaxAttempts
}
