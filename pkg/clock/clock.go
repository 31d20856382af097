// Package clock abstracts wall-clock time and delayed callbacks so that
// timer-driven logic can be tested with a manually advanced clock.
package clock

import "time"

// Timer is a pending callback created by [Clock.AfterFunc].
type Timer interface {
	// Stop prevents the callback from firing. It returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

// Clock provides the current time and schedules callbacks.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc calls f in its own goroutine after d has elapsed and returns
	// a [Timer] that can cancel the call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Real returns a [Clock] backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
