// Package mock provides a manually advanced [clock.Clock] for tests.
//
// Callbacks scheduled with AfterFunc run synchronously on the goroutine that
// calls [Clock.Advance], in deadline order. Callbacks may schedule further
// timers; those fire within the same Advance call when their deadline falls
// inside the advanced window.
//
// Example:
//
//	clk := mock.New(time.Unix(0, 0))
//	clk.AfterFunc(time.Second, func() { fired = true })
//	clk.Advance(time.Second) // fired == true
package mock

import (
	"sort"
	"sync"
	"time"

	"github.com/MrWong99/readtowatch/pkg/clock"
)

// AfterFuncCall records a single invocation of Clock.AfterFunc.
type AfterFuncCall struct {
	// Delay is the duration passed to AfterFunc.
	Delay time.Duration
	// At is the mock time at which AfterFunc was called.
	At time.Time
}

// Clock is a mock implementation of clock.Clock. The zero value starts at the
// zero time and is ready to use.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*timer

	// AfterFuncCalls records every call to AfterFunc in order.
	AfterFuncCalls []AfterFuncCall
}

// New returns a Clock set to start.
func New(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the mock time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc records the call and schedules f to run when the mock time
// reaches Now()+d.
func (c *Clock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.AfterFuncCalls = append(c.AfterFuncCalls, AfterFuncCall{Delay: d, At: c.now})
	c.seq++
	t := &timer{clock: c, when: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the mock time forward by d, running every callback whose
// deadline is reached.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		t := c.popDue(target)
		if t == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = t.when
		c.mu.Unlock()
		t.f()
	}
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Delays returns the Delay of every recorded AfterFunc call.
func (c *Clock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.AfterFuncCalls))
	for i, call := range c.AfterFuncCalls {
		out[i] = call.Delay
	}
	return out
}

// popDue removes and returns the earliest timer due at or before target.
// Must be called with c.mu held.
func (c *Clock) popDue(target time.Time) *timer {
	if len(c.timers) == 0 {
		return nil
	}
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].when.Equal(c.timers[j].when) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].when.Before(c.timers[j].when)
	})
	t := c.timers[0]
	if t.when.After(target) {
		return nil
	}
	c.timers = c.timers[1:]
	return t
}

// remove drops t from the pending list. Must be called with c.mu held.
func (c *Clock) remove(t *timer) bool {
	for i, p := range c.timers {
		if p == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return true
		}
	}
	return false
}

type timer struct {
	clock *Clock
	when  time.Time
	seq   int
	f     func()
}

// Stop cancels the timer if it is still pending.
func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	return t.clock.remove(t)
}

// Ensure Clock implements clock.Clock at compile time.
var _ clock.Clock = (*Clock)(nil)
