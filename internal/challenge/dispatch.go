package challenge

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopStopped is returned by [Loop.Call] when the loop is no longer
// running.
var ErrLoopStopped = errors.New("challenge: loop stopped")

// Dispatcher serialises engine work. Every recognizer callback and timer
// callback is handed to Dispatch; the Dispatcher must run the functions one
// at a time, in the order received.
type Dispatcher interface {
	Dispatch(fn func())
}

// DispatcherFunc adapts a function to the [Dispatcher] interface.
type DispatcherFunc func(fn func())

// Dispatch calls f(fn).
func (f DispatcherFunc) Dispatch(fn func()) { f(fn) }

// Inline runs dispatched functions on the caller's goroutine. Functions
// dispatched while another one is running are queued and run after it
// returns, so handlers never re-enter each other.
//
// Inline is meant for tests that drive the engine from a single goroutine.
// It is not safe for concurrent use.
type Inline struct {
	queue   []func()
	running bool
}

// Dispatch runs fn now, or queues it if a dispatched function is already
// running.
func (d *Inline) Dispatch(fn func()) {
	d.queue = append(d.queue, fn)
	if d.running {
		return
	}
	d.running = true
	defer func() { d.running = false }()
	for len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		next()
	}
}

// Loop is a serial executor. Dispatch never blocks; queued functions run on
// the goroutine that called [Loop.Run].
type Loop struct {
	mu    sync.Mutex
	queue []func()
	wake  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewLoop returns a Loop ready to Run.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Dispatch queues fn. Functions dispatched after Run has returned are
// dropped.
func (l *Loop) Dispatch(fn func()) {
	select {
	case <-l.done:
		return
	default:
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run executes queued functions until ctx is cancelled. It returns
// ctx.Err(). Run must be called at most once.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, fn := range batch {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn()
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

// Call runs fn on the loop and waits for it to return. It must not be called
// from the loop goroutine itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	l.Dispatch(func() {
		defer close(finished)
		fn()
	})
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// fn may have completed just before the loop stopped.
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopStopped
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }
