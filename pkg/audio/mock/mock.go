// Package mock provides an in-memory [audio.Capturer] for unit tests.
//
// Frames written to Capturer.Feed are delivered on the channel returned by
// Start. Stop closes that channel.
//
//	c := mock.NewCapturer()
//	frames, _ := c.Start(ctx)
//	c.Feed <- audio.Frame{Data: pcm, SampleRate: 16000, Channels: 1}
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/MrWong99/readtowatch/pkg/audio"
)

// Capturer is a mock implementation of audio.Capturer.
type Capturer struct {
	mu      sync.Mutex
	running bool
	stop    chan struct{}

	// Feed is the source of frames forwarded to the Start channel.
	Feed chan audio.Frame

	// StartErr, if non-nil, is returned from Start.
	StartErr error

	// StartCalls and StopCalls count method invocations.
	StartCalls int
	StopCalls  int
}

// NewCapturer returns a Capturer with a buffered Feed channel.
func NewCapturer() *Capturer {
	return &Capturer{Feed: make(chan audio.Frame, 16)}
}

// Start forwards Feed to the returned channel until Stop or ctx is done.
func (c *Capturer) Start(ctx context.Context) (<-chan audio.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StartCalls++
	if c.StartErr != nil {
		return nil, c.StartErr
	}
	if c.running {
		return nil, errors.New("mock capturer: already running")
	}
	c.running = true
	c.stop = make(chan struct{})
	stop := c.stop

	out := make(chan audio.Frame, cap(c.Feed))
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case f := <-c.Feed:
				select {
				case out <- f:
				case <-stop:
					return
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Stop ends the current capture.
func (c *Capturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.StopCalls++
	if !c.running {
		return nil
	}
	c.running = false
	close(c.stop)
	return nil
}

// Running reports whether capture is active.
func (c *Capturer) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

var _ audio.Capturer = (*Capturer)(nil)
