// Package malgo captures microphone audio through miniaudio (via
// github.com/gen2brain/malgo).
package malgo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/MrWong99/readtowatch/pkg/audio"
)

// ErrRunning is returned by Start when capture is already active.
var ErrRunning = errors.New("malgo: capture already running")

// Capturer reads PCM16 frames from the default capture device.
type Capturer struct {
	cfg audio.CaptureConfig

	mu      sync.Mutex
	running bool
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	frames  chan audio.Frame
	stop    chan struct{}
	dropped int
}

// New returns a Capturer for cfg. Zero fields fall back to
// [audio.DefaultCaptureConfig].
func New(cfg audio.CaptureConfig) *Capturer {
	def := audio.DefaultCaptureConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = def.Channels
	}
	return &Capturer{cfg: cfg}
}

// Start opens the default capture device. The returned channel is closed
// when capture stops.
func (c *Capturer) Start(ctx context.Context) (<-chan audio.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil, ErrRunning
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo: init context: %w", err)
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatS16
	devCfg.Capture.Channels = uint32(c.cfg.Channels)
	devCfg.SampleRate = uint32(c.cfg.SampleRate)
	devCfg.PeriodSizeInFrames = c.cfg.BufferFrames

	frames := make(chan audio.Frame, 32)
	stop := make(chan struct{})
	rate, channels := c.cfg.SampleRate, c.cfg.Channels

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			buf := make([]byte, len(input))
			copy(buf, input)
			f := audio.Frame{Data: buf, SampleRate: rate, Channels: channels, CapturedAt: time.Now()}
			select {
			case <-stop:
			case frames <- f:
			default:
				c.mu.Lock()
				c.dropped++
				c.mu.Unlock()
			}
		},
	}

	dev, err := malgo.InitDevice(mctx.Context, devCfg, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("malgo: init device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return nil, fmt.Errorf("malgo: start device: %w", err)
	}

	c.ctx, c.device, c.frames, c.stop = mctx, dev, frames, stop
	c.running = true
	c.dropped = 0
	slog.Debug("malgo: capture started", "sample_rate", rate, "channels", channels)

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Stop()
		case <-stop:
		}
	}()
	return frames, nil
}

// Stop stops the device and closes the frame channel. Stopping an idle
// Capturer is a no-op.
func (c *Capturer) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	dev, mctx, frames, stop := c.device, c.ctx, c.frames, c.stop
	dropped := c.dropped
	c.device, c.ctx, c.frames, c.stop = nil, nil, nil, nil
	c.mu.Unlock()

	close(stop)
	var errs []error
	if err := dev.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("malgo: stop device: %w", err))
	}
	// Uninit waits for the data callback to return, so closing frames
	// afterwards cannot race a send.
	dev.Uninit()
	if err := mctx.Uninit(); err != nil {
		errs = append(errs, fmt.Errorf("malgo: uninit context: %w", err))
	}
	mctx.Free()
	close(frames)

	if dropped > 0 {
		slog.Debug("malgo: dropped frames during capture", "count", dropped)
	}
	return errors.Join(errs...)
}

var _ audio.Capturer = (*Capturer)(nil)
