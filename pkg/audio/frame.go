// Package audio provides microphone capture for streaming recognizers and
// small PCM helpers: channel downmix, resampling and a voice pickup level.
//
// All PCM handled by this package is signed 16-bit little-endian.
package audio

import (
	"context"
	"time"
)

// Frame is one chunk of captured PCM audio.
type Frame struct {
	// Data holds interleaved int16 little-endian samples.
	Data []byte

	// SampleRate in Hz (e.g. 16000 for speech recognition).
	SampleRate int

	// Channels: 1 for mono, 2 for stereo.
	Channels int

	// CapturedAt is when the frame left the device.
	CapturedAt time.Time
}

// Samples returns the number of samples per channel in the frame.
func (f Frame) Samples() int {
	if f.Channels <= 0 {
		return 0
	}
	return len(f.Data) / 2 / f.Channels
}

// Capturer produces frames from an input device.
//
// Start opens the device and returns a channel of frames that is closed when
// capture stops, either through Stop or because ctx was cancelled. Calling
// Start on a running Capturer returns an error.
type Capturer interface {
	Start(ctx context.Context) (<-chan Frame, error)
	Stop() error
}

// CaptureConfig describes the requested capture format.
type CaptureConfig struct {
	SampleRate int
	Channels   int

	// BufferFrames is the device period size in frames. Zero lets the
	// backend choose.
	BufferFrames uint32
}

// DefaultCaptureConfig returns 16 kHz mono, the format most streaming
// recognizers expect.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{SampleRate: 16000, Channels: 1, BufferFrames: 1600}
}
