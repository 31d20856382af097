package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

const (
	wavHeaderSize    = 44
	wavBitsPerSample = 16
)

// WAVWriter streams 16-bit PCM into a RIFF/WAV container. The header is
// written with zero sizes up front and patched by Close, so the length of
// the recording does not have to be known in advance.
//
// Close does not close the underlying writer.
type WAVWriter struct {
	out        io.WriteSeeker
	sampleRate int
	channels   int

	mu        sync.Mutex
	dataBytes int64
	closed    bool
}

// NewWAVWriter writes a placeholder header to out and returns a writer for
// the PCM payload.
func NewWAVWriter(out io.WriteSeeker, sampleRate, channels int) (*WAVWriter, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("audio: invalid wav format %d Hz x %d channels", sampleRate, channels)
	}
	w := &WAVWriter{out: out, sampleRate: sampleRate, channels: channels}
	if _, err := out.Write(w.header(0)); err != nil {
		return nil, fmt.Errorf("audio: write wav header: %w", err)
	}
	return w, nil
}

// Write appends little-endian int16 samples.
func (w *WAVWriter) Write(pcm []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return 0, errors.New("audio: write to closed wav writer")
	}
	n, err := w.out.Write(pcm)
	w.dataBytes += int64(n)
	return n, err
}

// DataBytes returns the size of the PCM payload written so far.
func (w *WAVWriter) DataBytes() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dataBytes
}

// Duration returns the playback length of the payload written so far.
func (w *WAVWriter) Duration() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	perSecond := int64(w.sampleRate * w.channels * wavBitsPerSample / 8)
	return time.Duration(w.dataBytes * int64(time.Second) / perSecond)
}

// Close rewrites the header with the final sizes and leaves out positioned
// at its end. Calling Close twice is a no-op.
func (w *WAVWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if _, err := w.out.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("audio: seek wav header: %w", err)
	}
	if _, err := w.out.Write(w.header(w.dataBytes)); err != nil {
		return fmt.Errorf("audio: patch wav header: %w", err)
	}
	if _, err := w.out.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("audio: seek wav end: %w", err)
	}
	return nil
}

func (w *WAVWriter) header(dataSize int64) []byte {
	byteRate := w.sampleRate * w.channels * wavBitsPerSample / 8
	blockAlign := w.channels * wavBitsPerSample / 8

	buf := make([]byte, wavHeaderSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16) // PCM sub-chunk size
	binary.LittleEndian.PutUint16(buf[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(w.channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(w.sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], wavBitsPerSample)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	return buf
}
