package audio

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWAVWriter_PatchesHeaderOnClose(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "retell.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w, err := NewWAVWriter(f, 16000, 1)
	if err != nil {
		t.Fatalf("NewWAVWriter: %v", err)
	}
	first := pcm16(1, 2, 3, 4)
	second := pcm16(-5, -6)
	for _, chunk := range [][]byte{first, second} {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := w.Write(first); err == nil {
		t.Error("Write after Close returned nil error")
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	payload := append(append([]byte{}, first...), second...)
	if len(data) != wavHeaderSize+len(payload) {
		t.Fatalf("file is %d bytes, want %d", len(data), wavHeaderSize+len(payload))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[36:40]) != "data" {
		t.Errorf("bad chunk ids: %q", data[:40])
	}
	if got := binary.LittleEndian.Uint32(data[4:8]); got != uint32(36+len(payload)) {
		t.Errorf("riff size = %d, want %d", got, 36+len(payload))
	}
	if got := binary.LittleEndian.Uint32(data[24:28]); got != 16000 {
		t.Errorf("sample rate = %d", got)
	}
	if got := binary.LittleEndian.Uint32(data[40:44]); got != uint32(len(payload)) {
		t.Errorf("data size = %d, want %d", got, len(payload))
	}
	if !bytes.Equal(data[wavHeaderSize:], payload) {
		t.Errorf("payload = %v, want %v", data[wavHeaderSize:], payload)
	}
}

func TestWAVWriter_Duration(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "d.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w, err := NewWAVWriter(f, 16000, 1)
	if err != nil {
		t.Fatal(err)
	}
	// 8000 samples at 16 kHz mono is half a second.
	if _, err := w.Write(make([]byte, 16000)); err != nil {
		t.Fatal(err)
	}
	if got := w.Duration(); got != 500*time.Millisecond {
		t.Errorf("Duration = %v, want 500ms", got)
	}
	if got := w.DataBytes(); got != 16000 {
		t.Errorf("DataBytes = %d, want 16000", got)
	}
}

func TestNewWAVWriter_RejectsInvalidFormat(t *testing.T) {
	t.Parallel()

	f, err := os.Create(filepath.Join(t.TempDir(), "x.wav"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := NewWAVWriter(f, 0, 1); err == nil {
		t.Error("zero sample rate accepted")
	}
	if _, err := NewWAVWriter(f, 16000, 0); err == nil {
		t.Error("zero channels accepted")
	}
}
