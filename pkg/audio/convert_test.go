package audio

import (
	"encoding/binary"
	"testing"
)

// pcm16 encodes int16 samples as little-endian bytes.
func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// decode16 decodes little-endian int16 samples.
func decode16(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

func TestDownmix(t *testing.T) {
	t.Parallel()

	got := decode16(Downmix(pcm16(100, 300, -200, -400), 2))
	want := []int16{200, -300}
	if len(got) != len(want) {
		t.Fatalf("got %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestDownmix_NoOverflow(t *testing.T) {
	t.Parallel()

	got := decode16(Downmix(pcm16(32767, 32767), 2))
	if got[0] != 32767 {
		t.Errorf("sample = %d, want 32767", got[0])
	}
}

func TestResampleMono16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       []byte
		src, dst int
		wantLen  int
	}{
		{name: "same rate", in: pcm16(1, 2, 3, 4), src: 16000, dst: 16000, wantLen: 8},
		{name: "downsample 48k to 16k", in: pcm16(make([]int16, 480)...), src: 48000, dst: 16000, wantLen: 320},
		{name: "upsample 8k to 16k", in: pcm16(0, 100), src: 8000, dst: 16000, wantLen: 8},
		{name: "zero rate", in: pcm16(1, 2), src: 0, dst: 16000, wantLen: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := len(ResampleMono16(tt.in, tt.src, tt.dst)); got != tt.wantLen {
				t.Errorf("len = %d, want %d", got, tt.wantLen)
			}
		})
	}
}

func TestConverter_Convert(t *testing.T) {
	t.Parallel()

	c := &Converter{SampleRate: 16000}

	same := Frame{Data: pcm16(1, 2), SampleRate: 16000, Channels: 1}
	if got := c.Convert(same); len(got.Data) != 4 || got.SampleRate != 16000 {
		t.Errorf("matching frame changed: %+v", got)
	}

	stereo48 := Frame{Data: pcm16(make([]int16, 960)...), SampleRate: 48000, Channels: 2}
	got := c.Convert(stereo48)
	if got.Channels != 1 || got.SampleRate != 16000 || got.Samples() != 160 {
		t.Errorf("converted frame = rate %d channels %d samples %d, want 16000/1/160",
			got.SampleRate, got.Channels, got.Samples())
	}

	odd := Frame{Data: []byte{1, 2, 3}, SampleRate: 16000, Channels: 1}
	if got := c.Convert(odd); len(got.Data) != 0 {
		t.Errorf("misaligned frame should be dropped, got %d bytes", len(got.Data))
	}
}
