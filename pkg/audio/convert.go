package audio

import (
	"log/slog"
	"sync"
)

// Converter turns captured frames into mono PCM at a fixed sample rate.
// Devices that cannot open the requested format (stereo headsets, 48 kHz
// only) are common; recognizers accept exactly one format.
//
// Create one per stream; it is not designed for shared use.
type Converter struct {
	SampleRate int

	warnMismatch sync.Once
	warnCorrupt  sync.Once
}

// Convert downmixes f to mono and resamples it to c.SampleRate. Frames
// already in the target format are returned unchanged. Frames whose length
// does not divide into whole samples are dropped (empty Data).
func (c *Converter) Convert(f Frame) Frame {
	ch := max(f.Channels, 1)
	if len(f.Data)%(2*ch) != 0 {
		c.warnCorrupt.Do(func() {
			slog.Warn("audio: misaligned PCM frame, dropping", "bytes", len(f.Data), "channels", ch)
		})
		return Frame{SampleRate: c.SampleRate, Channels: 1, CapturedAt: f.CapturedAt}
	}
	if ch == 1 && f.SampleRate == c.SampleRate {
		return f
	}
	c.warnMismatch.Do(func() {
		slog.Info("audio: converting capture format",
			"from_rate", f.SampleRate, "from_channels", ch,
			"to_rate", c.SampleRate,
		)
	})
	pcm := Downmix(f.Data, ch)
	pcm = ResampleMono16(pcm, f.SampleRate, c.SampleRate)
	return Frame{Data: pcm, SampleRate: c.SampleRate, Channels: 1, CapturedAt: f.CapturedAt}
}

// Downmix averages interleaved channels into mono. A channel count of 1
// returns pcm unchanged.
func Downmix(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	frames := len(pcm) / (2 * channels)
	out := make([]byte, frames*2)
	for i := range frames {
		var sum int32
		for c := range channels {
			off := (i*channels + c) * 2
			sum += int32(int16(uint16(pcm[off]) | uint16(pcm[off+1])<<8))
		}
		avg := sum / int32(channels)
		out[i*2] = byte(avg)
		out[i*2+1] = byte(avg >> 8)
	}
	return out
}

// ResampleMono16 resamples mono PCM from srcRate to dstRate with linear
// interpolation. Equal or invalid rates return pcm unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	src := len(pcm) / 2
	dst := int(int64(src) * int64(dstRate) / int64(srcRate))
	if dst == 0 {
		return nil
	}
	sample := func(i int) float64 {
		return float64(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
	}

	out := make([]byte, dst*2)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dst {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		s0 := sample(idx)
		s1 := s0
		if idx+1 < src {
			s1 = sample(idx + 1)
		}
		v := int16(s0*(1-frac) + s1*frac)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}
