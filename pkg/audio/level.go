package audio

import "math"

// RMS returns the root-mean-square amplitude of pcm normalised to [0,1].
// A trailing odd byte is ignored.
func RMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		s := float64(int16(uint16(pcm[2*i])|uint16(pcm[2*i+1])<<8)) / 32768
		sum += s * s
	}
	return math.Sqrt(sum / float64(n))
}

// Level maps pcm to a 0-100 voice pickup percentage. Normal speech sits well
// below full scale, so the RMS is amplified by 200 before clamping.
func Level(pcm []byte) int {
	l := int(math.Round(RMS(pcm) * 200))
	return min(max(l, 0), 100)
}
