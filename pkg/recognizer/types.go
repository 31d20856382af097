package recognizer

import (
	"strings"
	"time"
)

// Hypothesis is a single transcription guess within a result batch.
type Hypothesis struct {
	// Transcript is the recognised text.
	Transcript string

	// Confidence is the backend's confidence in [0,1]. Zero when unknown.
	Confidence float64

	// IsFinal marks a hypothesis the backend has committed to.
	IsFinal bool
}

// Result is an ordered batch of hypotheses delivered together.
type Result struct {
	Hypotheses []Hypothesis

	// ReceivedAt is when the batch arrived from the backend.
	ReceivedAt time.Time
}

// FinalText concatenates the transcripts of all final hypotheses in the
// batch, separated by spaces. Interim hypotheses are skipped.
func (r Result) FinalText() string {
	var parts []string
	for _, h := range r.Hypotheses {
		if !h.IsFinal {
			continue
		}
		if t := strings.TrimSpace(h.Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
