package deepgram

import (
	"encoding/json"
	"log/slog"

	"github.com/MrWong99/readtowatch/pkg/audio"
	"github.com/MrWong99/readtowatch/pkg/recognizer"
)

type eventKind int

const (
	eventResult eventKind = iota
	eventSpeechStarted
	eventUtteranceEnd
)

type event struct {
	kind   eventKind
	result recognizer.Result
}

// message covers the Deepgram server messages the session acts on.
type message struct {
	Type        string `json:"type"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`
	Channel     struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// parseMessage decodes a server message. It returns false for messages that
// carry nothing for the listener (Metadata, malformed JSON, empty results).
func parseMessage(data []byte) (event, bool) {
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Debug("deepgram: ignoring malformed message", "err", err)
		return event{}, false
	}
	switch m.Type {
	case "SpeechStarted":
		return event{kind: eventSpeechStarted}, true
	case "UtteranceEnd":
		return event{kind: eventUtteranceEnd}, true
	case "Results":
		if len(m.Channel.Alternatives) == 0 {
			return event{}, false
		}
		hyps := make([]recognizer.Hypothesis, 0, len(m.Channel.Alternatives))
		for _, alt := range m.Channel.Alternatives {
			hyps = append(hyps, recognizer.Hypothesis{
				Transcript: alt.Transcript,
				Confidence: alt.Confidence,
				IsFinal:    m.IsFinal,
			})
		}
		// Only the top alternative is a transcript; the rest are guesses
		// for the same audio.
		return event{kind: eventResult, result: recognizer.Result{Hypotheses: hyps[:1]}}, true
	default:
		return event{}, false
	}
}

func logLevel(f audio.Frame, sent int) {
	slog.Debug("deepgram: voice pickup", "level", audio.Level(f.Data), "frames_sent", sent)
}
