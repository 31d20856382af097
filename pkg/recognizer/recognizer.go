// Package recognizer defines the contract for a live speech-recognition
// session.
//
// A recognizer wraps a streaming transcription backend (Deepgram, a typed
// console feed, or any host-provided engine) and reports its activity through
// a [Listener]: batches of hypotheses, speech start and end markers, session
// end and errors. Sessions are started and stopped explicitly and may end on
// their own at any time; callers are expected to restart them.
//
// Listener callbacks may arrive on any goroutine. Consumers that own
// single-threaded state must serialise them (see internal/challenge.Loop).
package recognizer

import (
	"context"
	"errors"
)

// ErrUnsupported is returned by [Provider.NewSession] when the host offers no
// usable recognizer. It is fatal for the challenge that requested it.
var ErrUnsupported = errors.New("recognizer: speech recognition unsupported")

// ErrAlreadyStarted is returned by [Session.Start] when the session is
// already running.
var ErrAlreadyStarted = errors.New("recognizer: session already started")

// ErrClosed is returned by Session methods called after Close.
var ErrClosed = errors.New("recognizer: session closed")

// Config describes how a new session should listen.
type Config struct {
	// Language is the BCP-47 locale recognised by the session (e.g. "en-US").
	Language string

	// Continuous keeps the session open across utterances instead of ending
	// after the first final result.
	Continuous bool

	// InterimResults requests tentative hypotheses in addition to finals.
	InterimResults bool
}

// Listener receives session events. Implementations must not block.
type Listener interface {
	// OnResult delivers the hypotheses of one result batch.
	OnResult(Result)

	// OnSpeechStart reports that the recogniser detected the start of speech.
	OnSpeechStart()

	// OnSpeechEnd reports that the recogniser believes speech has ended. A
	// final result for the same utterance may still follow.
	OnSpeechEnd()

	// OnEnd reports that the session stopped listening, whether requested or
	// not. A stopped session may be started again.
	OnEnd()

	// OnError reports a session fault. An OnEnd normally follows.
	OnError(err error)
}

// Session is one live recognition session.
type Session interface {
	// Start begins listening. It returns [ErrAlreadyStarted] if the session
	// is already running. Start does not block on audio; outcomes arrive via
	// the Listener.
	Start() error

	// Stop asks the session to stop listening. OnEnd follows once the
	// backend has wound down. Stopping an idle session is a no-op.
	Stop() error

	// Close releases all resources. The session cannot be restarted after
	// Close. Calling Close more than once is safe.
	Close() error
}

// Provider creates sessions bound to a Listener.
type Provider interface {
	// NewSession constructs a session with the given configuration. It
	// returns an error wrapping [ErrUnsupported] if recognition is not
	// available at all.
	NewSession(ctx context.Context, cfg Config, l Listener) (Session, error)
}
