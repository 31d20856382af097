package challenge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/MrWong99/readtowatch/internal/observe"
	"github.com/MrWong99/readtowatch/pkg/clock"
	"github.com/MrWong99/readtowatch/pkg/recognizer"
)

// target is what the lifecycle needs from the word progression. A
// successful submit advances the index, which cancels any pending
// suppression timer through the engine's advance hook.
type target interface {
	activeIndex() (int, bool)
	exhausted() bool
	submit(text string) bool
	unrecognized(index int)
}

// lifecycle owns the recognizer session. shouldRun is the caller's intent;
// active is the state last observed from the session. The two differ while
// asynchronous end and error events are in flight.
//
// All methods run on the dispatcher goroutine. Session callbacks are posted
// through the dispatcher and dropped if they belong to an older session.
type lifecycle struct {
	ctx      context.Context
	provider recognizer.Provider
	cfg      recognizer.Config
	name     string
	clock    clock.Clock
	dispatch Dispatcher
	obs      Observer
	metrics  *observe.Metrics
	policy   RestartPolicy
	suppress time.Duration
	target   target

	session     recognizer.Session
	gen         uint64
	shouldRun   bool
	active      bool
	listening   bool
	gesture     bool
	unsupported bool
	closed      bool

	attempts    int
	restart     clock.Timer
	restartSeq  uint64
	suppression clock.Timer
	suppressSeq uint64
}

// start requests listening. Failures never reach the caller: a missing
// recognizer is reported once as unsupported, any other failure shows the
// gesture affordance so the user can retry with start(true).
func (lc *lifecycle) start(fromGesture bool) {
	if lc.unsupported || lc.closed {
		return
	}
	lc.shouldRun = true
	if fromGesture {
		lc.attempts = 0
		lc.cancelRestart()
	}
	if lc.active {
		return
	}
	if lc.session == nil {
		lc.gen++
		s, err := lc.provider.NewSession(lc.ctx, lc.cfg, &listener{lc: lc, gen: lc.gen})
		if err != nil {
			if errors.Is(err, recognizer.ErrUnsupported) {
				lc.markUnsupported(err)
				return
			}
			slog.Warn("challenge: failed to create recognizer session", "provider", lc.name, "err", err)
			lc.showGesture()
			return
		}
		lc.session = s
	}
	if err := lc.session.Start(); err != nil && !errors.Is(err, recognizer.ErrAlreadyStarted) {
		if errors.Is(err, recognizer.ErrUnsupported) {
			lc.markUnsupported(err)
			return
		}
		slog.Warn("challenge: failed to start recognizer", "provider", lc.name, "from_gesture", fromGesture, "err", err)
		lc.showGesture()
		return
	}
	lc.active = true
	lc.hideGesture()
	lc.setListening(true)
}

// stop withdraws the intent to listen and marks the session inactive right
// away, so a following start is not swallowed while the backend's end event
// is still in flight. It always hides the listening indicator and the
// gesture affordance.
func (lc *lifecycle) stop() {
	lc.shouldRun = false
	lc.cancelRestart()
	lc.cancelSuppression()
	if lc.active && lc.session != nil {
		if err := lc.session.Stop(); err != nil {
			slog.Debug("challenge: recognizer stop failed", "provider", lc.name, "err", err)
		}
	}
	lc.active = false
	lc.listening = false
	lc.gesture = false
	lc.obs.OnListening(false)
	lc.obs.OnGestureRequired(false)
}

// close stops listening and releases the session. The lifecycle cannot be
// started again.
func (lc *lifecycle) close() error {
	lc.stop()
	lc.closed = true
	lc.active = false
	if lc.session == nil {
		return nil
	}
	s := lc.session
	lc.session = nil
	lc.gen++
	return s.Close()
}

// resetBackoff clears the restart counter.
func (lc *lifecycle) resetBackoff() {
	lc.attempts = 0
}

func (lc *lifecycle) onResult(r recognizer.Result) {
	if !lc.shouldRun {
		return
	}
	text := r.FinalText()
	if text == "" {
		return
	}
	// A final result proves the session healthy.
	lc.attempts = 0
	lc.target.submit(text)
}

func (lc *lifecycle) onSpeechStart() {
	lc.cancelSuppression()
	if lc.shouldRun {
		lc.setListening(true)
	}
}

// onSpeechEnd schedules the delayed unrecognised-word check. The timer keeps
// the index it was scheduled for and does nothing if the word has changed by
// the time it fires.
func (lc *lifecycle) onSpeechEnd() {
	if !lc.shouldRun {
		return
	}
	idx, ok := lc.target.activeIndex()
	if !ok {
		return
	}
	lc.cancelSuppression()
	seq := lc.suppressSeq
	lc.suppression = lc.clock.AfterFunc(lc.suppress, func() {
		lc.dispatch.Dispatch(func() {
			if seq != lc.suppressSeq {
				return
			}
			lc.suppression = nil
			lc.target.unrecognized(idx)
		})
	})
}

func (lc *lifecycle) onEnd() {
	lc.active = false
	if lc.shouldRun && !lc.target.exhausted() {
		lc.scheduleRestart()
	}
}

func (lc *lifecycle) onError(err error) {
	slog.Warn("challenge: recognizer error", "provider", lc.name, "err", err)
	lc.metrics.RecordRecognizerError(lc.ctx, lc.name)
	if errors.Is(err, recognizer.ErrUnsupported) {
		lc.markUnsupported(err)
		return
	}
	if lc.shouldRun {
		lc.scheduleRestart()
	}
}

// scheduleRestart arms a single pending restart, or shows the gesture
// affordance once the policy is exhausted.
func (lc *lifecycle) scheduleRestart() {
	if !lc.shouldRun || lc.restart != nil {
		return
	}
	if lc.policy.Exhausted(lc.attempts) {
		if !lc.gesture {
			slog.Warn("challenge: recognizer restart limit reached", "provider", lc.name, "attempts", lc.attempts)
		}
		lc.showGesture()
		return
	}
	delay := lc.policy.Delay(lc.attempts)
	lc.attempts++
	lc.restartSeq++
	seq := lc.restartSeq
	slog.Debug("challenge: scheduling recognizer restart", "provider", lc.name, "attempt", lc.attempts, "delay", delay)
	lc.restart = lc.clock.AfterFunc(delay, func() {
		lc.dispatch.Dispatch(func() {
			if seq != lc.restartSeq {
				return
			}
			lc.restart = nil
			if !lc.shouldRun {
				return
			}
			lc.metrics.RecordRestart(lc.ctx)
			lc.start(false)
		})
	})
}

func (lc *lifecycle) cancelRestart() {
	lc.restartSeq++
	if lc.restart != nil {
		lc.restart.Stop()
		lc.restart = nil
	}
}

func (lc *lifecycle) cancelSuppression() {
	lc.suppressSeq++
	if lc.suppression != nil {
		lc.suppression.Stop()
		lc.suppression = nil
	}
}

func (lc *lifecycle) showGesture() {
	if lc.gesture {
		return
	}
	lc.gesture = true
	lc.metrics.RecordGestureRequired(lc.ctx)
	lc.obs.OnGestureRequired(true)
}

func (lc *lifecycle) hideGesture() {
	if !lc.gesture {
		return
	}
	lc.gesture = false
	lc.obs.OnGestureRequired(false)
}

func (lc *lifecycle) setListening(on bool) {
	if lc.listening == on {
		return
	}
	lc.listening = on
	lc.obs.OnListening(on)
}

func (lc *lifecycle) markUnsupported(err error) {
	lc.shouldRun = false
	lc.cancelRestart()
	lc.cancelSuppression()
	if lc.unsupported {
		return
	}
	lc.unsupported = true
	slog.Error("challenge: speech recognition unsupported", "provider", lc.name, "err", err)
	lc.metrics.RecordUnsupported(lc.ctx)
	lc.obs.OnRecognitionUnsupported()
}

// listener forwards session events onto the dispatcher. Events from a
// replaced or closed session are dropped.
type listener struct {
	lc  *lifecycle
	gen uint64
}

func (l *listener) post(fn func()) {
	l.lc.dispatch.Dispatch(func() {
		if l.gen != l.lc.gen || l.lc.closed {
			return
		}
		fn()
	})
}

func (l *listener) OnResult(r recognizer.Result) { l.post(func() { l.lc.onResult(r) }) }
func (l *listener) OnSpeechStart()               { l.post(l.lc.onSpeechStart) }
func (l *listener) OnSpeechEnd()                 { l.post(l.lc.onSpeechEnd) }
func (l *listener) OnEnd()                       { l.post(l.lc.onEnd) }
func (l *listener) OnError(err error)            { l.post(func() { l.lc.onError(err) }) }

var _ recognizer.Listener = (*listener)(nil)
