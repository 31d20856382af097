// Package deepgram provides a streaming recognizer backed by Deepgram's live
// transcription WebSocket API. Microphone audio comes from an
// [audio.Capturer]; results, SpeechStarted and UtteranceEnd messages are
// reported to the session's [recognizer.Listener].
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/readtowatch/pkg/audio"
	"github.com/MrWong99/readtowatch/pkg/recognizer"
)

const (
	deepgramEndpoint  = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultSampleRate = 16000
	defaultUtterance  = 1000 * time.Millisecond
	closeTimeout      = 2 * time.Second
)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithSampleRate sets the audio sample rate sent to Deepgram.
func WithSampleRate(rate int) Option {
	return func(p *Provider) { p.sampleRate = rate }
}

// WithUtteranceEnd sets how much silence Deepgram waits for before sending
// UtteranceEnd. Deepgram requires at least one second.
func WithUtteranceEnd(d time.Duration) Option {
	return func(p *Provider) { p.utteranceEnd = d }
}

// WithCapturer sets the factory for the microphone feeding each session.
// Without one the provider reports recognition as unsupported.
func WithCapturer(newCapturer func() audio.Capturer) Option {
	return func(p *Provider) { p.newCapturer = newCapturer }
}

// WithEndpoint overrides the WebSocket endpoint. Used by tests.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) { p.endpoint = endpoint }
}

// Provider implements recognizer.Provider backed by the Deepgram streaming API.
type Provider struct {
	apiKey       string
	model        string
	sampleRate   int
	utteranceEnd time.Duration
	endpoint     string
	newCapturer  func() audio.Capturer
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		model:        defaultModel,
		sampleRate:   defaultSampleRate,
		utteranceEnd: defaultUtterance,
		endpoint:     deepgramEndpoint,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// NewSession prepares a session. No connection is made until Start.
func (p *Provider) NewSession(ctx context.Context, cfg recognizer.Config, l recognizer.Listener) (recognizer.Session, error) {
	if p.newCapturer == nil {
		return nil, fmt.Errorf("deepgram: no microphone configured: %w", recognizer.ErrUnsupported)
	}
	wsURL, err := p.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}
	return &session{
		ctx:        ctx,
		url:        wsURL,
		apiKey:     p.apiKey,
		sampleRate: p.sampleRate,
		capturer:   p.newCapturer(),
		listener:   l,
	}, nil
}

// buildURL constructs the Deepgram streaming endpoint URL for cfg.
func (p *Provider) buildURL(cfg recognizer.Config) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("model", p.model)
	if cfg.Language != "" {
		q.Set("language", cfg.Language)
	}
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(p.sampleRate))
	q.Set("channels", "1")
	q.Set("punctuate", "false")
	q.Set("interim_results", strconv.FormatBool(cfg.InterimResults))
	// SpeechStarted and UtteranceEnd drive speech start/end events.
	q.Set("vad_events", "true")
	ms := max(p.utteranceEnd, time.Second).Milliseconds()
	q.Set("utterance_end_ms", strconv.FormatInt(ms, 10))

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// session is one Deepgram streaming session. Each Start opens a new
// WebSocket connection and microphone capture; both end on Stop, on error or
// when the server closes the stream.
type session struct {
	ctx        context.Context
	url        string
	apiKey     string
	sampleRate int
	capturer   audio.Capturer
	listener   recognizer.Listener

	mu       sync.Mutex
	running  bool
	closed   bool
	stopping chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// Start opens the connection in the background.
func (s *session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return recognizer.ErrClosed
	}
	if s.running {
		return recognizer.ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.running = true
	s.stopping = make(chan struct{})
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.stopping, s.done)
	return nil
}

// Stop asks Deepgram to flush and close the stream. Final results for audio
// already sent still arrive before OnEnd.
func (s *session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running || s.stopping == nil {
		return nil
	}
	close(s.stopping)
	s.stopping = nil
	return nil
}

// Close stops the session immediately and waits for it to wind down.
func (s *session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (s *session) run(ctx context.Context, stopping <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.stopping = nil
		s.cancel()
		s.mu.Unlock()
		s.listener.OnEnd()
	}()

	if err := s.stream(ctx, stopping); err != nil && !errors.Is(err, errStreamClosed) {
		select {
		case <-stopping:
			// Errors after a requested stop are part of shutdown.
		default:
			if ctx.Err() == nil {
				s.listener.OnError(err)
			}
		}
	}
}

func (s *session) stream(ctx context.Context, stopping <-chan struct{}) error {
	headers := http.Header{}
	headers.Set("Authorization", "Token "+s.apiKey)
	conn, _, err := websocket.Dial(ctx, s.url, &websocket.DialOptions{HTTPHeader: headers})
	if err != nil {
		return fmt.Errorf("deepgram: dial: %w", err)
	}
	defer conn.CloseNow()

	frames, err := s.capturer.Start(ctx)
	if err != nil {
		return fmt.Errorf("deepgram: start capture: %w", err)
	}
	defer s.capturer.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.writeLoop(gctx, conn, frames, stopping) })
	g.Go(func() error { return s.readLoop(gctx, conn) })
	return g.Wait()
}

// writeLoop streams microphone audio until stop is requested, then sends
// CloseStream and gives the server closeTimeout to finish.
func (s *session) writeLoop(ctx context.Context, conn *websocket.Conn, frames <-chan audio.Frame, stopping <-chan struct{}) error {
	conv := &audio.Converter{SampleRate: s.sampleRate}
	var (
		sent      int
		lastLevel time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stopping:
			// Capture keeps running until stream returns; discard what it
			// produces while the server flushes.
			go audio.Drain(frames)
			if err := conn.Write(ctx, websocket.MessageText, []byte(`{"type":"CloseStream"}`)); err != nil {
				return fmt.Errorf("deepgram: close stream: %w", err)
			}
			select {
			case <-ctx.Done():
			case <-time.After(closeTimeout):
				conn.Close(websocket.StatusNormalClosure, "stream closed")
			}
			return nil
		case f, ok := <-frames:
			if !ok {
				return errors.New("deepgram: audio capture ended")
			}
			f = conv.Convert(f)
			if len(f.Data) == 0 {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageBinary, f.Data); err != nil {
				return fmt.Errorf("deepgram: write audio: %w", err)
			}
			sent++
			if time.Since(lastLevel) >= time.Second {
				lastLevel = time.Now()
				logLevel(f, sent)
			}
		}
	}
}

// readLoop forwards server messages to the listener until the connection
// closes.
func (s *session) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return errStreamClosed
			}
			return fmt.Errorf("deepgram: read: %w", err)
		}
		ev, ok := parseMessage(msg)
		if !ok {
			continue
		}
		switch ev.kind {
		case eventResult:
			ev.result.ReceivedAt = time.Now()
			s.listener.OnResult(ev.result)
		case eventSpeechStarted:
			s.listener.OnSpeechStart()
		case eventUtteranceEnd:
			s.listener.OnSpeechEnd()
		}
	}
}

// errStreamClosed ends the errgroup once the server has closed the stream
// normally. The session then just ends.
var errStreamClosed = errors.New("deepgram: stream closed by server")
