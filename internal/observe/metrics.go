// Package observe provides application-wide observability primitives for
// readtowatch: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all readtowatch metrics.
const meterName = "github.com/MrWong99/readtowatch"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
//
// The Record helpers are safe to call on a nil *Metrics, which lets
// components treat metrics as optional.
type Metrics struct {
	// --- Challenge ---

	// WordOutcomes counts per-word outcomes. Use with attribute:
	//   attribute.String("outcome", "correct"|"error"|"helped")
	WordOutcomes metric.Int64Counter

	// SentencesCompleted counts challenges that reached the end of their
	// sentence.
	SentencesCompleted metric.Int64Counter

	// WordsHelped counts words revealed by help or skip.
	WordsHelped metric.Int64Counter

	// ChallengeDuration tracks how long a child needed to read a sentence.
	ChallengeDuration metric.Float64Histogram

	// ActiveChallenges tracks the number of running challenges.
	ActiveChallenges metric.Int64UpDownCounter

	// --- Recognizer ---

	// RecognizerRestarts counts automatic recognizer restarts.
	RecognizerRestarts metric.Int64Counter

	// RecognizerErrors counts recognizer error events. Use with attribute:
	//   attribute.String("provider", ...)
	RecognizerErrors metric.Int64Counter

	// GestureRequired counts how often a manual microphone start was requested.
	GestureRequired metric.Int64Counter

	// RecognizerUnsupported counts challenges aborted because no recognizer
	// was available.
	RecognizerUnsupported metric.Int64Counter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// readingBuckets defines histogram bucket boundaries (in seconds) for how
// long a sentence takes to read aloud.
var readingBuckets = []float64{
	1, 2.5, 5, 10, 15, 30, 60, 120, 300,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.WordOutcomes, err = m.Int64Counter("readtowatch.word.outcomes",
		metric.WithDescription("Total per-word outcomes by outcome."),
	); err != nil {
		return nil, err
	}
	if met.SentencesCompleted, err = m.Int64Counter("readtowatch.sentences.completed",
		metric.WithDescription("Total sentences read to completion."),
	); err != nil {
		return nil, err
	}
	if met.WordsHelped, err = m.Int64Counter("readtowatch.words.helped",
		metric.WithDescription("Total words revealed by help or skip."),
	); err != nil {
		return nil, err
	}
	if met.ChallengeDuration, err = m.Float64Histogram("readtowatch.challenge.duration",
		metric.WithDescription("Time from challenge start to sentence completion."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(readingBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveChallenges, err = m.Int64UpDownCounter("readtowatch.active_challenges",
		metric.WithDescription("Number of running reading challenges."),
	); err != nil {
		return nil, err
	}

	if met.RecognizerRestarts, err = m.Int64Counter("readtowatch.recognizer.restarts",
		metric.WithDescription("Total automatic recognizer restarts."),
	); err != nil {
		return nil, err
	}
	if met.RecognizerErrors, err = m.Int64Counter("readtowatch.recognizer.errors",
		metric.WithDescription("Total recognizer error events by provider."),
	); err != nil {
		return nil, err
	}
	if met.GestureRequired, err = m.Int64Counter("readtowatch.recognizer.gesture_required",
		metric.WithDescription("Total requests for a manual microphone start."),
	); err != nil {
		return nil, err
	}
	if met.RecognizerUnsupported, err = m.Int64Counter("readtowatch.recognizer.unsupported",
		metric.WithDescription("Total challenges aborted for lack of a recognizer."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("readtowatch.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordWordOutcome records one per-word outcome.
func (m *Metrics) RecordWordOutcome(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.WordOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSentenceCompleted records a finished sentence together with the
// number of helped words and the reading time.
func (m *Metrics) RecordSentenceCompleted(ctx context.Context, helped int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SentencesCompleted.Add(ctx, 1)
	if helped > 0 {
		m.WordsHelped.Add(ctx, int64(helped))
	}
	m.ChallengeDuration.Record(ctx, elapsed.Seconds())
}

// ChallengeStarted increments the active challenge gauge.
func (m *Metrics) ChallengeStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveChallenges.Add(ctx, 1)
}

// ChallengeEnded decrements the active challenge gauge.
func (m *Metrics) ChallengeEnded(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveChallenges.Add(ctx, -1)
}

// RecordRestart records an automatic recognizer restart.
func (m *Metrics) RecordRestart(ctx context.Context) {
	if m == nil {
		return
	}
	m.RecognizerRestarts.Add(ctx, 1)
}

// RecordRecognizerError records a recognizer error event.
func (m *Metrics) RecordRecognizerError(ctx context.Context, provider string) {
	if m == nil {
		return
	}
	m.RecognizerErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordGestureRequired records a request for a manual microphone start.
func (m *Metrics) RecordGestureRequired(ctx context.Context) {
	if m == nil {
		return
	}
	m.GestureRequired.Add(ctx, 1)
}

// RecordUnsupported records a challenge aborted for lack of a recognizer.
func (m *Metrics) RecordUnsupported(ctx context.Context) {
	if m == nil {
		return
	}
	m.RecognizerUnsupported.Add(ctx, 1)
}
