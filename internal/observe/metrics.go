// Package observe provides application-wide observability primitives:
// OpenTelemetry metrics, tracing, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MindSyncTech/talktocursor"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per utterance stage ---

	// SynthesisDuration tracks text-to-speech synthesis latency.
	SynthesisDuration metric.Float64Histogram

	// PlaybackDuration tracks audio playback time per utterance.
	PlaybackDuration metric.Float64Histogram

	// QueueWait tracks how long an utterance sat in the queue before
	// synthesis started.
	QueueWait metric.Float64Histogram

	// --- Counters ---

	// Utterances counts processed utterances. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	Utterances metric.Int64Counter

	// ProviderErrors counts synthesis backend errors. Use with attribute:
	//   attribute.String("provider", ...)
	ProviderErrors metric.Int64Counter

	// SignalWriteErrors counts failed signal file writes. Use with attribute:
	//   attribute.String("signal", ...)
	SignalWriteErrors metric.Int64Counter

	// ListenRequests counts listen triggers by outcome. Use with attribute:
	//   attribute.String("status", ...)
	ListenRequests metric.Int64Counter

	// --- Gauges ---

	// QueueDepth tracks the number of utterances waiting or playing.
	QueueDepth metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// speech synthesis and playback, which routinely runs into whole seconds.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SynthesisDuration, err = m.Float64Histogram("talktocursor.synthesis.duration",
		metric.WithDescription("Latency of text-to-speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PlaybackDuration, err = m.Float64Histogram("talktocursor.playback.duration",
		metric.WithDescription("Audio playback time per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.QueueWait, err = m.Float64Histogram("talktocursor.queue.wait",
		metric.WithDescription("Time an utterance waited in the queue before synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Utterances, err = m.Int64Counter("talktocursor.utterances",
		metric.WithDescription("Total processed utterances by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("talktocursor.provider.errors",
		metric.WithDescription("Total synthesis backend errors by provider."),
	); err != nil {
		return nil, err
	}
	if met.SignalWriteErrors, err = m.Int64Counter("talktocursor.signal.write_errors",
		metric.WithDescription("Total failed signal file writes by signal name."),
	); err != nil {
		return nil, err
	}
	if met.ListenRequests, err = m.Int64Counter("talktocursor.listen.requests",
		metric.WithDescription("Total listen triggers by status."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.QueueDepth, err = m.Int64UpDownCounter("talktocursor.queue.depth",
		metric.WithDescription("Number of utterances waiting or playing."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("talktocursor.http.request.duration",
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

// RecordUtterance records an utterance counter increment with the standard
// attribute set.
func (m *Metrics) RecordUtterance(ctx context.Context, provider, status string) {
	m.Utterances.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a synthesis backend error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("provider", provider)),
	)
}

// RecordSignalWriteError records a failed signal file write.
func (m *Metrics) RecordSignalWriteError(ctx context.Context, signal string) {
	m.SignalWriteErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("signal", signal)),
	)
}

// RecordListenRequest records a listen trigger with its outcome.
func (m *Metrics) RecordListenRequest(ctx context.Context, status string) {
	m.ListenRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
