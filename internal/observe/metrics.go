// Package observe provides application-wide observability primitives for
// Elocute: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
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

// meterName is the instrumentation scope name used for all Elocute metrics.
const meterName = "github.com/mwathi/elocute"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// CaptureDuration tracks microphone capture session length.
	CaptureDuration metric.Float64Histogram

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// TTSDuration tracks prompt synthesis latency.
	TTSDuration metric.Float64Histogram

	// PipelineDuration tracks end-to-end scoring pipeline latency
	// (validation through classification).
	PipelineDuration metric.Float64Histogram

	// --- Score distributions ---

	// WER tracks the word error rate distribution of scored attempts.
	WER metric.Float64Histogram

	// --- Counters ---

	// PipelineRuns counts scoring pipeline executions. Use with attributes:
	//   attribute.String("status", ...), attribute.String("category", ...)
	PipelineRuns metric.Int64Counter

	// ValidationIssues counts recording validation findings. Use with
	// attributes:
	//   attribute.String("issue", ...), attribute.String("severity", ...)
	ValidationIssues metric.Int64Counter

	// CaptureSessions counts finished capture sessions. Use with attributes:
	//   attribute.String("state", ...), attribute.String("reason", ...)
	CaptureSessions metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live capture sessions. With a
	// single-recorder setup this is 0 or 1; it exists to spot stuck sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// speech capture and batch inference latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// werBuckets covers the meaningful WER range. Values above 1.0 occur when
// the hypothesis is much longer than the reference.
var werBuckets = []float64{
	0, 0.05, 0.1, 0.2, 0.3, 0.5, 0.7, 1, 1.5, 2,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.CaptureDuration, err = m.Float64Histogram("elocute.capture.duration",
		metric.WithDescription("Length of microphone capture sessions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.STTDuration, err = m.Float64Histogram("elocute.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TTSDuration, err = m.Float64Histogram("elocute.tts.duration",
		metric.WithDescription("Latency of prompt speech synthesis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.PipelineDuration, err = m.Float64Histogram("elocute.pipeline.duration",
		metric.WithDescription("End-to-end scoring pipeline latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.WER, err = m.Float64Histogram("elocute.score.wer",
		metric.WithDescription("Word error rate distribution of scored attempts."),
		metric.WithExplicitBucketBoundaries(werBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.PipelineRuns, err = m.Int64Counter("elocute.pipeline.runs",
		metric.WithDescription("Total scoring pipeline executions by status and category."),
	); err != nil {
		return nil, err
	}
	if met.ValidationIssues, err = m.Int64Counter("elocute.validation.issues",
		metric.WithDescription("Total recording validation findings by issue and severity."),
	); err != nil {
		return nil, err
	}
	if met.CaptureSessions, err = m.Int64Counter("elocute.capture.sessions",
		metric.WithDescription("Total finished capture sessions by terminal state and reason."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("elocute.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("elocute.active_sessions",
		metric.WithDescription("Number of live capture sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("elocute.http.request.duration",
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

// RecordPipelineRun records a scoring pipeline execution with the standard
// attribute set. category may be empty for failed runs.
func (m *Metrics) RecordPipelineRun(ctx context.Context, status, category string) {
	m.PipelineRuns.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("status", status),
			attribute.String("category", category),
		),
	)
}

// RecordValidationIssue records one validation finding.
func (m *Metrics) RecordValidationIssue(ctx context.Context, issue string, hard bool) {
	severity := "soft"
	if hard {
		severity = "hard"
	}
	m.ValidationIssues.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("issue", issue),
			attribute.String("severity", severity),
		),
	)
}

// RecordCaptureSession records a finished capture session.
func (m *Metrics) RecordCaptureSession(ctx context.Context, state, reason string) {
	m.CaptureSessions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("state", state),
			attribute.String("reason", reason),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
