// Package observe provides the pipeline's OpenTelemetry metrics.
//
// Instruments are created from a [metric.MeterProvider]. [InitProvider]
// installs an SDK provider backed by a Prometheus exporter so the dashboard
// can serve /metrics. Tests should use [NewMetrics] with a ManualReader.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope for all pointdex metrics.
const meterName = "github.com/teslashibe/go-pointdex"

// Metrics holds the pipeline's instruments. Safe for concurrent use.
type Metrics struct {
	// Cycles counts loop ticks by result: "dispatched", "suspended",
	// "busy", "not_ready", "skipped", "panic".
	Cycles metric.Int64Counter

	// InferenceDuration tracks classify round-trip latency.
	InferenceDuration metric.Float64Histogram

	// InferenceOutcomes counts completed dispatches by outcome kind
	// ("ok", "cancelled", "transport", "api", "malformed", "error").
	InferenceOutcomes metric.Int64Counter

	// ReadyEvents counts gate transitions to ready.
	ReadyEvents metric.Int64Counter

	// Announcements counts debounce decisions ("announced", "suppressed").
	Announcements metric.Int64Counter

	// Suspensions counts suspension changes by reason and cause
	// ("suspend", "resume", "release", "guard").
	Suspensions metric.Int64Counter
}

// latencyBuckets are histogram boundaries in seconds for classify calls.
var latencyBuckets = []float64{
	0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Cycles, err = m.Int64Counter("pointdex.cycles",
		metric.WithDescription("Loop ticks by result."),
	); err != nil {
		return nil, err
	}
	if met.InferenceDuration, err = m.Float64Histogram("pointdex.inference.duration",
		metric.WithDescription("Latency of classifier requests."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InferenceOutcomes, err = m.Int64Counter("pointdex.inference.outcomes",
		metric.WithDescription("Classifier request outcomes by kind."),
	); err != nil {
		return nil, err
	}
	if met.ReadyEvents, err = m.Int64Counter("pointdex.ready_events",
		metric.WithDescription("Stability gate ready transitions."),
	); err != nil {
		return nil, err
	}
	if met.Announcements, err = m.Int64Counter("pointdex.announcements",
		metric.WithDescription("Debounce decisions for ready events."),
	); err != nil {
		return nil, err
	}
	if met.Suspensions, err = m.Int64Counter("pointdex.suspensions",
		metric.WithDescription("Sampling suspension changes by reason and cause."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	discardMetrics     *Metrics
	discardMetricsOnce sync.Once
)

// Discard returns metrics that record nothing.
func Discard() *Metrics {
	discardMetricsOnce.Do(func() {
		var err error
		discardMetrics, err = NewMetrics(noop.NewMeterProvider())
		if err != nil {
			panic("observe: failed to create noop metrics: " + err.Error())
		}
	})
	return discardMetrics
}

// Default returns metrics bound to the global meter provider.
func Default() *Metrics {
	m, err := NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return Discard()
	}
	return m
}

// RecordCycle counts one loop tick.
func (m *Metrics) RecordCycle(ctx context.Context, result string) {
	m.Cycles.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordInference records a completed dispatch.
func (m *Metrics) RecordInference(ctx context.Context, kind string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", kind))
	m.InferenceOutcomes.Add(ctx, 1, attrs)
	if kind != "cancelled" {
		m.InferenceDuration.Record(ctx, d.Seconds(), attrs)
	}
}

// RecordReady counts a ready transition.
func (m *Metrics) RecordReady(ctx context.Context) {
	m.ReadyEvents.Add(ctx, 1)
}

// RecordAnnouncement counts a debounce decision.
func (m *Metrics) RecordAnnouncement(ctx context.Context, announced bool) {
	decision := "suppressed"
	if announced {
		decision = "announced"
	}
	m.Announcements.Add(ctx, 1, metric.WithAttributes(attribute.String("decision", decision)))
}

// RecordSuspension counts a suspension change.
func (m *Metrics) RecordSuspension(ctx context.Context, reason, cause string) {
	m.Suspensions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
		attribute.String("cause", cause),
	))
}
