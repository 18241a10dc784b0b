// Package observability provides OpenTelemetry metrics and tracing for the
// eventmesh dispatch pipeline. Both concerns are exposed behind small
// interfaces with no-op implementations so the dispatcher can run with zero
// observability overhead when disabled.
package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records dispatch pipeline metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDispatch records one event entering the pending queue.
	RecordDispatch(ctx context.Context, eventType string)

	// RecordDelivery records a single subscriber delivery with its duration
	// and error status.
	RecordDelivery(ctx context.Context, agent string, duration time.Duration, err error)

	// RecordCycle records a completed processing cycle.
	RecordCycle(ctx context.Context, batchSize int, duration time.Duration)

	// RecordQueueDepth records the pending queue length observed after a cycle.
	RecordQueueDepth(ctx context.Context, depth int)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	dispatched      metric.Int64Counter
	deliveries      metric.Int64Counter
	deliveryErrors  metric.Int64Counter
	deliveryLatency metric.Float64Histogram
	cycleLatency    metric.Float64Histogram
	queueDepth      metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("eventmesh")

	dispatched, err := meter.Int64Counter("eventmesh.events.dispatched",
		metric.WithDescription("Number of events enqueued for dispatch"),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter("eventmesh.deliveries",
		metric.WithDescription("Number of subscriber deliveries"),
	)
	if err != nil {
		return nil, err
	}

	deliveryErrors, err := meter.Int64Counter("eventmesh.delivery.errors",
		metric.WithDescription("Number of subscriber deliveries that returned an error"),
	)
	if err != nil {
		return nil, err
	}

	deliveryLatency, err := meter.Float64Histogram("eventmesh.delivery.latency_ms",
		metric.WithDescription("Subscriber delivery latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	cycleLatency, err := meter.Float64Histogram("eventmesh.cycle.latency_ms",
		metric.WithDescription("Processing cycle latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64Histogram("eventmesh.queue.depth",
		metric.WithDescription("Pending queue depth observed after each cycle"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		dispatched:      dispatched,
		deliveries:      deliveries,
		deliveryErrors:  deliveryErrors,
		deliveryLatency: deliveryLatency,
		cycleLatency:    cycleLatency,
		queueDepth:      queueDepth,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		return NoopMetrics{}
	}
	return m
}

// RecordDispatch records one event entering the pending queue.
func (m *otelMetrics) RecordDispatch(ctx context.Context, eventType string) {
	m.dispatched.Add(ctx, 1, metric.WithAttributes(attribute.String("event.type", eventType)))
}

// RecordDelivery records a single subscriber delivery.
func (m *otelMetrics) RecordDelivery(ctx context.Context, agent string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("agent.name", agent))
	m.deliveries.Add(ctx, 1, attrs)
	m.deliveryLatency.Record(ctx, float64(duration.Microseconds())/1000.0, attrs)
	if err != nil {
		m.deliveryErrors.Add(ctx, 1, attrs)
	}
}

// RecordCycle records a completed processing cycle.
func (m *otelMetrics) RecordCycle(ctx context.Context, batchSize int, duration time.Duration) {
	m.cycleLatency.Record(ctx, float64(duration.Microseconds())/1000.0,
		metric.WithAttributes(attribute.Int("batch.size", batchSize)))
}

// RecordQueueDepth records the pending queue length observed after a cycle.
func (m *otelMetrics) RecordQueueDepth(ctx context.Context, depth int) {
	m.queueDepth.Record(ctx, int64(depth))
}
