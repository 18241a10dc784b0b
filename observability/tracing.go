package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the eventmesh tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("eventmesh")

// SpanManager handles trace span lifecycle for dispatch cycles and deliveries.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartCycleSpan starts a span covering one processing cycle.
	StartCycleSpan(ctx context.Context, batchSize int) (context.Context, trace.Span)

	// StartDeliverySpan starts a span for a single subscriber delivery.
	// The delivery span should be a child of the cycle span.
	StartDeliverySpan(ctx context.Context, agent, eventType, correlationID string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartCycleSpan starts a span covering one processing cycle.
func (m *otelSpanManager) StartCycleSpan(ctx context.Context, batchSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "eventmesh.cycle",
		trace.WithAttributes(
			attribute.Int("batch.size", batchSize),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartDeliverySpan starts a span for a single subscriber delivery.
func (m *otelSpanManager) StartDeliverySpan(ctx context.Context, agent, eventType, correlationID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "eventmesh.delivery."+agent,
		trace.WithAttributes(
			attribute.String("agent.name", agent),
			attribute.String("event.type", eventType),
			attribute.String("correlation.id", correlationID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
