package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// SpanName returns the deterministic span name for a tool invocation.
// Format: tool.invoke.<name>
func SpanName(tool string) string {
	return "tool.invoke." + tool
}

// Tracer wraps OpenTelemetry tracing with invocation-scoped spans.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndInvocation must be best-effort and must not panic.
type Tracer interface {
	// StartInvocation starts a span for one tool invocation.
	StartInvocation(ctx context.Context, tool, invocationID string) (context.Context, trace.Span)

	// EndInvocation ends the span, recording err if non-nil.
	EndInvocation(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartInvocation(ctx context.Context, tool, invocationID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanName(tool),
		trace.WithAttributes(
			attribute.String("tool.name", tool),
			attribute.String("invocation.id", invocationID),
			attribute.Bool("tool.error", false),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndInvocation(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("tool.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// NopTracer returns a tracer whose spans are never recorded.
func NopTracer() Tracer {
	return &tracerImpl{tracer: tracenoop.NewTracerProvider().Tracer("noop")}
}
