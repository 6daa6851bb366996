package pipeline

import (
	"context"
	"errors"

	"github.com/jonwraymond/toolpipe/observe"
)

// TelemetryPriority is the fixed priority of TelemetryMiddleware.
const TelemetryPriority = 150

// errErrorResult marks spans and metrics for error-flagged results.
var errErrorResult = errors.New("tool returned an error result")

// TelemetryMiddleware opens a span per invocation and records invocation
// metrics. The span context is passed on to later hooks and the handler.
// The span ends when the invocation completes, including when a later
// middleware stops or fails the chain.
type TelemetryMiddleware struct {
	Base
	tracer  observe.Tracer
	metrics observe.Metrics
}

// NewTelemetryMiddleware creates a telemetry middleware. Nil arguments use
// the no-op implementations.
func NewTelemetryMiddleware(tracer observe.Tracer, metrics observe.Metrics) *TelemetryMiddleware {
	if tracer == nil {
		tracer = observe.NopTracer()
	}
	if metrics == nil {
		metrics = observe.NopMetrics()
	}
	return &TelemetryMiddleware{tracer: tracer, metrics: metrics}
}

// NewTelemetryFromObserver wires the observer's tracer and metrics.
func NewTelemetryFromObserver(obs observe.Observer) *TelemetryMiddleware {
	return NewTelemetryMiddleware(obs.Tracer(), obs.Metrics())
}

func (m *TelemetryMiddleware) Name() string  { return "telemetry" }
func (m *TelemetryMiddleware) Priority() int { return TelemetryPriority }

func (m *TelemetryMiddleware) Before(ctx context.Context, req *Request, ic *InvocationContext) Outcome {
	spanCtx, span := m.tracer.StartInvocation(ctx, req.Name, ic.ID)
	ic.SetContext(spanCtx)
	ic.OnFinish(func(res *Result, err error) {
		if err == nil && res != nil && res.IsError {
			err = errErrorResult
		}
		m.tracer.EndInvocation(span, err)
		m.metrics.RecordInvocation(spanCtx, req.Name, ic.Elapsed(), err)
	})
	return Continue()
}
