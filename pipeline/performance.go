package pipeline

import (
	"context"
	"time"

	"github.com/jonwraymond/toolpipe/observe"
	"github.com/jonwraymond/toolpipe/perf"
)

// PerformancePriority is the fixed priority of PerformanceMiddleware.
const PerformancePriority = 200

// DefaultSlowThreshold is used when no positive threshold is given.
const DefaultSlowThreshold = time.Second

// PerformanceMiddleware records invocation duration and flags slow requests.
// When a tracker is set, every completed invocation is recorded as a
// "tool.<name>" sample.
type PerformanceMiddleware struct {
	Base
	threshold time.Duration
	logger    observe.Logger
	tracker   *perf.Tracker
}

// NewPerformanceMiddleware creates a performance middleware. logger and
// tracker may be nil.
func NewPerformanceMiddleware(threshold time.Duration, logger observe.Logger, tracker *perf.Tracker) *PerformanceMiddleware {
	if threshold <= 0 {
		threshold = DefaultSlowThreshold
	}
	return &PerformanceMiddleware{
		threshold: threshold,
		logger:    observe.OrNop(logger),
		tracker:   tracker,
	}
}

func (m *PerformanceMiddleware) Name() string  { return "performance" }
func (m *PerformanceMiddleware) Priority() int { return PerformancePriority }

// Threshold returns the slow-request threshold.
func (m *PerformanceMiddleware) Threshold() time.Duration { return m.threshold }

func (m *PerformanceMiddleware) After(ctx context.Context, req *Request, res *Result, ic *InvocationContext) Outcome {
	elapsed := m.observe(ic)
	if elapsed > m.threshold {
		m.logger.Warn(ctx, "slow request",
			observe.F("tool", req.Name),
			observe.F("invocation_id", ic.ID),
			observe.F("duration_ms", elapsed.Milliseconds()),
			observe.F("threshold_ms", m.threshold.Milliseconds()),
		)
	}

	sample := perf.Sample{Operation: OperationName(req.Name), Duration: elapsed, Success: !res.IsError}
	if res.IsError {
		sample.Error = res.Text()
	}
	m.record(sample)
	return Continue()
}

func (m *PerformanceMiddleware) OnError(_ context.Context, req *Request, err error, ic *InvocationContext) Outcome {
	elapsed := m.observe(ic)
	m.record(perf.Sample{Operation: OperationName(req.Name), Duration: elapsed, Error: err.Error()})
	return Continue()
}

func (m *PerformanceMiddleware) observe(ic *InvocationContext) time.Duration {
	elapsed := ic.Elapsed()
	ic.SetMetadata(MetaDurationMS, elapsed.Milliseconds())
	ic.SetMetadata(MetaIsSlow, elapsed > m.threshold)
	return elapsed
}

func (m *PerformanceMiddleware) record(sample perf.Sample) {
	if m.tracker != nil {
		m.tracker.Record(sample)
	}
}

// OperationName is the tracker operation name for a tool.
func OperationName(tool string) string {
	return "tool." + tool
}
