package pipeline

import (
	"context"
	"slices"

	"github.com/jonwraymond/toolpipe/observe"
)

// LoggingPriority is the fixed priority of LoggingMiddleware.
const LoggingPriority = 100

// Result status values logged on completion.
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// LoggingMiddleware logs request start, completion and failure. Messages
// below the configured level are dropped before reaching the logger.
type LoggingMiddleware struct {
	level  observe.LogLevel
	logger observe.Logger
}

// NewLoggingMiddleware creates a logging middleware. A nil logger discards.
func NewLoggingMiddleware(level observe.LogLevel, logger observe.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{level: level, logger: observe.OrNop(logger)}
}

func (m *LoggingMiddleware) Name() string  { return "logging" }
func (m *LoggingMiddleware) Priority() int { return LoggingPriority }

// Level returns the minimum severity that is logged.
func (m *LoggingMiddleware) Level() observe.LogLevel { return m.level }

func (m *LoggingMiddleware) Before(ctx context.Context, req *Request, ic *InvocationContext) Outcome {
	m.log(ctx, observe.LevelInfo, "request started",
		observe.F("tool", req.Name),
		observe.F("invocation_id", ic.ID),
	)
	if args, ok := req.ArgumentsMap(); ok && len(args) > 0 {
		keys := make([]string, 0, len(args))
		for k := range args {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		m.log(ctx, observe.LevelDebug, "request arguments",
			observe.F("tool", req.Name),
			observe.F("invocation_id", ic.ID),
			observe.F("argument_names", keys),
		)
	}
	return Continue()
}

func (m *LoggingMiddleware) After(ctx context.Context, req *Request, res *Result, ic *InvocationContext) Outcome {
	status := StatusSuccess
	if res.IsError {
		status = StatusError
	}
	m.log(ctx, observe.LevelInfo, "request completed",
		observe.F("tool", req.Name),
		observe.F("invocation_id", ic.ID),
		observe.F("status", status),
		observe.F("elapsed_ms", ic.Elapsed().Milliseconds()),
	)
	return Continue()
}

func (m *LoggingMiddleware) OnError(ctx context.Context, req *Request, err error, ic *InvocationContext) Outcome {
	m.log(ctx, observe.LevelError, "request failed",
		observe.F("tool", req.Name),
		observe.F("invocation_id", ic.ID),
		observe.F("error", err),
		observe.F("elapsed_ms", ic.Elapsed().Milliseconds()),
	)
	return Continue()
}

func (m *LoggingMiddleware) log(ctx context.Context, level observe.LogLevel, msg string, fields ...observe.Field) {
	if !m.level.Enabled(level) {
		return
	}
	switch level {
	case observe.LevelDebug:
		m.logger.Debug(ctx, msg, fields...)
	case observe.LevelInfo:
		m.logger.Info(ctx, msg, fields...)
	case observe.LevelWarn:
		m.logger.Warn(ctx, msg, fields...)
	default:
		m.logger.Error(ctx, msg, fields...)
	}
}
