package pipeline

import "context"

// Middleware intercepts tool invocations at three points.
//
// Contract:
//   - Concurrency: a Middleware is shared by all invocations of a Chain and
//     must be safe for concurrent use. The InvocationContext is not shared.
//   - Outcome: Stop must carry a non-nil Result and Fail a non-nil error;
//     violations are reported as *ChainError.
//   - Panics: a panicking hook is reported as *ChainError.
type Middleware interface {
	// Name identifies the middleware in logs and errors.
	Name() string

	// Priority orders middleware ascending. Lower runs earlier.
	Priority() int

	// Before runs before the handler.
	Before(ctx context.Context, req *Request, ic *InvocationContext) Outcome

	// After runs after a successful handler call. res may be modified in place.
	After(ctx context.Context, req *Request, res *Result, ic *InvocationContext) Outcome

	// OnError runs after a failed handler call.
	OnError(ctx context.Context, req *Request, err error, ic *InvocationContext) Outcome
}

// Base implements the three hooks as Continue. Embed it to override only
// the hooks a middleware needs.
type Base struct{}

func (Base) Before(context.Context, *Request, *InvocationContext) Outcome {
	return Continue()
}

func (Base) After(context.Context, *Request, *Result, *InvocationContext) Outcome {
	return Continue()
}

func (Base) OnError(context.Context, *Request, error, *InvocationContext) Outcome {
	return Continue()
}

// Hooks holds optional hook functions for NewFunc. Nil hooks Continue.
type Hooks struct {
	Before  func(ctx context.Context, req *Request, ic *InvocationContext) Outcome
	After   func(ctx context.Context, req *Request, res *Result, ic *InvocationContext) Outcome
	OnError func(ctx context.Context, req *Request, err error, ic *InvocationContext) Outcome
}

// NewFunc builds a Middleware from plain functions.
func NewFunc(name string, priority int, hooks Hooks) Middleware {
	return &funcMiddleware{name: name, priority: priority, hooks: hooks}
}

type funcMiddleware struct {
	name     string
	priority int
	hooks    Hooks
}

func (m *funcMiddleware) Name() string  { return m.name }
func (m *funcMiddleware) Priority() int { return m.priority }

func (m *funcMiddleware) Before(ctx context.Context, req *Request, ic *InvocationContext) Outcome {
	if m.hooks.Before == nil {
		return Continue()
	}
	return m.hooks.Before(ctx, req, ic)
}

func (m *funcMiddleware) After(ctx context.Context, req *Request, res *Result, ic *InvocationContext) Outcome {
	if m.hooks.After == nil {
		return Continue()
	}
	return m.hooks.After(ctx, req, res, ic)
}

func (m *funcMiddleware) OnError(ctx context.Context, req *Request, err error, ic *InvocationContext) Outcome {
	if m.hooks.OnError == nil {
		return Continue()
	}
	return m.hooks.OnError(ctx, req, err, ic)
}
