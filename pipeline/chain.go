package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/jonwraymond/toolpipe/observe"
)

const (
	hookBefore  = "before"
	hookAfter   = "after"
	hookOnError = "on_error"
)

// Option configures a Chain.
type Option func(*Chain)

// WithLogger sets the logger used to report misbehaving middleware.
func WithLogger(l observe.Logger) Option {
	return func(c *Chain) { c.logger = observe.OrNop(l) }
}

// WithIDGenerator replaces the invocation ID source. Default: random UUIDs.
func WithIDGenerator(gen func() string) Option {
	return func(c *Chain) {
		if gen != nil {
			c.newID = gen
		}
	}
}

// Chain runs requests through an ordered set of middleware.
//
// Contract:
//   - Concurrency: Execute is safe for concurrent use, also concurrently with
//     Add. An Execute call sees the middleware set as of its start.
//   - Errors: handler errors reach the caller verbatim unless an OnError hook
//     intervenes. Exactly one error is returned per invocation.
type Chain struct {
	mu          sync.Mutex
	middlewares atomic.Pointer[[]Middleware]

	logger observe.Logger
	newID  func() string
}

// New creates an empty Chain.
func New(opts ...Option) *Chain {
	c := &Chain{
		logger: observe.NopLogger(),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.middlewares.Store(&[]Middleware{})
	return c
}

// Add appends middleware and re-sorts ascending by priority. Middleware with
// equal priority keep their insertion order. Nil values are ignored.
func (c *Chain) Add(mws ...Middleware) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := slices.Clone(*c.middlewares.Load())
	for _, m := range mws {
		if m != nil {
			next = append(next, m)
		}
	}
	slices.SortStableFunc(next, func(a, b Middleware) int {
		return cmp.Compare(a.Priority(), b.Priority())
	})
	c.middlewares.Store(&next)
	return c
}

// Len returns the number of middleware.
func (c *Chain) Len() int {
	return len(*c.middlewares.Load())
}

// Names returns middleware names in execution order.
func (c *Chain) Names() []string {
	mws := *c.middlewares.Load()
	names := make([]string, len(mws))
	for i, m := range mws {
		names[i] = m.Name()
	}
	return names
}

// Execute runs req through the chain and handler.
func (c *Chain) Execute(ctx context.Context, req *Request, handler Handler) (*Result, error) {
	res, _, err := c.Run(ctx, req, handler)
	return res, err
}

// Run is Execute that also returns the invocation context, so callers can
// inspect the metadata the hooks recorded.
func (c *Chain) Run(ctx context.Context, req *Request, handler Handler) (*Result, *InvocationContext, error) {
	ic := NewInvocationContext(ctx, c.newID())
	if req == nil {
		return nil, ic, ErrNilRequest
	}
	if handler == nil {
		return nil, ic, ErrNilHandler
	}
	res, err := c.run(*c.middlewares.Load(), req, handler, ic)
	c.finish(req, ic, res, err)
	return res, ic, err
}

// finish runs the finishers registered on ic, last first. A panicking
// finisher is logged and does not affect the others or the result.
func (c *Chain) finish(req *Request, ic *InvocationContext, res *Result, err error) {
	for i := len(ic.finishers) - 1; i >= 0; i-- {
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Error(ic.Context(), "invocation finisher panicked",
						observe.F("tool", req.Name),
						observe.F("invocation_id", ic.ID),
						observe.F("panic", fmt.Sprintf("%v", r)),
					)
				}
			}()
			ic.finishers[i](res, err)
		}()
	}
}

func (c *Chain) run(mws []Middleware, req *Request, handler Handler, ic *InvocationContext) (*Result, error) {
	for _, m := range mws {
		out := c.hook(m, hookBefore, req, ic, func(ctx context.Context) Outcome {
			return m.Before(ctx, req, ic)
		})
		switch out.Action {
		case ActionStop:
			return out.Result, nil
		case ActionFail:
			return nil, out.Err
		}
	}

	res, err := callHandler(handler, req, ic)
	if err != nil {
		for _, m := range mws {
			out := c.hook(m, hookOnError, req, ic, func(ctx context.Context) Outcome {
				return m.OnError(ctx, req, err, ic)
			})
			switch out.Action {
			case ActionStop:
				return out.Result, nil
			case ActionFail:
				return nil, out.Err
			}
		}
		return nil, err
	}

	// After hooks run in the same ascending order as Before hooks.
	for _, m := range mws {
		out := c.hook(m, hookAfter, req, ic, func(ctx context.Context) Outcome {
			return m.After(ctx, req, res, ic)
		})
		switch out.Action {
		case ActionStop:
			return out.Result, nil
		case ActionFail:
			return nil, out.Err
		}
	}
	return res, nil
}

// hook runs one hook, turning panics and malformed outcomes into ChainError.
func (c *Chain) hook(m Middleware, hook string, req *Request, ic *InvocationContext, fn func(context.Context) Outcome) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = c.chainFailure(m, hook, req, ic, "panic", fmt.Errorf("%v", r))
		}
	}()

	out = fn(ic.Context())
	switch out.Action {
	case ActionContinue:
		return out
	case ActionStop:
		if out.Result == nil {
			return c.chainFailure(m, hook, req, ic, "stop without result", nil)
		}
		return out
	case ActionFail:
		if out.Err == nil {
			return c.chainFailure(m, hook, req, ic, "fail without error", nil)
		}
		return out
	default:
		return c.chainFailure(m, hook, req, ic, fmt.Sprintf("unknown action %d", out.Action), nil)
	}
}

func (c *Chain) chainFailure(m Middleware, hook string, req *Request, ic *InvocationContext, msg string, cause error) Outcome {
	err := &ChainError{
		Tool:       req.Name,
		Middleware: m.Name(),
		Hook:       hook,
		Message:    msg,
		Err:        cause,
	}
	c.logger.Error(ic.Context(), "middleware failed",
		observe.F("tool", req.Name),
		observe.F("invocation_id", ic.ID),
		observe.F("middleware", err.Middleware),
		observe.F("hook", hook),
		observe.F("error", err),
	)
	return Fail(err)
}

// callHandler runs the handler once. A panic becomes an ExecutionError and a
// nil result becomes an empty one.
func callHandler(handler Handler, req *Request, ic *InvocationContext) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = &ExecutionError{Tool: req.Name, Message: "handler panicked", Err: fmt.Errorf("%v", r)}
		}
	}()

	res, err = handler(ic.Context(), req)
	if err != nil {
		return nil, err
	}
	if res == nil {
		res = &Result{}
	}
	return res, nil
}
