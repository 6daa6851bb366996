package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/toolpipe/cache"
	"github.com/jonwraymond/toolpipe/observe"
	"github.com/jonwraymond/toolpipe/pipeline"
	"github.com/jonwraymond/toolpipe/resilience"
)

// DefaultBatchConcurrency bounds DispatchBatch when no limit is given.
const DefaultBatchConcurrency = 4

// Tool is a named handler plus its caching policy.
type Tool struct {
	Name        string
	Description string
	Handler     pipeline.Handler

	// Tags classify the tool. Tools matched by the dispatcher's skip rule
	// are never cached, even when Cacheable.
	Tags []string

	// Cacheable tools have their results memoized.
	Cacheable bool

	// Invalidates lists tools whose cached results are dropped after a
	// successful call to this tool.
	Invalidates []string
}

// Config configures a Dispatcher.
type Config struct {
	// Timeout bounds one Dispatch call including all middleware.
	// Default: 30 seconds
	Timeout time.Duration `yaml:"timeout"`

	// Cache bounds the result cache used by cacheable tools.
	Cache cache.Config `yaml:"cache"`

	// BatchConcurrency is the default DispatchBatch parallelism.
	// Default: 4
	BatchConcurrency int `yaml:"batch_concurrency"`
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l observe.Logger) Option {
	return func(d *Dispatcher) { d.logger = observe.OrNop(l) }
}

// WithCache uses c for cacheable tools instead of a cache built from Config.
func WithCache(c *cache.ResultCache[*pipeline.Result]) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.cache = c
		}
	}
}

// WithSkipRule replaces the rule that vetoes caching by tool tags.
// Default: cache.DefaultSkipRule.
func WithSkipRule(rule cache.SkipRule) Option {
	return func(d *Dispatcher) {
		if rule != nil {
			d.skip = rule
		}
	}
}

// Dispatcher routes requests to registered tools.
//
// Contract:
//   - Concurrency: safe for concurrent use, including Register during Dispatch.
//   - Errors: unknown tools yield an error-flagged result, not an error.
//     Failures are returned as exactly one typed pipeline error.
type Dispatcher struct {
	chain   *pipeline.Chain
	timeout *resilience.Timeout
	cache   *cache.ResultCache[*pipeline.Result]
	skip    cache.SkipRule
	batch   int
	logger  observe.Logger

	mu    sync.RWMutex
	tools map[string]Tool
}

// New creates a Dispatcher. A nil chain runs handlers without middleware.
func New(chain *pipeline.Chain, cfg Config, opts ...Option) *Dispatcher {
	if chain == nil {
		chain = pipeline.New()
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = DefaultBatchConcurrency
	}
	d := &Dispatcher{
		chain:   chain,
		timeout: resilience.NewTimeout(resilience.TimeoutConfig{Timeout: cfg.Timeout}),
		skip:    cache.DefaultSkipRule,
		batch:   cfg.BatchConcurrency,
		logger:  observe.NopLogger(),
		tools:   make(map[string]Tool),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.cache == nil {
		d.cache = cache.New[*pipeline.Result](cfg.Cache, cache.WithLogger(d.logger))
	}
	return d
}

// Register adds a tool.
func (d *Dispatcher) Register(tool Tool) error {
	if !pipeline.ValidToolName(tool.Name) {
		return fmt.Errorf("%w: name %q", ErrInvalidTool, tool.Name)
	}
	if tool.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidTool, tool.Name)
	}
	tool.Invalidates = slices.Clone(tool.Invalidates)
	tool.Tags = slices.Clone(tool.Tags)
	if tool.Cacheable && d.skip(tool.Name, tool.Tags) {
		d.logger.Warn(context.Background(), "caching disabled by tool tags",
			observe.F("tool", tool.Name),
			observe.F("tags", tool.Tags),
		)
		tool.Cacheable = false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tools[tool.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, tool.Name)
	}
	d.tools[tool.Name] = tool
	return nil
}

// Tools returns registered tool names in sorted order.
func (d *Dispatcher) Tools() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.tools))
	for name := range d.tools {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns a registered tool.
func (d *Dispatcher) Lookup(name string) (Tool, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tools[name]
	return t, ok
}

// Cache returns the result cache shared by cacheable tools.
func (d *Dispatcher) Cache() *cache.ResultCache[*pipeline.Result] {
	return d.cache
}

// Chain returns the middleware chain.
func (d *Dispatcher) Chain() *pipeline.Chain {
	return d.chain
}

// Dispatch runs req through the chain and the matching tool.
func (d *Dispatcher) Dispatch(ctx context.Context, req *pipeline.Request) (*pipeline.Result, error) {
	if req == nil {
		return nil, pipeline.ErrNilRequest
	}

	res, err := resilience.Call(ctx, d.timeout, func(ctx context.Context) (*pipeline.Result, error) {
		return d.chain.Execute(ctx, req, d.handler)
	})
	if err != nil {
		err = wrapOnce(req.Name, err)
		d.logger.Warn(ctx, "dispatch failed", observe.F("tool", req.Name), observe.F("error", err))
		return nil, err
	}
	return res, nil
}

// handler resolves the tool at call time so that Register may run
// concurrently with Dispatch.
func (d *Dispatcher) handler(ctx context.Context, req *pipeline.Request) (*pipeline.Result, error) {
	tool, ok := d.Lookup(req.Name)
	if !ok {
		return pipeline.ErrorResult("Unknown tool: " + req.Name), nil
	}

	h := tool.Handler
	if tool.Cacheable {
		h = pipeline.CacheStage(d.cache, h)
	}

	res, err := h(ctx, req)
	if err != nil {
		return nil, err
	}
	if res != nil && !res.IsError {
		for _, name := range tool.Invalidates {
			if n := d.cache.Invalidate(name); n > 0 {
				d.logger.Debug(ctx, "cache invalidated",
					observe.F("tool", req.Name),
					observe.F("invalidated_tool", name),
					observe.F("entries", n),
				)
			}
		}
	}
	return res, nil
}

// wrapOnce leaves typed pipeline errors alone and wraps anything else in an
// ExecutionError.
func wrapOnce(tool string, err error) error {
	var (
		ve *pipeline.ValidationError
		ee *pipeline.ExecutionError
		ce *pipeline.ChainError
	)
	if errors.As(err, &ve) || errors.As(err, &ee) || errors.As(err, &ce) {
		return err
	}
	msg := "execution failed"
	if errors.Is(err, resilience.ErrTimeout) {
		msg = "timed out"
	}
	return &pipeline.ExecutionError{Tool: tool, Message: msg, Err: err}
}

// Response is the outcome of one request in a batch.
type Response struct {
	Request *pipeline.Request
	Result  *pipeline.Result
	Err     error
}

// DispatchBatch dispatches reqs with at most concurrency calls in flight
// (DefaultBatchConcurrency or the configured value when concurrency <= 0).
// Responses are in input order. A failed request does not cancel the others.
func (d *Dispatcher) DispatchBatch(ctx context.Context, reqs []*pipeline.Request, concurrency int) []Response {
	if concurrency <= 0 {
		concurrency = d.batch
	}
	out := make([]Response, len(reqs))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := d.Dispatch(ctx, req)
			out[i] = Response{Request: req, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
