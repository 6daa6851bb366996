package cache

import (
	"container/list"
	"context"
	"maps"
	"sync"
	"time"

	"github.com/jonwraymond/toolpipe/observe"
	"github.com/jonwraymond/toolpipe/perf"
)

// Executor computes the authoritative result for a set of parameters.
type Executor[T any] func(ctx context.Context, params map[string]any) (T, error)

// Option configures a ResultCache.
type Option func(*options)

type options struct {
	keyer   Keyer
	sizer   Sizer
	logger  observe.Logger
	metrics observe.Metrics
	tracker *perf.Tracker
	now     func() time.Time
}

// WithKeyer overrides the key derivation. Default: DefaultKeyer.
func WithKeyer(k Keyer) Option {
	return func(o *options) { o.keyer = k }
}

// WithSizer overrides result size measurement. Default: JSONSizer.
func WithSizer(s Sizer) Option {
	return func(o *options) { o.sizer = s }
}

// WithLogger sets the logger for bypass and eviction events.
func WithLogger(l observe.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records hit/miss/eviction/bypass events.
func WithMetrics(m observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracker records one "cache.<tool>" sample per executor call.
func WithTracker(t *perf.Tracker) Option {
	return func(o *options) { o.tracker = t }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// ResultCache is a bounded, concurrent, TTL/TTI-aware store of tool results.
//
// Contract:
//   - Concurrency: safe for concurrent use. The lock covers lookup, insert,
//     eviction and counter updates only; executors run unlocked.
//   - Errors: executor errors are returned verbatim and never cached.
//     Keying or sizing failures bypass the cache and never fail the call.
type ResultCache[T any] struct {
	cfg  Config
	opts options

	mu      sync.Mutex
	entries map[string]*list.Element // of *Entry[T]
	lru     *list.List               // front = most recently accessed
	size    int64

	hits      uint64
	misses    uint64
	evictions uint64
	bypassed  uint64
}

// New creates a ResultCache. Non-positive Config fields take DefaultConfig values.
func New[T any](cfg Config, opts ...Option) *ResultCache[T] {
	o := options{
		keyer:   NewDefaultKeyer(),
		sizer:   JSONSizer,
		logger:  observe.NopLogger(),
		metrics: observe.NopMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = observe.OrNop(o.logger)

	return &ResultCache[T]{
		cfg:     cfg.withDefaults(),
		opts:    o,
		entries: make(map[string]*list.Element),
		lru:     list.New(),
	}
}

// Config returns the effective configuration.
func (c *ResultCache[T]) Config() Config {
	return c.cfg
}

// Execute returns the cached result for (tool, params) when a valid entry
// exists, without calling executor. Otherwise it runs executor, and stores a
// successful result whose serialized size fits MaxResultSize.
func (c *ResultCache[T]) Execute(ctx context.Context, tool string, params map[string]any, executor Executor[T]) (T, error) {
	key, err := c.opts.keyer.Key(tool, params)
	if err != nil {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		c.bypass(ctx, tool, "key derivation failed", observe.F("error", err))
		return executor(ctx, params)
	}

	if v, ok := c.lookup(ctx, tool, key); ok {
		return v, nil
	}

	var timer *perf.Timer
	if c.opts.tracker != nil {
		timer = c.opts.tracker.Start("cache." + tool)
	}

	result, err := executor(ctx, params)
	if err != nil {
		if timer != nil {
			timer.Fail(err.Error())
		}
		return result, err
	}
	if timer != nil {
		timer.Success()
	}

	size, err := c.opts.sizer(result)
	if err != nil {
		c.bypass(ctx, tool, "result not serializable", observe.F("error", err))
		return result, nil
	}
	if size > c.cfg.MaxResultSize {
		c.bypass(ctx, tool, "result too large to cache",
			observe.F("size_bytes", size),
			observe.F("max_result_size", c.cfg.MaxResultSize),
		)
		return result, nil
	}

	c.insert(ctx, tool, key, params, result, size)
	return result, nil
}

// Peek returns the cached result for (tool, params) if a valid entry exists.
// Hits and misses are counted as in Execute.
func (c *ResultCache[T]) Peek(tool string, params map[string]any) (T, bool) {
	key, err := c.opts.keyer.Key(tool, params)
	if err != nil {
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		var zero T
		return zero, false
	}
	return c.lookup(context.Background(), tool, key)
}

// lookup returns a valid entry's result and refreshes its access time.
// An invalid entry is dropped.
func (c *ResultCache[T]) lookup(ctx context.Context, tool, key string) (T, bool) {
	now := c.opts.now()

	c.mu.Lock()
	elem, ok := c.entries[key]
	if ok {
		entry := elem.Value.(*Entry[T])
		if entry.Valid(now, c.cfg.TTI) {
			entry.AccessCount++
			entry.LastAccessed = now
			c.lru.MoveToFront(elem)
			c.hits++
			result := entry.Result
			c.mu.Unlock()

			c.opts.metrics.RecordCacheEvent(ctx, tool, observe.CacheHit)
			c.opts.logger.Debug(ctx, "cache hit", observe.F("tool", tool), observe.F("cache_key", key))
			return result, true
		}
		c.removeLocked(elem)
	}
	c.misses++
	c.mu.Unlock()

	c.opts.metrics.RecordCacheEvent(ctx, tool, observe.CacheMiss)
	var zero T
	return zero, false
}

func (c *ResultCache[T]) insert(ctx context.Context, tool, key string, params map[string]any, result T, size int) {
	now := c.opts.now()
	entry := &Entry[T]{
		ToolName:     tool,
		Parameters:   maps.Clone(params),
		Result:       result,
		CachedAt:     now,
		ExpiresAt:    now.Add(c.cfg.TTL),
		LastAccessed: now,
		Key:          key,
		SizeBytes:    size,
	}

	var victim *Entry[T]

	c.mu.Lock()
	if elem, ok := c.entries[key]; ok {
		// A concurrent miss already stored this key; last insert wins.
		c.removeLocked(elem)
	} else if c.lru.Len() >= c.cfg.MaxEntries {
		if back := c.lru.Back(); back != nil {
			victim = back.Value.(*Entry[T])
			c.removeLocked(back)
			c.evictions++
		}
	}
	c.entries[key] = c.lru.PushFront(entry)
	c.size += int64(size)
	c.mu.Unlock()

	if victim != nil {
		c.opts.metrics.RecordCacheEvent(ctx, victim.ToolName, observe.CacheEviction)
		c.opts.logger.Debug(ctx, "cache eviction",
			observe.F("tool", victim.ToolName),
			observe.F("cache_key", victim.Key),
			observe.F("last_accessed", victim.LastAccessed),
		)
	}
	c.opts.logger.Debug(ctx, "cache store",
		observe.F("tool", tool),
		observe.F("cache_key", key),
		observe.F("size_bytes", size),
	)
}

func (c *ResultCache[T]) bypass(ctx context.Context, tool, reason string, fields ...observe.Field) {
	c.mu.Lock()
	c.bypassed++
	c.mu.Unlock()

	c.opts.metrics.RecordCacheEvent(ctx, tool, observe.CacheBypass)
	c.opts.logger.Warn(ctx, reason, append([]observe.Field{observe.F("tool", tool)}, fields...)...)
}

// removeLocked drops elem from the store. Caller holds c.mu.
func (c *ResultCache[T]) removeLocked(elem *list.Element) {
	entry := c.lru.Remove(elem).(*Entry[T])
	delete(c.entries, entry.Key)
	c.size -= int64(entry.SizeBytes)
}

// Invalidate removes every entry stored for tool and returns how many were removed.
func (c *ResultCache[T]) Invalidate(tool string) int {
	c.mu.Lock()
	removed := 0
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		if elem.Value.(*Entry[T]).ToolName == tool {
			c.removeLocked(elem)
			removed++
		}
		elem = next
	}
	c.mu.Unlock()

	c.opts.logger.Debug(context.Background(), "cache invalidated",
		observe.F("tool", tool), observe.F("removed", removed))
	return removed
}

// InvalidateAll clears the store. Counters are kept.
func (c *ResultCache[T]) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
	c.size = 0
	c.mu.Unlock()

	c.opts.logger.Info(context.Background(), "cache cleared")
}

// Purge drops entries that are past their TTL or TTI and returns the count.
func (c *ResultCache[T]) Purge() int {
	now := c.opts.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.lru.Front(); elem != nil; {
		next := elem.Next()
		if !elem.Value.(*Entry[T]).Valid(now, c.cfg.TTI) {
			c.removeLocked(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Stats returns current counters with a freshly computed hit rate.
func (c *ResultCache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		TotalEntries:   c.lru.Len(),
		Hits:           c.hits,
		Misses:         c.misses,
		HitRate:        hitRate(c.hits, c.misses),
		TotalSizeBytes: c.size,
		Evictions:      c.evictions,
		Bypassed:       c.bypassed,
	}
}

// Len returns the number of physically stored entries, valid or not.
func (c *ResultCache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Size returns the total serialized size of stored results in bytes.
func (c *ResultCache[T]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Utilization returns stored bytes as a percentage of MaxEntries*MaxResultSize.
func (c *ResultCache[T]) Utilization() float64 {
	capacity := float64(c.cfg.MaxEntries) * float64(c.cfg.MaxResultSize)
	return float64(c.Size()) / capacity * 100
}

// Entries returns copies of the stored entries, most recently accessed first.
func (c *ResultCache[T]) Entries() []Entry[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry[T], 0, c.lru.Len())
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		e := *elem.Value.(*Entry[T])
		e.Parameters = maps.Clone(e.Parameters)
		out = append(out, e)
	}
	return out
}
