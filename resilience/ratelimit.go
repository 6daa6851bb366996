package resilience

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiterConfig configures a KeyedLimiter.
type KeyedLimiterConfig struct {
	// RequestsPerMinute is the sustained rate per key.
	// Default: 60
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// Burst is the bucket capacity per key.
	// Default: 10
	Burst int `yaml:"burst_limit"`

	// IdleTTL drops a key's bucket after this long without requests.
	// Default: 3 minutes
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter is a token bucket rate limiter partitioned by client key.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - Buckets idle longer than IdleTTL are swept on a later Allow call.
type KeyedLimiter struct {
	config KeyedLimiterConfig
	limit  rate.Limit
	now    func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

// NewKeyedLimiter creates a KeyedLimiter.
func NewKeyedLimiter(config KeyedLimiterConfig) *KeyedLimiter {
	return newKeyedLimiter(config, time.Now)
}

func newKeyedLimiter(config KeyedLimiterConfig, now func() time.Time) *KeyedLimiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = 60
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 3 * time.Minute
	}

	return &KeyedLimiter{
		config:    config,
		limit:     rate.Limit(float64(config.RequestsPerMinute) / 60),
		now:       now,
		visitors:  make(map[string]*visitor),
		lastSweep: now(),
	}
}

// Config returns the effective configuration.
func (l *KeyedLimiter) Config() KeyedLimiterConfig {
	return l.config
}

// Allow consumes one token from key's bucket. It reports whether the request
// is allowed and how many whole tokens remain afterwards.
func (l *KeyedLimiter) Allow(key string) (bool, int) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.config.IdleTTL {
		l.sweepLocked(now)
	}

	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.config.Burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	allowed := v.limiter.AllowN(now, 1)
	remaining := int(v.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}

// Reset drops key's bucket so its next request starts with a full burst.
func (l *KeyedLimiter) Reset(key string) {
	l.mu.Lock()
	delete(l.visitors, key)
	l.mu.Unlock()
}

// Keys returns the number of tracked client keys.
func (l *KeyedLimiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *KeyedLimiter) sweepLocked(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.config.IdleTTL {
			delete(l.visitors, key)
		}
	}
	l.lastSweep = now
}
