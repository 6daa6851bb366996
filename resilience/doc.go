// Package resilience bounds tool invocations in time and rate.
//
// # Timeout
//
// Timeout runs an invocation under a deadline and reports ErrTimeout when the
// deadline passes before the invocation returns:
//
//	t := resilience.NewTimeout(resilience.TimeoutConfig{Timeout: 5 * time.Second})
//	res, err := resilience.Call(ctx, t, func(ctx context.Context) (*Result, error) {
//	    return handler(ctx, req)
//	})
//
// # Rate limiting
//
// KeyedLimiter keeps one token bucket per client key, refilled at a
// per-minute rate:
//
//	l := resilience.NewKeyedLimiter(resilience.KeyedLimiterConfig{
//	    RequestsPerMinute: 60,
//	    Burst:             10,
//	})
//	if ok, remaining := l.Allow("api_key:ops"); !ok {
//	    // reject
//	}
//
// Idle buckets are dropped lazily so the key set stays bounded by active
// clients.
package resilience
