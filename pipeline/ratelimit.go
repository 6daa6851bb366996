package pipeline

import (
	"context"
	"fmt"

	"github.com/jonwraymond/toolpipe/observe"
	"github.com/jonwraymond/toolpipe/resilience"
)

// RateLimitPriority is the fixed priority of RateLimitMiddleware.
const RateLimitPriority = 20

// RateLimitMiddleware applies a per-client token bucket. It runs after
// authentication so authenticated principals get their own bucket.
type RateLimitMiddleware struct {
	Base
	limiter *resilience.KeyedLimiter
	logger  observe.Logger
}

// NewRateLimitMiddleware creates a rate limiting middleware. A nil limiter
// uses the default limits.
func NewRateLimitMiddleware(limiter *resilience.KeyedLimiter, logger observe.Logger) *RateLimitMiddleware {
	if limiter == nil {
		limiter = resilience.NewKeyedLimiter(resilience.KeyedLimiterConfig{})
	}
	return &RateLimitMiddleware{limiter: limiter, logger: observe.OrNop(logger)}
}

func (m *RateLimitMiddleware) Name() string  { return "rate_limiting" }
func (m *RateLimitMiddleware) Priority() int { return RateLimitPriority }

// Limiter returns the underlying keyed limiter.
func (m *RateLimitMiddleware) Limiter() *resilience.KeyedLimiter { return m.limiter }

func (m *RateLimitMiddleware) Before(ctx context.Context, req *Request, ic *InvocationContext) Outcome {
	clientID := ClientID(req, ic)
	ic.SetMetadata(MetaRateLimitClientID, clientID)

	allowed, remaining := m.limiter.Allow(clientID)
	if !allowed {
		ic.SetMetadata(MetaRateLimited, true)
		m.logger.Warn(ctx, "rate limit exceeded",
			observe.F("tool", req.Name),
			observe.F("invocation_id", ic.ID),
			observe.F("client_id", clientID),
		)
		return Stop(ErrorResult(fmt.Sprintf(
			"Rate limit exceeded. Limit: %d requests per minute. Please try again later.",
			m.limiter.Config().RequestsPerMinute,
		)))
	}
	ic.SetMetadata(MetaRateLimitRemaining, remaining)
	return Continue()
}

// ClientID picks the rate limit key for a request: the authenticated API key
// or JWT subject, then the client_id argument, then the invocation ID.
func ClientID(req *Request, ic *InvocationContext) string {
	if id, ok := ic.MetadataString(MetaAuthKeyID); ok {
		return "api_key:" + id
	}
	if id, ok := ic.MetadataString(MetaAuthUserID); ok {
		return "jwt:" + id
	}
	if id := req.StringArgument("client_id"); id != "" {
		return "client:" + id
	}
	return "request:" + ic.ID
}
