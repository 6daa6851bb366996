package resilience

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout applies when TimeoutConfig.Timeout is not positive.
const DefaultTimeout = 30 * time.Second

// TimeoutConfig configures a Timeout.
type TimeoutConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Timeout is a per-call deadline shared by every Call made with it.
type Timeout struct {
	limit time.Duration
}

// NewTimeout creates a Timeout. A non-positive Timeout uses DefaultTimeout.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Timeout{limit: config.Timeout}
}

// Duration returns the deadline each call receives.
func (t *Timeout) Duration() time.Duration { return t.limit }

// Call runs op with t's deadline and returns its value. A nil t runs op
// directly.
//
// If the deadline passes first Call returns ErrTimeout at once and op is
// left to observe cancellation on its own context. Cancellation of the
// parent ctx is reported as ctx.Err().
func Call[T any](ctx context.Context, t *Timeout, op func(context.Context) (T, error)) (T, error) {
	if t == nil {
		return op(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, t.limit)
	defer cancel()

	type reply struct {
		v   T
		err error
	}
	replies := make(chan reply, 1)
	go func() {
		v, err := op(ctx)
		replies <- reply{v, err}
	}()

	select {
	case r := <-replies:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, ctx.Err()
	}
}
