package health

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures an Aggregator.
type AggregatorConfig struct {
	// Timeout bounds every individual check.
	// Default: 5 seconds
	Timeout time.Duration `yaml:"timeout"`

	// Sequential runs checks one at a time instead of in parallel.
	Sequential bool `yaml:"sequential"`
}

// Report is the outcome of running every registered check.
type Report struct {
	Status    Status            `json:"status"`
	Checks    map[string]Result `json:"checks"`
	CheckedAt time.Time         `json:"checked_at"`
}

// Aggregator runs a set of checkers and folds their results into a Report.
// Checkers are keyed by Name and reported in registration order.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers []Checker
}

// NewAggregator creates an Aggregator.
func NewAggregator(config AggregatorConfig) *Aggregator {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Aggregator{config: config}
}

// Register adds checkers, replacing any registered under the same name.
func (a *Aggregator) Register(checkers ...Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range checkers {
		if c == nil {
			continue
		}
		if i := a.indexLocked(c.Name()); i >= 0 {
			a.checkers[i] = c
			continue
		}
		a.checkers = append(a.checkers, c)
	}
}

// Unregister removes the checker called name.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkers = slices.DeleteFunc(a.checkers, func(c Checker) bool { return c.Name() == name })
}

// Names returns checker names in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, len(a.checkers))
	for i, c := range a.checkers {
		names[i] = c.Name()
	}
	return names
}

func (a *Aggregator) indexLocked(name string) int {
	return slices.IndexFunc(a.checkers, func(c Checker) bool { return c.Name() == name })
}

// Check runs the single checker called name.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	i := a.indexLocked(name)
	var c Checker
	if i >= 0 {
		c = a.checkers[i]
	}
	a.mu.RUnlock()

	if c == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownCheck, name)
	}
	return a.run(ctx, c), nil
}

// Report runs every checker and returns the worst status among them.
// An empty aggregator is healthy.
func (a *Aggregator) Report(ctx context.Context) Report {
	a.mu.RLock()
	checkers := slices.Clone(a.checkers)
	a.mu.RUnlock()

	results := make([]Result, len(checkers))
	if a.config.Sequential {
		for i, c := range checkers {
			results[i] = a.run(ctx, c)
		}
	} else {
		var g errgroup.Group
		for i, c := range checkers {
			g.Go(func() error {
				results[i] = a.run(ctx, c)
				return nil
			})
		}
		_ = g.Wait()
	}

	report := Report{
		Status:    StatusHealthy,
		Checks:    make(map[string]Result, len(checkers)),
		CheckedAt: time.Now(),
	}
	for i, c := range checkers {
		report.Checks[c.Name()] = results[i]
		report.Status = report.Status.Worst(results[i].Status)
	}
	return report
}

// run executes c under the per-check timeout. A check that overruns is
// reported unhealthy without waiting for it.
func (a *Aggregator) run(ctx context.Context, c Checker) Result {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		r := c.Check(ctx)
		if r.CheckedAt.IsZero() {
			r.CheckedAt = start
		}
		r.Latency = time.Since(start)
		done <- r
	}()

	select {
	case r := <-done:
		return r
	case <-ctx.Done():
		r := Unhealthy("check timed out", ErrCheckTimeout)
		r.CheckedAt = start
		r.Latency = time.Since(start)
		return r
	}
}

// Checker exposes the whole aggregator as one Checker called "overall",
// with each component's status and message as details.
func (a *Aggregator) Checker() Checker {
	return NamedCheck("overall", func(ctx context.Context) Result {
		report := a.Report(ctx)
		details := make(map[string]any, len(report.Checks))
		for name, r := range report.Checks {
			details[name] = map[string]any{
				"status":  r.Status.String(),
				"message": r.Message,
			}
		}
		unhealthy := 0
		for _, r := range report.Checks {
			if r.Status != StatusHealthy {
				unhealthy++
			}
		}
		msg := fmt.Sprintf("%d of %d components healthy", len(report.Checks)-unhealthy, len(report.Checks))
		return Result{Status: report.Status, Message: msg, Details: details, CheckedAt: report.CheckedAt}
	})
}
