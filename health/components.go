package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/toolpipe/cache"
	"github.com/jonwraymond/toolpipe/perf"
)

// CacheProbe is the read-only view of a result cache that CacheChecker needs.
// *cache.ResultCache[T] satisfies it for any T.
type CacheProbe interface {
	Stats() cache.Stats
	Utilization() float64
}

// CacheCheckerConfig configures CacheChecker thresholds, in percent of capacity.
type CacheCheckerConfig struct {
	// WarningPercent triggers degraded status. Default: 80
	WarningPercent float64

	// CriticalPercent triggers unhealthy status. Default: 95
	CriticalPercent float64
}

// CacheChecker reports degraded or unhealthy as a result cache nears capacity.
type CacheChecker struct {
	probe  CacheProbe
	config CacheCheckerConfig
}

// NewCacheChecker creates a CacheChecker.
func NewCacheChecker(probe CacheProbe, config CacheCheckerConfig) *CacheChecker {
	if config.WarningPercent <= 0 || config.WarningPercent >= 100 {
		config.WarningPercent = 80
	}
	if config.CriticalPercent <= 0 || config.CriticalPercent > 100 {
		config.CriticalPercent = 95
	}
	if config.CriticalPercent < config.WarningPercent {
		config.CriticalPercent = config.WarningPercent
	}
	return &CacheChecker{probe: probe, config: config}
}

// Name returns "cache".
func (c *CacheChecker) Name() string {
	return "cache"
}

// Check compares utilization against the thresholds.
func (c *CacheChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	st := c.probe.Stats()
	util := c.probe.Utilization()
	details := map[string]any{
		"utilization_percent": util,
		"entries":             st.TotalEntries,
		"size_bytes":          st.TotalSizeBytes,
		"hit_rate":            st.HitRate,
		"evictions":           st.Evictions,
		"bypassed":            st.Bypassed,
	}

	switch {
	case util >= c.config.CriticalPercent:
		return Unhealthy(fmt.Sprintf("cache utilization critical: %.1f%%", util), ErrCacheSaturated).WithDetails(details)
	case util >= c.config.WarningPercent:
		return Degraded(fmt.Sprintf("cache utilization high: %.1f%%", util)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("cache utilization normal: %.1f%%", util)).WithDetails(details)
	}
}

// TrackerCheckerConfig configures TrackerChecker.
type TrackerCheckerConfig struct {
	// MinSuccessRate below which the checker reports degraded, in [0,1].
	// Default: 0.95
	MinSuccessRate float64

	// MinOperations is the sample count required before judging.
	// Default: 10
	MinOperations uint64
}

// TrackerChecker reports degraded when the overall success rate recorded by
// a perf.Tracker falls below a threshold.
type TrackerChecker struct {
	tracker *perf.Tracker
	config  TrackerCheckerConfig
}

// NewTrackerChecker creates a TrackerChecker.
func NewTrackerChecker(tracker *perf.Tracker, config TrackerCheckerConfig) *TrackerChecker {
	if config.MinSuccessRate <= 0 || config.MinSuccessRate > 1 {
		config.MinSuccessRate = 0.95
	}
	if config.MinOperations == 0 {
		config.MinOperations = 10
	}
	return &TrackerChecker{tracker: tracker, config: config}
}

// Name returns "operations".
func (c *TrackerChecker) Name() string {
	return "operations"
}

// Check compares the overall success rate against MinSuccessRate.
func (c *TrackerChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	sum := c.tracker.Summary()
	details := map[string]any{
		"total_operations": sum.TotalOperations,
		"successful":       sum.TotalSuccessful,
		"failed":           sum.TotalFailed,
		"success_rate":     sum.SuccessRate,
		"average_duration": sum.AverageDuration.String(),
	}

	if sum.TotalOperations < c.config.MinOperations {
		return Healthy(fmt.Sprintf("insufficient samples: %d", sum.TotalOperations)).WithDetails(details)
	}
	if sum.SuccessRate < c.config.MinSuccessRate {
		return Degraded(fmt.Sprintf("success rate low: %.1f%%", sum.SuccessRate*100)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("success rate normal: %.1f%%", sum.SuccessRate*100)).WithDetails(details)
}

var (
	_ Checker = (*CacheChecker)(nil)
	_ Checker = (*TrackerChecker)(nil)
)
