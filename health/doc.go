// Package health reports the condition of the tool invocation stack.
//
// CacheChecker watches result cache utilization and TrackerChecker watches
// the invocation success rate recorded by a perf.Tracker. An Aggregator runs
// them together and reports the worst status.
//
//	agg := health.NewAggregator(health.AggregatorConfig{})
//	agg.Register(
//		health.NewCacheChecker(resultCache, health.CacheCheckerConfig{}),
//		health.NewTrackerChecker(tracker, health.TrackerCheckerConfig{}),
//	)
//	report := agg.Report(ctx)
package health
