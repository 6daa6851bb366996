// Package perf aggregates duration and outcome per named operation.
//
// A Tracker hands out Timers; each Timer records exactly one sample when it
// is completed with Success or Fail. Aggregates are kept per operation name
// and can be summarized across all names.
//
//	tracker := perf.New()
//	timer := tracker.Start("search")
//	if err := run(); err != nil {
//	    timer.Fail(err.Error())
//	} else {
//	    timer.Success()
//	}
//	fmt.Println(tracker.Summary().SuccessRate)
package perf
