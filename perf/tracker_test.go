package perf

import (
	"sync"
	"testing"
	"time"
)

func TestTracker_RecordAggregates(t *testing.T) {
	tr := New()
	tr.Record(Sample{Operation: "search", Duration: 10 * time.Millisecond, Success: true})
	tr.Record(Sample{Operation: "search", Duration: 30 * time.Millisecond, Success: false, Error: "boom"})
	tr.Record(Sample{Operation: "search", Duration: 20 * time.Millisecond, Success: true})

	st, ok := tr.Stats("search")
	if !ok {
		t.Fatal("expected stats for search")
	}
	if st.Count != 3 || st.Successes != 2 || st.Failures != 1 {
		t.Errorf("unexpected counts: %+v", st)
	}
	if st.Min != 10*time.Millisecond || st.Max != 30*time.Millisecond {
		t.Errorf("unexpected min/max: %v/%v", st.Min, st.Max)
	}
	if st.Average != 20*time.Millisecond {
		t.Errorf("expected average 20ms, got %v", st.Average)
	}
	if st.SuccessRate < 0.666 || st.SuccessRate > 0.667 {
		t.Errorf("expected success rate 2/3, got %f", st.SuccessRate)
	}
	if st.LastCalled.IsZero() {
		t.Error("expected LastCalled to be set")
	}
}

func TestTracker_UnknownOperation(t *testing.T) {
	if _, ok := New().Stats("missing"); ok {
		t.Error("expected no stats for unknown operation")
	}
}

func TestTimer_RecordsOnce(t *testing.T) {
	tr := New()
	timer := tr.Start("lookup")
	timer.Success()
	timer.Fail("late")

	st, _ := tr.Stats("lookup")
	if st.Count != 1 || st.Successes != 1 {
		t.Errorf("expected exactly one successful sample, got %+v", st)
	}
}

func TestTimer_Fail(t *testing.T) {
	tr := New()
	tr.Start("lookup").Fail("not found")

	samples := tr.Samples()
	if len(samples) != 1 || samples[0].Success || samples[0].Error != "not found" {
		t.Errorf("unexpected samples: %+v", samples)
	}
}

func TestTracker_Summary(t *testing.T) {
	tr := New()
	if s := tr.Summary(); s.SuccessRate != 0 || s.AverageDuration != 0 || s.TotalOperations != 0 {
		t.Errorf("expected zero summary, got %+v", s)
	}

	tr.Record(Sample{Operation: "a", Duration: 10 * time.Millisecond, Success: true})
	tr.Record(Sample{Operation: "b", Duration: 30 * time.Millisecond, Success: false})

	s := tr.Summary()
	if s.TotalOperations != 2 || s.TotalSuccessful != 1 || s.TotalFailed != 1 {
		t.Errorf("unexpected totals: %+v", s)
	}
	if s.OperationCount != 2 {
		t.Errorf("expected 2 operations, got %d", s.OperationCount)
	}
	if s.SuccessRate != 0.5 {
		t.Errorf("expected success rate 0.5, got %f", s.SuccessRate)
	}
	if s.AverageDuration != 20*time.Millisecond {
		t.Errorf("expected average 20ms, got %v", s.AverageDuration)
	}
}

func TestTracker_SampleHistoryBounded(t *testing.T) {
	tr := New(WithMaxSamples(2))
	for _, op := range []string{"a", "b", "c"} {
		tr.Record(Sample{Operation: op, Success: true})
	}

	samples := tr.Samples()
	if len(samples) != 2 || samples[0].Operation != "b" || samples[1].Operation != "c" {
		t.Errorf("expected [b c], got %+v", samples)
	}
	if st, _ := tr.Stats("a"); st.Count != 1 {
		t.Error("aggregates must survive history trimming")
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := New()
	tr.Start("a").Success()
	tr.Reset()

	if len(tr.All()) != 0 || len(tr.Samples()) != 0 {
		t.Error("expected empty tracker after Reset")
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			timer := tr.Start("op")
			if i%2 == 0 {
				timer.Success()
			} else {
				timer.Fail("odd")
			}
		}(i)
	}
	wg.Wait()

	st, _ := tr.Stats("op")
	if st.Count != 50 || st.Successes != 25 || st.Failures != 25 {
		t.Errorf("unexpected concurrent counts: %+v", st)
	}
	if names := tr.Operations(); len(names) != 1 || names[0] != "op" {
		t.Errorf("unexpected operations: %v", names)
	}
}
