package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/toolpipe/observe"
	"github.com/jonwraymond/toolpipe/perf"
)

func sleepyHandler(d time.Duration) Handler {
	return func(context.Context, *Request) (*Result, error) {
		time.Sleep(d)
		return TextResult("ok"), nil
	}
}

func TestPerformanceMiddleware_SlowRequest(t *testing.T) {
	var buf bytes.Buffer
	tracker := perf.New()
	chain := New().Add(NewPerformanceMiddleware(time.Millisecond, observe.NewLoggerWithWriter("debug", &buf), tracker))

	_, ic, err := chain.Run(context.Background(), NewRequest("search", nil), sleepyHandler(10*time.Millisecond))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if v, _ := ic.Metadata(MetaIsSlow); v != true {
		t.Errorf("is_slow = %v, want true", v)
	}
	ms, ok := ic.Metadata(MetaDurationMS)
	if !ok || ms.(int64) < 10 {
		t.Errorf("duration_ms = %v, want >= 10", ms)
	}
	if !strings.Contains(buf.String(), `"msg":"slow request"`) {
		t.Errorf("expected slow request warning, got %s", buf.String())
	}

	st, ok := tracker.Stats(OperationName("search"))
	if !ok || st.Count != 1 || st.Successes != 1 {
		t.Errorf("tracker stats = %+v, %v", st, ok)
	}
}

func TestPerformanceMiddleware_FastRequest(t *testing.T) {
	var buf bytes.Buffer
	chain := New().Add(NewPerformanceMiddleware(time.Hour, observe.NewLoggerWithWriter("debug", &buf), nil))

	_, ic, err := chain.Run(context.Background(), NewRequest("search", nil), okHandler(nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if v, _ := ic.Metadata(MetaIsSlow); v != false {
		t.Errorf("is_slow = %v, want false", v)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no log output, got %s", buf.String())
	}
}

func TestPerformanceMiddleware_RecordsFailures(t *testing.T) {
	tracker := perf.New()
	chain := New().Add(NewPerformanceMiddleware(time.Hour, nil, tracker))

	_, _ = chain.Execute(context.Background(), NewRequest("search", nil), func(context.Context, *Request) (*Result, error) {
		return nil, errors.New("db down")
	})
	_, _ = chain.Execute(context.Background(), NewRequest("search", nil), func(context.Context, *Request) (*Result, error) {
		return ErrorResult("not found"), nil
	})

	st, _ := tracker.Stats(OperationName("search"))
	if st.Count != 2 || st.Failures != 2 {
		t.Errorf("stats = %+v, want 2 failures", st)
	}
	samples := tracker.Samples()
	if len(samples) != 2 || samples[0].Error != "db down" || samples[1].Error != "not found" {
		t.Errorf("samples = %+v", samples)
	}
}

func TestPerformanceMiddleware_Defaults(t *testing.T) {
	m := NewPerformanceMiddleware(0, nil, nil)
	if m.Threshold() != DefaultSlowThreshold {
		t.Errorf("Threshold() = %v, want %v", m.Threshold(), DefaultSlowThreshold)
	}
	if m.Name() != "performance" || m.Priority() != 200 {
		t.Errorf("unexpected identity %s/%d", m.Name(), m.Priority())
	}
}
