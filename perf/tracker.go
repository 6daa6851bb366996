package perf

import (
	"sort"
	"sync"
	"time"
)

// DefaultMaxSamples bounds the raw sample history kept by a Tracker.
const DefaultMaxSamples = 10000

// Sample is one completed operation.
type Sample struct {
	Operation string
	Duration  time.Duration
	Timestamp time.Time
	Success   bool
	Error     string
}

// OperationStats aggregates all samples recorded for one operation name.
type OperationStats struct {
	Operation   string
	Count       uint64
	Successes   uint64
	Failures    uint64
	Total       time.Duration
	Min         time.Duration
	Max         time.Duration
	Average     time.Duration
	SuccessRate float64
	LastCalled  time.Time
}

func (s *OperationStats) add(sample Sample) {
	s.Count++
	s.Total += sample.Duration
	s.LastCalled = sample.Timestamp

	if sample.Success {
		s.Successes++
	} else {
		s.Failures++
	}

	if s.Count == 1 || sample.Duration < s.Min {
		s.Min = sample.Duration
	}
	if sample.Duration > s.Max {
		s.Max = sample.Duration
	}

	s.Average = s.Total / time.Duration(s.Count)
	s.SuccessRate = float64(s.Successes) / float64(s.Count)
}

// Summary aggregates totals across every operation name.
type Summary struct {
	TotalOperations uint64
	TotalSuccessful uint64
	TotalFailed     uint64
	SuccessRate     float64
	TotalDuration   time.Duration
	AverageDuration time.Duration
	OperationCount  int
}

// Tracker records operation samples.
//
// Contract:
// - Concurrency: safe for concurrent use; critical sections are O(1) apart
//   from sample-history trimming.
type Tracker struct {
	mu         sync.Mutex
	stats      map[string]*OperationStats
	samples    []Sample
	maxSamples int
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxSamples sets the raw sample history bound. Zero disables history.
func WithMaxSamples(n int) Option {
	return func(t *Tracker) {
		if n >= 0 {
			t.maxSamples = n
		}
	}
}

// New creates a Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		stats:      make(map[string]*OperationStats),
		maxSamples: DefaultMaxSamples,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start returns a timer for operation name capturing the current instant.
func (t *Tracker) Start(name string) *Timer {
	return &Timer{tracker: t, name: name, start: time.Now()}
}

// Record adds a completed sample.
func (t *Tracker) Record(sample Sample) {
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.stats[sample.Operation]
	if !ok {
		st = &OperationStats{Operation: sample.Operation}
		t.stats[sample.Operation] = st
	}
	st.add(sample)

	if t.maxSamples == 0 {
		return
	}
	t.samples = append(t.samples, sample)
	if excess := len(t.samples) - t.maxSamples; excess > 0 {
		t.samples = append(t.samples[:0], t.samples[excess:]...)
	}
}

// Stats returns the aggregate for one operation name.
func (t *Tracker) Stats(name string) (OperationStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.stats[name]
	if !ok {
		return OperationStats{}, false
	}
	return *st, true
}

// All returns a snapshot of every operation aggregate.
func (t *Tracker) All() map[string]OperationStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]OperationStats, len(t.stats))
	for name, st := range t.stats {
		out[name] = *st
	}
	return out
}

// Operations returns the recorded operation names, sorted.
func (t *Tracker) Operations() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.stats))
	for name := range t.stats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Samples returns a copy of the retained raw samples, oldest first.
func (t *Tracker) Samples() []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Sample, len(t.samples))
	copy(out, t.samples)
	return out
}

// Summary aggregates totals across all operation names.
func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	var s Summary
	for _, st := range t.stats {
		s.TotalOperations += st.Count
		s.TotalSuccessful += st.Successes
		s.TotalDuration += st.Total
	}
	s.TotalFailed = s.TotalOperations - s.TotalSuccessful
	s.OperationCount = len(t.stats)

	if s.TotalOperations > 0 {
		s.SuccessRate = float64(s.TotalSuccessful) / float64(s.TotalOperations)
		s.AverageDuration = s.TotalDuration / time.Duration(s.TotalOperations)
	}
	return s
}

// Reset clears all aggregates and samples.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats = make(map[string]*OperationStats)
	t.samples = nil
}

// Timer measures one operation. Only the first Success or Fail call records.
type Timer struct {
	tracker *Tracker
	name    string
	start   time.Time
	once    sync.Once
}

// Name returns the operation name.
func (t *Timer) Name() string { return t.name }

// Elapsed returns the time since the timer started.
func (t *Timer) Elapsed() time.Duration { return time.Since(t.start) }

// Success records a successful sample and returns its duration.
func (t *Timer) Success() time.Duration {
	return t.finish(true, "")
}

// Fail records a failed sample with message and returns its duration.
func (t *Timer) Fail(message string) time.Duration {
	return t.finish(false, message)
}

func (t *Timer) finish(ok bool, message string) time.Duration {
	d := time.Since(t.start)
	t.once.Do(func() {
		t.tracker.Record(Sample{
			Operation: t.name,
			Duration:  d,
			Timestamp: time.Now(),
			Success:   ok,
			Error:     message,
		})
	})
	return d
}
