package pipeline

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"
)

// callLog records hook invocations across middleware.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	l.calls = append(l.calls, s)
	l.mu.Unlock()
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

// recording logs every hook of a middleware and continues.
func recording(name string, priority int, log *callLog) Middleware {
	return NewFunc(name, priority, Hooks{
		Before: func(context.Context, *Request, *InvocationContext) Outcome {
			log.add("before:" + name)
			return Continue()
		},
		After: func(context.Context, *Request, *Result, *InvocationContext) Outcome {
			log.add("after:" + name)
			return Continue()
		},
		OnError: func(context.Context, *Request, error, *InvocationContext) Outcome {
			log.add("on_error:" + name)
			return Continue()
		},
	})
}

func okHandler(log *callLog) Handler {
	return func(context.Context, *Request) (*Result, error) {
		if log != nil {
			log.add("handler")
		}
		return TextResult("ok"), nil
	}
}

func failHandler(log *callLog, err error) Handler {
	return func(context.Context, *Request) (*Result, error) {
		log.add("handler")
		return nil, err
	}
}

func TestChain_BeforeHooksRunInPriorityOrder(t *testing.T) {
	tests := []struct {
		name       string
		priorities map[string]int
		add        []string
		want       []string
	}{
		{
			name:       "typical priorities",
			priorities: map[string]int{"p50": 50, "p100": 100, "p200": 200},
			add:        []string{"p200", "p50", "p100"},
			want:       []string{"before:p50", "before:p100", "before:p200"},
		},
		{
			name:       "extreme priorities",
			priorities: map[string]int{"one": 1, "min": math.MinInt, "max": math.MaxInt, "neg": -1},
			add:        []string{"one", "max", "min", "neg"},
			want:       []string{"before:min", "before:neg", "before:one", "before:max"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &callLog{}
			chain := New()
			for _, name := range tt.add {
				chain.Add(recording(name, tt.priorities[name], log))
			}

			if _, err := chain.Execute(context.Background(), NewRequest("search", nil), okHandler(log)); err != nil {
				t.Fatalf("Execute() error = %v", err)
			}

			got := log.list()[:len(tt.want)]
			if !slices.Equal(got, tt.want) {
				t.Errorf("before order = %v, want %v", got, tt.want)
			}
		})
	}
}

// After hooks deliberately run in the same ascending order as before hooks,
// not reversed as in most onion-style middleware stacks.
func TestChain_AfterHooksRunInSameOrderAsBefore(t *testing.T) {
	log := &callLog{}
	chain := New().Add(
		recording("p200", 200, log),
		recording("p50", 50, log),
		recording("p100", 100, log),
	)

	if _, err := chain.Execute(context.Background(), NewRequest("search", nil), okHandler(log)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := []string{
		"before:p50", "before:p100", "before:p200",
		"handler",
		"after:p50", "after:p100", "after:p200",
	}
	if got := log.list(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestChain_EqualPrioritiesKeepInsertionOrder(t *testing.T) {
	log := &callLog{}
	chain := New()
	chain.Add(recording("first", 10, log))
	chain.Add(recording("second", 10, log), recording("zero", 0, log))
	chain.Add(recording("third", 10, log))

	want := []string{"zero", "first", "second", "third"}
	if got := chain.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if chain.Len() != 4 {
		t.Errorf("Len() = %d, want 4", chain.Len())
	}
}

func TestChain_BeforeStopShortCircuits(t *testing.T) {
	log := &callLog{}
	stopper := NewFunc("stopper", 50, Hooks{
		Before: func(context.Context, *Request, *InvocationContext) Outcome {
			log.add("before:stopper")
			return Stop(TextResult("stopped"))
		},
		After: func(context.Context, *Request, *Result, *InvocationContext) Outcome {
			log.add("after:stopper")
			return Continue()
		},
	})
	chain := New().Add(recording("early", 10, log), stopper, recording("late", 100, log))

	res, err := chain.Execute(context.Background(), NewRequest("search", nil), okHandler(log))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Text() != "stopped" {
		t.Errorf("result = %q, want stopped", res.Text())
	}

	want := []string{"before:early", "before:stopper"}
	if got := log.list(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestChain_BeforeFailShortCircuits(t *testing.T) {
	log := &callLog{}
	boom := errors.New("rejected")
	failer := NewFunc("failer", 50, Hooks{
		Before: func(context.Context, *Request, *InvocationContext) Outcome {
			return Fail(boom)
		},
	})
	chain := New().Add(failer, recording("late", 100, log))

	res, err := chain.Execute(context.Background(), NewRequest("search", nil), okHandler(log))
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if got := log.list(); len(got) != 0 {
		t.Errorf("expected no further hooks or handler, got %v", got)
	}
}

func TestChain_HandlerRunsOnce(t *testing.T) {
	log := &callLog{}
	chain := New().Add(recording("a", 1, log), recording("b", 2, log))

	if _, err := chain.Execute(context.Background(), NewRequest("search", nil), okHandler(log)); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	n := 0
	for _, c := range log.list() {
		if c == "handler" {
			n++
		}
	}
	if n != 1 {
		t.Errorf("handler ran %d times, want 1", n)
	}
}

func TestChain_AfterStopReplacesResultAndEndsLoop(t *testing.T) {
	log := &callLog{}
	replacer := NewFunc("replacer", 50, Hooks{
		After: func(context.Context, *Request, *Result, *InvocationContext) Outcome {
			log.add("after:replacer")
			return Stop(TextResult("replaced"))
		},
	})
	chain := New().Add(recording("early", 10, log), replacer, recording("late", 100, log))

	res, err := chain.Execute(context.Background(), NewRequest("search", nil), okHandler(nil))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Text() != "replaced" {
		t.Errorf("result = %q, want replaced", res.Text())
	}
	want := []string{"before:early", "before:late", "after:early", "after:replacer"}
	if got := log.list(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestChain_AfterFailPropagates(t *testing.T) {
	boom := errors.New("after failed")
	chain := New().Add(NewFunc("failer", 1, Hooks{
		After: func(context.Context, *Request, *Result, *InvocationContext) Outcome {
			return Fail(boom)
		},
	}))

	_, err := chain.Execute(context.Background(), NewRequest("search", nil), okHandler(nil))
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}

func TestChain_AfterMayMutateResult(t *testing.T) {
	chain := New().Add(NewFunc("tagger", 1, Hooks{
		After: func(_ context.Context, _ *Request, res *Result, _ *InvocationContext) Outcome {
			res.Content = append(res.Content, Content{Type: "text", Text: "tagged"})
			return Continue()
		},
	}))

	res, err := chain.Execute(context.Background(), NewRequest("search", nil), okHandler(nil))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Text() != "ok\ntagged" {
		t.Errorf("result = %q, want ok\\ntagged", res.Text())
	}
}

func TestChain_HandlerErrorPropagatesUnchanged(t *testing.T) {
	log := &callLog{}
	boom := errors.New("db down")
	chain := New().Add(recording("a", 10, log), recording("b", 20, log))

	res, err := chain.Execute(context.Background(), NewRequest("search", nil), failHandler(log, boom))
	if err != boom {
		t.Fatalf("error = %v, want the handler error itself", err)
	}
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}

	want := []string{"before:a", "before:b", "handler", "on_error:a", "on_error:b"}
	if got := log.list(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestChain_OnErrorStopRecovers(t *testing.T) {
	log := &callLog{}
	fallback := NewFunc("fallback", 15, Hooks{
		OnError: func(context.Context, *Request, error, *InvocationContext) Outcome {
			log.add("on_error:fallback")
			return Stop(TextResult("cached copy"))
		},
	})
	chain := New().Add(recording("a", 10, log), fallback, recording("b", 20, log))

	res, err := chain.Execute(context.Background(), NewRequest("search", nil), failHandler(log, errors.New("db down")))
	if err != nil {
		t.Fatalf("Execute() error = %v, want recovered result", err)
	}
	if res.Text() != "cached copy" {
		t.Errorf("result = %q, want cached copy", res.Text())
	}
	want := []string{"before:a", "before:b", "handler", "on_error:a", "on_error:fallback"}
	if got := log.list(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}

func TestChain_OnErrorFailReplacesError(t *testing.T) {
	log := &callLog{}
	replaced := errors.New("replaced")
	chain := New().Add(
		NewFunc("replacer", 1, Hooks{
			OnError: func(context.Context, *Request, error, *InvocationContext) Outcome {
				return Fail(replaced)
			},
		}),
		recording("late", 2, log),
	)

	_, err := chain.Execute(context.Background(), NewRequest("search", nil), failHandler(log, errors.New("db down")))
	if err != replaced {
		t.Fatalf("error = %v, want %v", err, replaced)
	}
	for _, c := range log.list() {
		if c == "on_error:late" {
			t.Error("on_error hooks after a Fail must not run")
		}
	}
}

func TestChain_HookPanicBecomesChainError(t *testing.T) {
	chain := New().Add(NewFunc("panicky", 1, Hooks{
		Before: func(context.Context, *Request, *InvocationContext) Outcome {
			panic("boom")
		},
	}))

	_, err := chain.Execute(context.Background(), NewRequest("search", nil), okHandler(nil))
	var ce *ChainError
	if !errors.As(err, &ce) {
		t.Fatalf("error = %v, want *ChainError", err)
	}
	if ce.Middleware != "panicky" || ce.Hook != hookBefore || ce.Tool != "search" {
		t.Errorf("unexpected ChainError %+v", ce)
	}
	if !errors.Is(err, ErrChain) {
		t.Error("expected errors.Is(err, ErrChain)")
	}
}

func TestChain_MalformedOutcomes(t *testing.T) {
	tests := []struct {
		name string
		out  Outcome
	}{
		{"stop without result", Stop(nil)},
		{"fail without error", Fail(nil)},
		{"unknown action", Outcome{Action: Action(42)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := New().Add(NewFunc("bad", 1, Hooks{
				After: func(context.Context, *Request, *Result, *InvocationContext) Outcome {
					return tt.out
				},
			}))

			_, err := chain.Execute(context.Background(), NewRequest("search", nil), okHandler(nil))
			var ce *ChainError
			if !errors.As(err, &ce) {
				t.Fatalf("error = %v, want *ChainError", err)
			}
			if ce.Hook != hookAfter {
				t.Errorf("Hook = %q, want %q", ce.Hook, hookAfter)
			}
		})
	}
}

func TestChain_HandlerPanicRunsOnError(t *testing.T) {
	log := &callLog{}
	chain := New().Add(recording("a", 1, log))

	_, err := chain.Execute(context.Background(), NewRequest("search", nil), func(context.Context, *Request) (*Result, error) {
		panic("handler blew up")
	})
	var ee *ExecutionError
	if !errors.As(err, &ee) {
		t.Fatalf("error = %v, want *ExecutionError", err)
	}
	if got := log.list(); !slices.Equal(got, []string{"before:a", "on_error:a"}) {
		t.Errorf("calls = %v", got)
	}
}

func TestChain_NilHandlerResultIsEmpty(t *testing.T) {
	chain := New()
	res, err := chain.Execute(context.Background(), NewRequest("search", nil), func(context.Context, *Request) (*Result, error) {
		return nil, nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res == nil || res.IsError || len(res.Content) != 0 {
		t.Errorf("result = %+v, want empty success", res)
	}
}

func TestChain_NilArguments(t *testing.T) {
	chain := New()
	if _, err := chain.Execute(context.Background(), nil, okHandler(nil)); !errors.Is(err, ErrNilRequest) {
		t.Errorf("nil request error = %v", err)
	}
	if _, err := chain.Execute(context.Background(), NewRequest("x", nil), nil); !errors.Is(err, ErrNilHandler) {
		t.Errorf("nil handler error = %v", err)
	}
}

func TestChain_RunExposesMetadataAndID(t *testing.T) {
	chain := New(WithIDGenerator(func() string { return "inv-1" })).Add(NewFunc("tagger", 1, Hooks{
		Before: func(_ context.Context, _ *Request, ic *InvocationContext) Outcome {
			ic.SetMetadata("seen", true)
			return Continue()
		},
	}))

	_, ic, err := chain.Run(context.Background(), NewRequest("search", nil), okHandler(nil))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ic.ID != "inv-1" {
		t.Errorf("ID = %q, want inv-1", ic.ID)
	}
	if v, ok := ic.Metadata("seen"); !ok || v != true {
		t.Errorf("metadata seen = %v, %v", v, ok)
	}
}

func TestChain_DefaultIDsAreUnique(t *testing.T) {
	chain := New()
	seen := make(map[string]bool)
	for range 50 {
		_, ic, err := chain.Run(context.Background(), NewRequest("search", nil), okHandler(nil))
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if ic.ID == "" || seen[ic.ID] {
			t.Fatalf("duplicate or empty invocation ID %q", ic.ID)
		}
		seen[ic.ID] = true
	}
}

type ctxKey struct{}

func TestChain_HookContextReachesHandler(t *testing.T) {
	chain := New().Add(NewFunc("ctx", 1, Hooks{
		Before: func(ctx context.Context, _ *Request, ic *InvocationContext) Outcome {
			ic.SetContext(context.WithValue(ctx, ctxKey{}, "value"))
			return Continue()
		},
	}))

	var got any
	_, err := chain.Execute(context.Background(), NewRequest("search", nil), func(ctx context.Context, _ *Request) (*Result, error) {
		got = ctx.Value(ctxKey{})
		return TextResult("ok"), nil
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got != "value" {
		t.Errorf("handler context value = %v, want value", got)
	}
}

// Control flow is identical across runs for the same inputs.
func TestChain_Deterministic(t *testing.T) {
	var first []string
	for i := range 20 {
		log := &callLog{}
		chain := New().Add(
			recording("c", 30, log),
			recording("a", 10, log),
			recording("b", 10, log),
		)
		if _, err := chain.Execute(context.Background(), NewRequest("search", nil), okHandler(log)); err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if i == 0 {
			first = log.list()
			continue
		}
		if got := log.list(); !slices.Equal(got, first) {
			t.Fatalf("run %d calls = %v, want %v", i, got, first)
		}
	}
}

func TestChain_ConcurrentExecute(t *testing.T) {
	chain := New().Add(
		NewValidationMiddleware(true),
		NewPerformanceMiddleware(0, nil, nil),
	)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := chain.Execute(context.Background(), NewRequest("search", map[string]any{"q": "x"}), okHandler(nil)); err != nil {
				errs <- err
			}
		}()
	}
	for range 4 {
		chain.Add(NewFunc("late", 300, Hooks{}))
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent Execute() error = %v", err)
	}
}

func TestChain_FinishersSeeFinalOutcome(t *testing.T) {
	log := &callLog{}
	var final *Result
	chain := New().
		Add(NewFunc("first", 10, Hooks{
			Before: func(_ context.Context, _ *Request, ic *InvocationContext) Outcome {
				ic.OnFinish(func(res *Result, err error) {
					log.add("finish:first")
					final = res
				})
				return Continue()
			},
		})).
		Add(NewFunc("second", 20, Hooks{
			Before: func(_ context.Context, _ *Request, ic *InvocationContext) Outcome {
				ic.OnFinish(func(*Result, error) { panic("finisher bug") })
				ic.OnFinish(func(*Result, error) { log.add("finish:second") })
				return Stop(TextResult("short-circuit"))
			},
		}))

	res, err := chain.Execute(context.Background(), NewRequest("search", nil), okHandler(log))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Text() != "short-circuit" || final != res {
		t.Errorf("finisher saw %+v, caller got %+v", final, res)
	}

	want := []string{"finish:second", "finish:first"}
	if got := log.list(); !slices.Equal(got, want) {
		t.Errorf("calls = %v, want %v", got, want)
	}
}
