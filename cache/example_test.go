package cache_test

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/toolpipe/cache"
)

func ExampleNew() {
	c := cache.New[string](cache.DefaultConfig())
	ctx := context.Background()

	search := func(_ context.Context, params map[string]any) (string, error) {
		fmt.Println("executing search")
		return fmt.Sprintf("results for %v", params["q"]), nil
	}

	r1, _ := c.Execute(ctx, "search", map[string]any{"q": "golang"}, search)
	r2, _ := c.Execute(ctx, "search", map[string]any{"q": "golang"}, search)
	fmt.Println(r1)
	fmt.Println(r2)
	// Output:
	// executing search
	// results for golang
	// results for golang
}

func ExampleResultCache_Stats() {
	c := cache.New[int](cache.Config{MaxEntries: 2, TTL: time.Hour, TTI: time.Hour, MaxResultSize: 64})
	ctx := context.Background()

	square := func(_ context.Context, params map[string]any) (int, error) {
		n := params["n"].(int)
		return n * n, nil
	}

	for _, n := range []int{1, 2, 1, 3} {
		_, _ = c.Execute(ctx, "square", map[string]any{"n": n}, square)
	}

	st := c.Stats()
	fmt.Println("entries:", st.TotalEntries)
	fmt.Println("hits:", st.Hits, "misses:", st.Misses)
	fmt.Println("evictions:", st.Evictions)
	fmt.Printf("hit rate: %.2f\n", st.HitRate)
	// Output:
	// entries: 2
	// hits: 1 misses: 3
	// evictions: 1
	// hit rate: 0.25
}

func ExampleResultCache_Invalidate() {
	c := cache.New[string](cache.DefaultConfig())
	ctx := context.Background()
	echo := func(_ context.Context, params map[string]any) (string, error) {
		return fmt.Sprint(params["v"]), nil
	}

	_, _ = c.Execute(ctx, "read_file", map[string]any{"v": "a"}, echo)
	_, _ = c.Execute(ctx, "read_file", map[string]any{"v": "b"}, echo)
	_, _ = c.Execute(ctx, "list_dir", map[string]any{"v": "a"}, echo)

	fmt.Println("removed:", c.Invalidate("read_file"))
	fmt.Println("remaining:", c.Len())
	// Output:
	// removed: 2
	// remaining: 1
}

func ExampleDefaultKeyer_Key() {
	k := cache.NewDefaultKeyer()
	a, _ := k.Key("search", map[string]any{"a": 1, "b": 2})
	b, _ := k.Key("search", map[string]any{"b": 2, "a": 1})
	fmt.Println(a == b)
	// Output:
	// true
}
