// Package dispatch resolves tool calls to registered handlers and runs them
// through a pipeline.Chain.
//
// Each Dispatch call is bounded by a resilience.Timeout. Tools marked
// Cacheable are wrapped with pipeline.CacheStage against the dispatcher's
// ResultCache, and a successful call to a tool that lists Invalidates drops
// the cached results of those tools. DispatchBatch runs independent calls
// in parallel with a concurrency limit.
package dispatch
