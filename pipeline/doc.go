// Package pipeline runs tool invocations through an ordered middleware chain.
//
// A Chain holds Middleware sorted ascending by Priority (stable for ties).
// Execute runs every Before hook, calls the handler at most once, then runs
// every After hook on success or every OnError hook on failure. Each hook
// returns an Outcome: Continue, Stop with a replacement result, or Fail with
// an error. Before and After hooks run in the same ascending order.
//
// Built-in middleware:
//
//	priority  name            hooks
//	10        authentication  Before
//	20        rate_limiting   Before
//	50        validation      Before
//	100       logging         Before, After, OnError
//	150       telemetry       Before, After, OnError
//	200       performance     After, OnError
//
// A handler may be wrapped with CacheStage to memoize results in a
// cache.ResultCache. Config decodes the YAML middleware configuration and
// builds a Chain from it.
package pipeline
