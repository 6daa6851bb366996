// Package cache memoizes tool results.
//
// ResultCache is generic over the result type. Entries are keyed by tool name
// plus a canonical (key-sorted) rendering of the parameters, bounded by entry
// count and per-result serialized size, and expire on both a fixed TTL and an
// idle TTI. When full, the least recently accessed entry is evicted.
//
// The wrapped executor never runs under the cache lock. Concurrent misses on
// the same key are not de-duplicated: each caller runs the executor and the
// last insert wins.
package cache
