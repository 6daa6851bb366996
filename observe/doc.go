// Package observe provides observability primitives for tool invocations.
//
// It is a pure instrumentation library: a JSON structured logger, OpenTelemetry
// metrics for invocations and result-cache events, and span management.
// Consumers wire it into the pipeline middleware and the result cache.
package observe
