package pipeline

import (
	"context"
	"maps"
	"time"
)

// Metadata keys set by the built-in middleware.
const (
	MetaValidated          = "validated"
	MetaValidationError    = "validation_error"
	MetaDurationMS         = "duration_ms"
	MetaIsSlow             = "is_slow"
	MetaAuthRequired       = "auth_required"
	MetaAuthType           = "auth_type"
	MetaAuthKeyID          = "auth_key_id"
	MetaAuthUserID         = "auth_user_id"
	MetaAuthPermissions    = "auth_permissions"
	MetaRateLimited        = "rate_limited"
	MetaRateLimitClientID  = "rate_limit_client_id"
	MetaRateLimitRemaining = "rate_limit_remaining"
)

// InvocationContext carries per-invocation state across hooks. It belongs to
// a single Execute call and is not safe for concurrent use.
type InvocationContext struct {
	// ID uniquely identifies the invocation.
	ID string

	// StartTime is when the invocation began.
	StartTime time.Time

	ctx       context.Context
	metadata  map[string]any
	finishers []func(res *Result, err error)
}

// NewInvocationContext creates a context with StartTime now and no metadata.
func NewInvocationContext(ctx context.Context, id string) *InvocationContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &InvocationContext{
		ID:        id,
		StartTime: time.Now(),
		ctx:       ctx,
		metadata:  make(map[string]any),
	}
}

// Context returns the context passed to later hooks and the handler.
func (ic *InvocationContext) Context() context.Context {
	return ic.ctx
}

// SetContext replaces the context seen by later hooks and the handler.
func (ic *InvocationContext) SetContext(ctx context.Context) {
	if ctx != nil {
		ic.ctx = ctx
	}
}

// OnFinish registers fn to run once the invocation completes, with the final
// result and error the caller receives. Finishers run in reverse registration
// order, whether the invocation succeeded, failed or was stopped early.
func (ic *InvocationContext) OnFinish(fn func(res *Result, err error)) {
	if fn != nil {
		ic.finishers = append(ic.finishers, fn)
	}
}

// Elapsed returns the time since StartTime.
func (ic *InvocationContext) Elapsed() time.Duration {
	return time.Since(ic.StartTime)
}

// SetMetadata stores a value under key, replacing any previous value.
func (ic *InvocationContext) SetMetadata(key string, value any) {
	ic.metadata[key] = value
}

// Metadata returns the value stored under key.
func (ic *InvocationContext) Metadata(key string) (any, bool) {
	v, ok := ic.metadata[key]
	return v, ok
}

// MetadataString returns the value under key if it is a non-empty string.
func (ic *InvocationContext) MetadataString(key string) (string, bool) {
	s, ok := ic.metadata[key].(string)
	return s, ok && s != ""
}

// MetadataSnapshot returns a copy of all metadata.
func (ic *InvocationContext) MetadataSnapshot() map[string]any {
	return maps.Clone(ic.metadata)
}
