package observe

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every Config.Validate failure.
	ErrInvalidConfig = errors.New("observe: invalid config")

	// ErrInvalidLogLevel is returned by LookupLogLevel.
	ErrInvalidLogLevel = errors.New("observe: invalid log level")
)

// FieldError names the config key that failed validation.
type FieldError struct {
	Field  string
	Value  any
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("observe: %s %v: %s", e.Field, e.Value, e.Reason)
}

func (e *FieldError) Unwrap() error { return ErrInvalidConfig }

// redactedKeys are field keys whose values never reach log output. Tool
// arguments are redacted wholesale because they may carry api_key or
// jwt_token.
var redactedKeys = []string{
	"arguments",
	"password",
	"secret",
	"token",
	"api_key",
	"apiKey",
	"jwt_token",
	"credential",
}
