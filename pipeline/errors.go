package pipeline

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors' Is methods.
var (
	ErrValidation    = errors.New("pipeline: validation failed")
	ErrExecution     = errors.New("pipeline: execution failed")
	ErrChain         = errors.New("pipeline: middleware failed")
	ErrInvalidConfig = errors.New("pipeline: invalid config")
	ErrNilRequest    = errors.New("pipeline: nil request")
	ErrNilHandler    = errors.New("pipeline: nil handler")
)

// ValidationError reports a malformed tool name or arguments.
type ValidationError struct {
	Tool    string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Message
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ExecutionError wraps a failure returned by tool logic.
type ExecutionError struct {
	Tool    string
	Message string
	Err     error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("tool %s: %s", e.Tool, e.Message)
	}
	return fmt.Sprintf("tool %s: %s: %v", e.Tool, e.Message, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is matches ErrExecution.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

// ChainError reports a middleware hook that misbehaved, by panicking or by
// returning a malformed Outcome.
type ChainError struct {
	Tool       string
	Middleware string
	Hook       string
	Message    string
	Err        error
}

func (e *ChainError) Error() string {
	msg := fmt.Sprintf("middleware %s %s: %s", e.Middleware, e.Hook, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

// Is matches ErrChain.
func (e *ChainError) Is(target error) bool {
	return target == ErrChain
}
