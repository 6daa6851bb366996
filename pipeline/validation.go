package pipeline

import "context"

// ValidationPriority is the fixed priority of ValidationMiddleware.
const ValidationPriority = 50

// ValidationMiddleware rejects malformed requests before the handler runs.
// Tool names must be non-empty and use only [A-Za-z0-9_]. In strict mode,
// arguments that are present must be a JSON object.
type ValidationMiddleware struct {
	Base
	strict bool
}

// NewValidationMiddleware creates a validation middleware.
func NewValidationMiddleware(strict bool) *ValidationMiddleware {
	return &ValidationMiddleware{strict: strict}
}

func (m *ValidationMiddleware) Name() string  { return "validation" }
func (m *ValidationMiddleware) Priority() int { return ValidationPriority }

// Strict reports whether non-object arguments are rejected.
func (m *ValidationMiddleware) Strict() bool { return m.strict }

func (m *ValidationMiddleware) Before(_ context.Context, req *Request, ic *InvocationContext) Outcome {
	if err := m.validate(req); err != nil {
		ic.SetMetadata(MetaValidationError, err.Message)
		return Fail(err)
	}
	ic.SetMetadata(MetaValidated, true)
	return Continue()
}

func (m *ValidationMiddleware) validate(req *Request) *ValidationError {
	if req.Name == "" {
		return &ValidationError{Tool: req.Name, Message: "tool name cannot be empty"}
	}
	if !ValidToolName(req.Name) {
		return &ValidationError{
			Tool:    req.Name,
			Message: "tool name must contain only alphanumeric characters and underscores",
		}
	}
	if m.strict {
		if _, ok := req.ArgumentsMap(); !ok {
			return &ValidationError{Tool: req.Name, Message: "arguments must be a JSON object"}
		}
	}
	return nil
}

// ValidToolName reports whether name is non-empty and uses only ASCII
// letters, digits and underscores.
func ValidToolName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return false
		}
	}
	return true
}
