package pipeline

import (
	"context"
	"errors"
	"testing"
)

func TestValidationMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		req     *Request
		wantErr string
	}{
		{"valid name", false, NewRequest("get_inbox", nil), ""},
		{"digits allowed", false, NewRequest("search2", map[string]any{"q": "a"}), ""},
		{"empty name", false, NewRequest("", nil), "tool name cannot be empty"},
		{"hyphen rejected", false, NewRequest("get-inbox", nil), "tool name must contain only alphanumeric characters and underscores"},
		{"space rejected", false, NewRequest("get inbox", nil), "tool name must contain only alphanumeric characters and underscores"},
		{"non ascii rejected", false, NewRequest("tâche", nil), "tool name must contain only alphanumeric characters and underscores"},
		{"lenient array args", false, &Request{Name: "search", Arguments: []any{1}}, ""},
		{"strict array args", true, &Request{Name: "search", Arguments: []any{1}}, "arguments must be a JSON object"},
		{"strict string args", true, &Request{Name: "search", Arguments: "q"}, "arguments must be a JSON object"},
		{"strict absent args", true, NewRequest("search", nil), ""},
		{"strict object args", true, NewRequest("search", map[string]any{"q": "a"}), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewValidationMiddleware(tt.strict)
			ic := NewInvocationContext(context.Background(), "inv")

			out := m.Before(context.Background(), tt.req, ic)

			if tt.wantErr == "" {
				if out.Action != ActionContinue {
					t.Fatalf("Before() = %v (%v), want continue", out.Action, out.Err)
				}
				if v, _ := ic.Metadata(MetaValidated); v != true {
					t.Errorf("validated metadata = %v, want true", v)
				}
				return
			}

			if out.Action != ActionFail {
				t.Fatalf("Before() = %v, want fail", out.Action)
			}
			var ve *ValidationError
			if !errors.As(out.Err, &ve) {
				t.Fatalf("error = %T, want *ValidationError", out.Err)
			}
			if ve.Message != tt.wantErr {
				t.Errorf("Message = %q, want %q", ve.Message, tt.wantErr)
			}
			if !errors.Is(out.Err, ErrValidation) {
				t.Error("expected errors.Is(err, ErrValidation)")
			}
			if v, _ := ic.MetadataString(MetaValidationError); v != tt.wantErr {
				t.Errorf("validation_error metadata = %q", v)
			}
		})
	}
}

func TestValidationMiddleware_StopsBeforeHandler(t *testing.T) {
	called := false
	chain := New().Add(NewValidationMiddleware(false))

	_, err := chain.Execute(context.Background(), NewRequest("bad-name", nil), func(context.Context, *Request) (*Result, error) {
		called = true
		return TextResult("ok"), nil
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want validation error", err)
	}
	if called {
		t.Error("handler must not run for invalid requests")
	}
}

func TestValidationMiddleware_Identity(t *testing.T) {
	m := NewValidationMiddleware(true)
	if m.Name() != "validation" || m.Priority() != 50 || !m.Strict() {
		t.Errorf("unexpected identity %s/%d/%v", m.Name(), m.Priority(), m.Strict())
	}
}
