package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Request is one tool call: a tool name plus optional arguments.
// Arguments is nil when absent and map[string]any for a JSON object.
type Request struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments,omitempty"`
}

// NewRequest creates a request with object arguments.
func NewRequest(name string, args map[string]any) *Request {
	if args == nil {
		return &Request{Name: name}
	}
	return &Request{Name: name, Arguments: args}
}

// DecodeRequest decodes a JSON tool call.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("pipeline: decode request: %w", err)
	}
	return &req, nil
}

// ArgumentsMap returns the arguments as an object. It reports false when
// arguments are present but not an object. Absent arguments yield (nil, true).
func (r *Request) ArgumentsMap() (map[string]any, bool) {
	switch v := r.Arguments.(type) {
	case nil:
		return nil, true
	case map[string]any:
		return v, true
	default:
		return nil, false
	}
}

// StringArgument returns a string argument, or "" if missing or not a string.
func (r *Request) StringArgument(key string) string {
	args, _ := r.ArgumentsMap()
	s, _ := args[key].(string)
	return s
}

// Content is one segment of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the outcome of a tool call. IsError flags a tool-level failure
// that is still delivered as a result.
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"is_error"`
}

// TextResult creates a single-segment result.
func TextResult(text string) *Result {
	return &Result{Content: []Content{{Type: "text", Text: text}}}
}

// ErrorResult creates a single-segment result flagged as an error.
func ErrorResult(text string) *Result {
	r := TextResult(text)
	r.IsError = true
	return r
}

// Text joins all text segments with newlines.
func (r *Result) Text() string {
	if r == nil {
		return ""
	}
	parts := make([]string, len(r.Content))
	for i, c := range r.Content {
		parts[i] = c.Text
	}
	return strings.Join(parts, "\n")
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := &Result{IsError: r.IsError}
	if r.Content != nil {
		out.Content = append([]Content(nil), r.Content...)
	}
	return out
}

// Handler performs the tool logic for a request.
type Handler func(ctx context.Context, req *Request) (*Result, error)
