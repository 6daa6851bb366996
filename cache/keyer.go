package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Keyer derives cache keys from a tool name and its parameters.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(tool string, params map[string]any) (string, error)
}

// KeyerFunc adapts a function to Keyer.
type KeyerFunc func(tool string, params map[string]any) (string, error)

// Key calls f.
func (f KeyerFunc) Key(tool string, params map[string]any) (string, error) {
	return f(tool, params)
}

// DefaultKeyer generates SHA-256 based keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key returns cache:<tool>:<hash>, where hash is the first 16 hex characters
// of SHA-256(tool || 0x00 || canonical JSON(params)).
func (k *DefaultKeyer) Key(tool string, params map[string]any) (string, error) {
	if tool == "" {
		return "", ErrInvalidKey
	}

	var canonical []byte
	var err error
	if params == nil {
		canonical = []byte("{}")
	} else if canonical, err = canonicalize(params); err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize parameters: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(tool))
	h.Write([]byte{0})
	h.Write(canonical)
	sum := h.Sum(nil)

	return "cache:" + tool + ":" + hex.EncodeToString(sum[:8]), nil
}

// canonicalize produces a deterministic JSON representation of v.
// Nested maps are sorted by key.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')

		vb, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte{'['}
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		vb, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, ']'), nil
}

var _ Keyer = (*DefaultKeyer)(nil)
