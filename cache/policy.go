package cache

import (
	"encoding/json"
	"strings"
)

// Sizer measures the serialized size of a result in bytes.
type Sizer func(v any) (int, error)

// JSONSizer sizes a result by its JSON encoding.
func JSONSizer(v any) (int, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// SkipRule reports whether results of a tool must never be cached.
type SkipRule func(tool string, tags []string) bool

// UnsafeTags mark tools with side effects.
var UnsafeTags = []string{"write", "danger", "unsafe", "mutation", "delete"}

// DefaultSkipRule skips tools carrying any of UnsafeTags (case-insensitive).
func DefaultSkipRule(_ string, tags []string) bool {
	for _, tag := range tags {
		for _, unsafe := range UnsafeTags {
			if strings.EqualFold(tag, unsafe) {
				return true
			}
		}
	}
	return false
}
