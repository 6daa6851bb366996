package cache

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for cache configuration and keys.
var (
	ErrInvalidConfig = errors.New("cache: invalid config")
	ErrInvalidKey    = errors.New("cache: key is invalid")
)

// Config bounds a ResultCache.
type Config struct {
	// MaxEntries is the maximum number of stored results.
	MaxEntries int `yaml:"max_entries"`

	// TTL is the fixed lifetime of an entry measured from insertion.
	TTL time.Duration `yaml:"ttl"`

	// TTI is the idle lifetime measured from the most recent access.
	TTI time.Duration `yaml:"tti"`

	// MaxResultSize is the largest serialized result, in bytes, that is stored.
	MaxResultSize int `yaml:"max_result_size"`
}

// DefaultConfig returns 1000 entries, 1h TTL, 5m TTI, 10MiB results.
func DefaultConfig() Config {
	return Config{
		MaxEntries:    1000,
		TTL:           time.Hour,
		TTI:           5 * time.Minute,
		MaxResultSize: 10 * 1024 * 1024,
	}
}

// Validate rejects non-positive bounds.
func (c Config) Validate() error {
	switch {
	case c.MaxEntries <= 0:
		return fmt.Errorf("%w: max_entries must be positive, got %d", ErrInvalidConfig, c.MaxEntries)
	case c.TTL <= 0:
		return fmt.Errorf("%w: ttl must be positive, got %s", ErrInvalidConfig, c.TTL)
	case c.TTI <= 0:
		return fmt.Errorf("%w: tti must be positive, got %s", ErrInvalidConfig, c.TTI)
	case c.MaxResultSize <= 0:
		return fmt.Errorf("%w: max_result_size must be positive, got %d", ErrInvalidConfig, c.MaxResultSize)
	}
	return nil
}

// withDefaults fills zero or negative fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxEntries <= 0 {
		c.MaxEntries = d.MaxEntries
	}
	if c.TTL <= 0 {
		c.TTL = d.TTL
	}
	if c.TTI <= 0 {
		c.TTI = d.TTI
	}
	if c.MaxResultSize <= 0 {
		c.MaxResultSize = d.MaxResultSize
	}
	return c
}

// Entry is one cached tool result.
type Entry[T any] struct {
	ToolName     string
	Parameters   map[string]any
	Result       T
	CachedAt     time.Time
	ExpiresAt    time.Time
	AccessCount  uint64
	LastAccessed time.Time
	Key          string
	SizeBytes    int
}

// Valid reports whether the entry is neither past its TTL nor idle past tti.
func (e *Entry[T]) Valid(now time.Time, tti time.Duration) bool {
	return !now.After(e.ExpiresAt) && now.Sub(e.LastAccessed) <= tti
}

// Stats is a point-in-time view of cache counters.
type Stats struct {
	TotalEntries   int
	Hits           uint64
	Misses         uint64
	HitRate        float64
	TotalSizeBytes int64
	Evictions      uint64
	Bypassed       uint64
}

// hitRate returns hits/(hits+misses), or 0 when nothing was looked up.
func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
