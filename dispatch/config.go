package dispatch

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/toolpipe/cache"
)

// DefaultConfig returns a 30s timeout, the default cache bounds and a batch
// concurrency of 4.
func DefaultConfig() Config {
	return Config{
		Timeout:          30 * time.Second,
		Cache:            cache.DefaultConfig(),
		BatchConcurrency: DefaultBatchConcurrency,
	}
}

// ParseConfig decodes YAML over DefaultConfig and validates the cache bounds.
// Durations use Go syntax, for example "30s" or "1h".
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("dispatch: decode config: %w", err)
	}
	if cfg.Timeout <= 0 {
		return Config{}, fmt.Errorf("dispatch: timeout must be positive, got %s", cfg.Timeout)
	}
	if err := cfg.Cache.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
