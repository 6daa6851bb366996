package pipeline

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/toolpipe/auth"
	"github.com/jonwraymond/toolpipe/observe"
	"github.com/jonwraymond/toolpipe/perf"
	"github.com/jonwraymond/toolpipe/resilience"
	"github.com/jonwraymond/toolpipe/secret"
)

// Config selects and tunes the built-in middleware.
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Validation  ValidationConfig  `yaml:"validation"`
	Performance PerformanceConfig `yaml:"performance"`
	Security    SecurityConfig    `yaml:"security"`
}

// LoggingConfig configures LoggingMiddleware.
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // debug|info|warn|error
}

// ValidationConfig configures ValidationMiddleware.
type ValidationConfig struct {
	Enabled    bool `yaml:"enabled"`
	StrictMode bool `yaml:"strict_mode"`
}

// PerformanceConfig configures PerformanceMiddleware.
type PerformanceConfig struct {
	Enabled                bool  `yaml:"enabled"`
	SlowRequestThresholdMS int64 `yaml:"slow_request_threshold_ms"`
}

// SecurityConfig configures authentication and rate limiting.
type SecurityConfig struct {
	Authentication AuthenticationConfig `yaml:"authentication"`
	RateLimiting   RateLimitingConfig   `yaml:"rate_limiting"`
}

// AuthenticationConfig configures AuthenticationMiddleware.
// JWTSecret and APIKeyConfig.Key accept ${VAR} and secretref values.
type AuthenticationConfig struct {
	Enabled     bool           `yaml:"enabled"`
	RequireAuth bool           `yaml:"require_auth"`
	JWTSecret   string         `yaml:"jwt_secret"`
	APIKeys     []APIKeyConfig `yaml:"api_keys"`
}

// APIKeyConfig registers one API key.
type APIKeyConfig struct {
	Key         string   `yaml:"key"`
	KeyID       string   `yaml:"key_id"`
	Permissions []string `yaml:"permissions"`
	ExpiresAt   string   `yaml:"expires_at"` // RFC 3339, empty = never
}

// RateLimitingConfig configures RateLimitMiddleware.
type RateLimitingConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	BurstLimit        int  `yaml:"burst_limit"`
}

// DefaultConfig enables every built-in middleware except telemetry, with
// lenient validation, info logging, a 1s slow threshold, authentication
// not required, and 60 requests per minute with a burst of 10.
func DefaultConfig() Config {
	return Config{
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
		Validation:  ValidationConfig{Enabled: true},
		Performance: PerformanceConfig{Enabled: true, SlowRequestThresholdMS: 1000},
		Security: SecurityConfig{
			Authentication: AuthenticationConfig{Enabled: true},
			RateLimiting: RateLimitingConfig{
				Enabled:           true,
				RequestsPerMinute: 60,
				BurstLimit:        10,
			},
		},
	}
}

// ParseConfig decodes YAML over DefaultConfig, resolves secret fields with
// secret.DefaultResolver, and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.ResolveSecrets(context.Background(), secret.DefaultResolver()); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ResolveSecrets expands the JWT secret and API key values in place. It does
// nothing when authentication is disabled.
func (c *Config) ResolveSecrets(ctx context.Context, r *secret.Resolver) error {
	a := &c.Security.Authentication
	if !a.Enabled {
		return nil
	}
	fields := []secret.Field{{Name: "jwt_secret", Value: &a.JWTSecret}}
	for i := range a.APIKeys {
		fields = append(fields, secret.Field{Name: fmt.Sprintf("api_keys[%d].key", i), Value: &a.APIKeys[i].Key})
	}
	if err := r.ResolveFields(ctx, fields...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks thresholds, limits and API key entries of enabled
// middleware. Unknown log levels are not an error; they fall back to info.
func (c Config) Validate() error {
	if c.Performance.Enabled && c.Performance.SlowRequestThresholdMS <= 0 {
		return fmt.Errorf("%w: slow_request_threshold_ms must be positive, got %d",
			ErrInvalidConfig, c.Performance.SlowRequestThresholdMS)
	}

	rl := c.Security.RateLimiting
	if rl.Enabled {
		if rl.RequestsPerMinute <= 0 {
			return fmt.Errorf("%w: requests_per_minute must be positive, got %d", ErrInvalidConfig, rl.RequestsPerMinute)
		}
		if rl.BurstLimit <= 0 {
			return fmt.Errorf("%w: burst_limit must be positive, got %d", ErrInvalidConfig, rl.BurstLimit)
		}
	}

	a := c.Security.Authentication
	if a.Enabled {
		for i, k := range a.APIKeys {
			if k.Key == "" || k.KeyID == "" {
				return fmt.Errorf("%w: api_keys[%d]: key and key_id are required", ErrInvalidConfig, i)
			}
			if _, err := k.expiry(); err != nil {
				return fmt.Errorf("%w: api_keys[%d].expires_at: %v", ErrInvalidConfig, i, err)
			}
		}
	}
	return nil
}

func (k APIKeyConfig) expiry() (time.Time, error) {
	if k.ExpiresAt == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, k.ExpiresAt)
}

// BuildOption supplies collaborators to Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	logger    observe.Logger
	tracker   *perf.Tracker
	telemetry *TelemetryMiddleware
	chainOpts []Option
}

// WithBuildLogger sets the logger for every built middleware and the chain.
func WithBuildLogger(l observe.Logger) BuildOption {
	return func(o *buildOptions) { o.logger = l }
}

// WithPerfTracker records invocations in t through PerformanceMiddleware.
func WithPerfTracker(t *perf.Tracker) BuildOption {
	return func(o *buildOptions) { o.tracker = t }
}

// WithTelemetry adds a TelemetryMiddleware using tracer and metrics.
func WithTelemetry(tracer observe.Tracer, metrics observe.Metrics) BuildOption {
	return func(o *buildOptions) { o.telemetry = NewTelemetryMiddleware(tracer, metrics) }
}

// WithChainOptions passes options through to New.
func WithChainOptions(opts ...Option) BuildOption {
	return func(o *buildOptions) { o.chainOpts = append(o.chainOpts, opts...) }
}

// Build validates c and returns a Chain with the enabled middleware.
func (c Config) Build(opts ...BuildOption) (*Chain, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	o := buildOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := observe.OrNop(o.logger)

	chain := New(append([]Option{WithLogger(logger)}, o.chainOpts...)...)

	if a := c.Security.Authentication; a.Enabled {
		if a.RequireAuth {
			store, err := a.keyStore()
			if err != nil {
				return nil, err
			}
			authn := NewCredentialAuthenticator(store, []byte(a.JWTSecret))
			chain.Add(NewAuthenticationMiddleware(authn, logger))
		} else {
			chain.Add(NewPermissiveAuthentication())
		}
	}

	if rl := c.Security.RateLimiting; rl.Enabled {
		limiter := resilience.NewKeyedLimiter(resilience.KeyedLimiterConfig{
			RequestsPerMinute: rl.RequestsPerMinute,
			Burst:             rl.BurstLimit,
		})
		chain.Add(NewRateLimitMiddleware(limiter, logger))
	}

	if c.Logging.Enabled {
		chain.Add(NewLoggingMiddleware(observe.ParseLogLevel(c.Logging.Level), logger))
	}

	if c.Validation.Enabled {
		chain.Add(NewValidationMiddleware(c.Validation.StrictMode))
	}

	if o.telemetry != nil {
		chain.Add(o.telemetry)
	}

	if c.Performance.Enabled {
		threshold := time.Duration(c.Performance.SlowRequestThresholdMS) * time.Millisecond
		chain.Add(NewPerformanceMiddleware(threshold, logger, o.tracker))
	}

	return chain, nil
}

func (a AuthenticationConfig) keyStore() (*auth.MemoryAPIKeyStore, error) {
	store := auth.NewMemoryAPIKeyStore()
	for i, k := range a.APIKeys {
		expiresAt, err := k.expiry()
		if err != nil {
			return nil, fmt.Errorf("%w: api_keys[%d].expires_at: %v", ErrInvalidConfig, i, err)
		}
		store.Put(auth.NewAPIKey(k.Key, k.KeyID, k.Permissions, expiresAt))
	}
	return store, nil
}
