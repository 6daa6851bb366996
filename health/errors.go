package health

import "errors"

var (
	// ErrCacheSaturated is attached to an unhealthy cache result.
	ErrCacheSaturated = errors.New("health: result cache saturated")

	// ErrCheckTimeout is attached to a check that missed its deadline.
	ErrCheckTimeout = errors.New("health: check timed out")

	// ErrUnknownCheck is returned when no checker has the requested name.
	ErrUnknownCheck = errors.New("health: unknown check")
)
