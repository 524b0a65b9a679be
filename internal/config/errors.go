package config

import "errors"

// Validation errors returned by [EngineConfig.validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidRequestConfigs indicates invalid outbound request settings
	// (for example, a non-positive timeout).
	ErrInvalidRequestConfigs = errors.New("invalid request configuration")
	// ErrInvalidRetryConfigs indicates invalid retry bounds (for example,
	// zero transient attempts or a negative 412 cycle budget).
	ErrInvalidRetryConfigs = errors.New("invalid retry configuration")
	// ErrInvalidFetchConfigs indicates invalid fetch settings (for example,
	// a negative page limit).
	ErrInvalidFetchConfigs = errors.New("invalid fetch configuration")
)
