// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package config loads the sync engine's operational tuning: request
// timeouts, retry budgets, fetch page size, and the upload-limit fallbacks
// used until the server advertises its own via info/configuration.
//
// Values are assembled by merging an optional JSON file on top of
// environment variables (caarlos0/env tags), with code defaults filling the
// rest, and are validated before use.
package config

import (
	"time"
)

// EngineConfig is the top-level tuning container for the sync engine.
//
// Struct tags:
//   - envPrefix: prefix applied to all nested env tag lookups (caarlos0/env).
//   - env: direct environment variable name for scalar fields.
type EngineConfig struct {
	// Request holds outbound HTTP settings.
	Request Request `envPrefix:"REQUEST_" json:"request,omitempty"`

	// Retry holds the bounds on automatic retries. Both bounds are
	// operational tuning, not protocol invariants; tests treat "eventually
	// surfaces Failed" as the contract.
	Retry Retry `envPrefix:"RETRY_" json:"retry,omitempty"`

	// Fetch holds collection fetch settings.
	Fetch Fetch `envPrefix:"FETCH_" json:"fetch,omitempty"`

	// JSONFilePath is the optional path to a JSON configuration file.
	// When non-empty, the file is parsed and merged on top of the values
	// already loaded from environment variables.
	// Populated via the SYNC_CONFIG environment variable.
	JSONFilePath string `env:"CONFIG" json:"-"`
}

// Request holds outbound HTTP settings for the storage client.
type Request struct {
	// Timeout bounds each storage request.
	Timeout time.Duration `env:"TIMEOUT" json:"timeout,omitempty"`
}

// Retry bounds the engine's automatic retries.
type Retry struct {
	// PreconditionCycles is how many extra full fetch→apply→upload cycles
	// a 412 may trigger before the engine surfaces Failed.
	PreconditionCycles int `env:"PRECONDITION_CYCLES" json:"precondition_cycles,omitempty"`
	// TransientAttempts bounds retries of network and 5xx failures per
	// request.
	TransientAttempts int `env:"TRANSIENT_ATTEMPTS" json:"transient_attempts,omitempty"`
	// TransientWait is the pause between transient retries.
	TransientWait time.Duration `env:"TRANSIENT_WAIT" json:"transient_wait,omitempty"`
}

// Fetch holds collection fetch settings.
type Fetch struct {
	// Limit is the page size for paginated collection fetches. Zero lets
	// the server choose.
	Limit int `env:"LIMIT" json:"limit,omitempty"`
}

// defaults returns the code-level fallbacks merged in last.
func defaults() *EngineConfig {
	return &EngineConfig{
		Request: Request{Timeout: 30 * time.Second},
		Retry: Retry{
			PreconditionCycles: 2,
			TransientAttempts:  3,
			TransientWait:      time.Second,
		},
		Fetch: Fetch{Limit: 1000},
	}
}
