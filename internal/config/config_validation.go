// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

// validate checks that the final merged [EngineConfig] satisfies the
// engine's invariants before a session is built from it.
//
// Returns nil if the configuration is valid, or a descriptive error
// otherwise.
func (cfg *EngineConfig) validate() error {
	if cfg.Request.Timeout <= 0 {
		return ErrInvalidRequestConfigs
	}

	if cfg.Retry.PreconditionCycles < 0 || cfg.Retry.TransientAttempts < 1 || cfg.Retry.TransientWait < 0 {
		return ErrInvalidRetryConfigs
	}

	if cfg.Fetch.Limit < 0 {
		return ErrInvalidFetchConfigs
	}

	return nil
}
