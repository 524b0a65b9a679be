// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// parseEnv populates cfg from environment variables using the caarlos0/env
// library. Struct fields are mapped via their `env` and `envPrefix` tags
// defined on [EngineConfig] and its nested types, all under the SYNC_
// prefix.
//
// Returns a wrapped error if env.Parse fails (e.g. a value cannot be
// converted to the target type).
func parseEnv(cfg *EngineConfig) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "SYNC_"}); err != nil {
		return fmt.Errorf("error getting env configs: %w", err)
	}

	return nil
}
