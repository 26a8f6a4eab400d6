// Package config loads process configuration from the environment and
// provides the shared fatal-exit helper for command mains.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ParseEnv fills target from the environment variables declared through
// its env struct tags. Defaults come from envDefault tags.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
