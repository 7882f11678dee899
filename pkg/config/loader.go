package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the provided struct using its
// `env` and `envDefault` tags.
func Load(cfg any) error {
	return parse(cfg, env.Options{})
}

// LoadFrom is like Load but reads from the given map instead of the process
// environment. Useful for tests and for layering explicit overrides.
func LoadFrom(cfg any, environ map[string]string) error {
	return parse(cfg, env.Options{Environment: environ})
}

func parse(cfg any, opts env.Options) error {
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
