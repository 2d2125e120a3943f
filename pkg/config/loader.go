package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Load parses environment variables into the struct pointed to by cfg.
// Fields are mapped with `env` tags; durations use Go duration syntax and
// slices are comma separated unless envSeparator says otherwise.
//
//	type Config struct {
//	    Port    int           `env:"DASH_HTTP_PORT" envDefault:"8090"`
//	    Timeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"15s"`
//	}
func Load(cfg any) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
