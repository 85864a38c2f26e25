package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays cfg with ORBIT_* variables. Unset variables keep the
// current value. Panics on malformed values.
func parseEnv(cfg *Config) {
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}
}
