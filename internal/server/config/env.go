package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// parseEnv loads a .env file from the working directory if there is one,
// then overlays cfg with the environment. Panics on malformed values.
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		panic(err)
	}
}
