package config

import "time"

// Config holds runtime settings for the Orbit CLI.
type Config struct {
	APIURL        string        `env:"ORBIT_API_URL"`
	DBPath        string        `env:"ORBIT_DB_PATH"`
	StorageSecret string        `env:"ORBIT_STORAGE_SECRET"`
	HTTPTimeout   time.Duration `env:"ORBIT_HTTP_TIMEOUT"`
	LogLevel      string        `env:"ORBIT_LOG_LEVEL"`
	RedirectURI   string        `env:"ORBIT_REDIRECT_URI"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIURL = "http://localhost:8787"
	c.DBPath = "orbit.db"
	c.HTTPTimeout = 10 * time.Second
	c.LogLevel = "info"
	c.RedirectURI = "orbit://login/callback"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment, JSON (if present) and command-line flags (if present).
// Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
