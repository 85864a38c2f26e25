package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/orbit/internal/flagx"
	"github.com/dmitrijs2005/orbit/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON
// configuration files. Durations accept "15m" strings or nanoseconds.
type JsonConfig struct {
	Addr                string         `json:"addr"`
	DatabaseDSN         string         `json:"database_dsn"`
	JWTSecret           string         `json:"jwt_secret"`
	AccessTokenTTL      timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL     timex.Duration `json:"refresh_token_ttl"`
	RefreshStore        string         `json:"refresh_store"`
	RedisURL            string         `json:"redis_url"`
	GoogleClientID      string         `json:"google_client_id"`
	GoogleClientSecret  string         `json:"google_client_secret"`
	AppleClientID       string         `json:"apple_client_id"`
	AppleTeamID         string         `json:"apple_team_id"`
	AppleKeyID          string         `json:"apple_key_id"`
	ApplePrivateKeyPath string         `json:"apple_private_key_path"`
	LogLevel            string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by -c,
// -config or ORBIT_SERVER_CONFIG. Missing fields keep the current value.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags("ORBIT_SERVER_CONFIG")
	if jsonConfigFile == "" {
		return
	}

	var c JsonConfig

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, &c); err != nil {
		panic(err)
	}

	setIf(&cfg.Addr, c.Addr)
	setIf(&cfg.DatabaseDSN, c.DatabaseDSN)
	setIf(&cfg.JWTSecret, c.JWTSecret)
	setIf(&cfg.RefreshStore, c.RefreshStore)
	setIf(&cfg.RedisURL, c.RedisURL)
	setIf(&cfg.GoogleClientID, c.GoogleClientID)
	setIf(&cfg.GoogleClientSecret, c.GoogleClientSecret)
	setIf(&cfg.AppleClientID, c.AppleClientID)
	setIf(&cfg.AppleTeamID, c.AppleTeamID)
	setIf(&cfg.AppleKeyID, c.AppleKeyID)
	setIf(&cfg.ApplePrivateKeyPath, c.ApplePrivateKeyPath)
	setIf(&cfg.LogLevel, c.LogLevel)
	if c.AccessTokenTTL.Duration > 0 {
		cfg.AccessTokenTTL = c.AccessTokenTTL.Duration
	}
	if c.RefreshTokenTTL.Duration > 0 {
		cfg.RefreshTokenTTL = c.RefreshTokenTTL.Duration
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
