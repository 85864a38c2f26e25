package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/orbit/internal/flagx"
	"github.com/dmitrijs2005/orbit/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Empty fields
// leave the current Config value in place.
type JsonConfig struct {
	APIURL        string         `json:"api_url"`
	DBPath        string         `json:"db_path"`
	StorageSecret string         `json:"storage_secret"`
	HTTPTimeout   timex.Duration `json:"http_timeout"`
	LogLevel      string         `json:"log_level"`
	RedirectURI   string         `json:"redirect_uri"`
}

// parseJson overlays Config with values loaded from a JSON file named by
// -c/-config or ORBIT_CONFIG. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags("ORBIT_CONFIG")
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setIf(&cfg.APIURL, jc.APIURL)
	setIf(&cfg.DBPath, jc.DBPath)
	setIf(&cfg.StorageSecret, jc.StorageSecret)
	setIf(&cfg.LogLevel, jc.LogLevel)
	setIf(&cfg.RedirectURI, jc.RedirectURI)
	if jc.HTTPTimeout.Duration > 0 {
		cfg.HTTPTimeout = jc.HTTPTimeout.Duration
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
