package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnv(t *testing.T) {
	t.Setenv("ORBIT_API_URL", "https://api.orbit.example")
	t.Setenv("ORBIT_STORAGE_SECRET", "hunter2")
	t.Setenv("ORBIT_HTTP_TIMEOUT", "3s")
	t.Setenv("ORBIT_REDIRECT_URI", "orbit://cb")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	want := &Config{
		APIURL:        "https://api.orbit.example",
		DBPath:        "orbit.db",
		StorageSecret: "hunter2",
		HTTPTimeout:   3 * time.Second,
		LogLevel:      "info",
		RedirectURI:   "orbit://cb",
	}
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestParseEnv_BadDurationPanics(t *testing.T) {
	t.Setenv("ORBIT_HTTP_TIMEOUT", "soon")
	require.Panics(t, func() { parseEnv(&Config{}) })
}
