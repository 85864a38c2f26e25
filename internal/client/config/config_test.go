package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:8787", c.APIURL)
	assert.Equal(t, "orbit.db", c.DBPath)
	assert.Equal(t, 10*time.Second, c.HTTPTimeout)
	assert.Equal(t, "info", c.LogLevel)
	assert.Empty(t, c.StorageSecret)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "http://localhost:8787", cfg.APIURL)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"api_url": "https://json.example",
		"db_path": "/json/orbit.db",
	})

	t.Setenv("ORBIT_API_URL", "https://env.example")
	t.Setenv("ORBIT_DB_PATH", "/env/orbit.db")
	t.Setenv("ORBIT_LOG_LEVEL", "debug")
	os.Args = []string{"testbin", "-c", path, "-a", "https://flag.example"}

	cfg := LoadConfig()

	assert.Equal(t, "https://flag.example", cfg.APIURL, "flags win")
	assert.Equal(t, "/json/orbit.db", cfg.DBPath, "json beats env")
	assert.Equal(t, "debug", cfg.LogLevel, "env beats defaults")
}
