package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name:     "all flags",
			args:     []string{"cmd", "-a", "http://127.0.0.1:9090", "-d", "/tmp/o.db", "-t", "5", "-l", "warn"},
			expected: &Config{APIURL: "http://127.0.0.1:9090", DBPath: "/tmp/o.db", HTTPTimeout: 5 * time.Second, LogLevel: "warn"},
		},
		{
			name:     "unknown flags ignored",
			args:     []string{"cmd", "-x", "1", "-a", "http://h"},
			expected: &Config{APIURL: "http://h"},
		},
		{name: "incorrect timeout", args: []string{"cmd", "-t", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
