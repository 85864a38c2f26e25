// Package config loads runtime configuration for the Orbit CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment variables (see parseEnv).
//  3. Optional JSON file (see parseJson) selected via -c/-config or ORBIT_CONFIG.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Environment
//
//	ORBIT_API_URL         base URL of the auth backend
//	ORBIT_DB_PATH         SQLite file holding the persisted session
//	ORBIT_STORAGE_SECRET  optional; enables at-rest encryption of session data
//	ORBIT_HTTP_TIMEOUT    per-request timeout, e.g. "10s"
//	ORBIT_LOG_LEVEL       debug, info, warn or error
//	ORBIT_REDIRECT_URI    redirect URI registered with the providers
//
// Supported flags
//
//	-a string   base URL of the auth backend
//	-d string   path to the local database
//	-t int      HTTP timeout (seconds)
//	-l string   log level
//
// # JSON schema
//
// Durations use timex.Duration, so values can be either strings like "10s"
// or integer nanoseconds:
//
//	{
//	  "api_url": "https://api.orbit.example",
//	  "db_path": "/var/lib/orbit/orbit.db",
//	  "http_timeout": "10s",
//	  "log_level": "debug"
//	}
package config
