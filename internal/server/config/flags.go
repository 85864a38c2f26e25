package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/orbit/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8787")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-r int      refresh token validity, minutes
//	-k string   refresh token store (postgres|redis)
//	-l string   log level
//
// os.Args is filtered with flagx.FilterArgs first, so flags owned by
// other components do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-r", "-k", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.Addr, "a", config.Addr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.JWTSecret, "s", config.JWTSecret, "JWT secret key")
	fs.StringVar(&config.RefreshStore, "k", config.RefreshStore, "refresh token store (postgres|redis)")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	accessTTL := fs.Int("t", int(config.AccessTokenTTL.Minutes()), "access token validity (in minutes)")
	refreshTTL := fs.Int("r", int(config.RefreshTokenTTL.Minutes()), "refresh token validity (in minutes)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenTTL = time.Duration(*accessTTL) * time.Minute
	config.RefreshTokenTTL = time.Duration(*refreshTTL) * time.Minute
}
