package config

import (
	"flag"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/orbit/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   base URL of the auth backend
//	-d string   path to the local database
//	-t int      HTTP timeout in seconds
//	-l string   log level
//
// os.Args is filtered with flagx.FilterArgs so unrelated flags are ignored.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIURL, "a", cfg.APIURL, "base URL of the auth backend")
	fs.StringVar(&cfg.DBPath, "d", cfg.DBPath, "path to the local database")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	timeout := fs.Int("t", int(cfg.HTTPTimeout.Seconds()), "HTTP timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.HTTPTimeout = time.Duration(*timeout) * time.Second
}
