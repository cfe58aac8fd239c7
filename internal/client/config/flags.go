package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

// parseFlags handles:
//
//	-a string     server address
//	-db string    session database path
//	-t duration   request timeout
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("authkeeper-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerAddr, "a", cfg.ServerAddr, "address of the server")
	fs.StringVar(&cfg.SessionDB, "db", cfg.SessionDB, "session database path")
	fs.DurationVar(&cfg.RequestTimeout, "t", cfg.RequestTimeout, "request timeout")

	return fs.Parse(flagx.FilterArgs(args, []string{"-a", "-db", "-t"}))
}
