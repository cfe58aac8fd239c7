package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
)

var knownFlags = []string{
	"-e", "-a", "-g", "-d", "-i",
	"-access-secret", "-refresh-secret", "-access-ttl", "-refresh-ttl",
	"-bcrypt-cost",
	"-limit", "-window", "-login-limit", "-login-window",
}

// parseFlags overlays command-line flags. Flags not listed in knownFlags are
// ignored so the config path flags can share args.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("authkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Env, "e", cfg.Env, "environment: local, dev or prod")
	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "HTTP API bind address")
	fs.StringVar(&cfg.GRPCHealthAddr, "g", cfg.GRPCHealthAddr, "gRPC health bind address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.Issuer, "i", cfg.Issuer, "token issuer")

	fs.StringVar(&cfg.AccessSecret, "access-secret", cfg.AccessSecret, "access token secret")
	fs.StringVar(&cfg.RefreshSecret, "refresh-secret", cfg.RefreshSecret, "refresh token secret")
	fs.DurationVar(&cfg.AccessTokenTTL, "access-ttl", cfg.AccessTokenTTL, "access token lifetime")
	fs.DurationVar(&cfg.RefreshTokenTTL, "refresh-ttl", cfg.RefreshTokenTTL, "refresh token lifetime")

	fs.IntVar(&cfg.BcryptCost, "bcrypt-cost", cfg.BcryptCost, "bcrypt cost")

	fs.IntVar(&cfg.ThrottleLimit, "limit", cfg.ThrottleLimit, "profile requests per window")
	fs.DurationVar(&cfg.ThrottleWindow, "window", cfg.ThrottleWindow, "profile throttle window")
	fs.IntVar(&cfg.AuthThrottleLimit, "login-limit", cfg.AuthThrottleLimit, "login/refresh requests per window")
	fs.DurationVar(&cfg.AuthThrottleWindow, "login-window", cfg.AuthThrottleWindow, "login/refresh throttle window")

	return fs.Parse(flagx.FilterArgs(args, knownFlags))
}
