// Package config loads the CLI settings: defaults, then an optional JSON
// file (-c/-config), then AUTH_CLI_* environment variables, then flags.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	ServerAddr     string        `env:"AUTH_CLI_SERVER_ADDR" env-description:"authkeeper HTTP address"`
	SessionDB      string        `env:"AUTH_CLI_SESSION_DB" env-description:"path of the local session database"`
	RequestTimeout time.Duration `env:"AUTH_CLI_REQUEST_TIMEOUT" env-description:"per-request timeout"`
}

func (c *Config) LoadDefaults() {
	c.ServerAddr = "http://127.0.0.1:8080"
	c.SessionDB = "authkeeper-session.db"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig applies every source in order. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJSON(cfg, args); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}
	if cfg.ServerAddr == "" || cfg.SessionDB == "" {
		return nil, errors.New("server address and session database are required")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, errors.New("request timeout must be positive")
	}
	return cfg, nil
}
