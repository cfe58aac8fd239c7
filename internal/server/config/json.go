package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/flagx"
	"github.com/dmitrijs2005/authkeeper/internal/timex"
)

// jsonConfig is the on-disk shape. Durations accept "90s" style strings or
// integer seconds; absent fields keep their current value.
type jsonConfig struct {
	Env                string         `json:"env"`
	HTTPAddr           string         `json:"http_addr"`
	GRPCHealthAddr     string         `json:"grpc_health_addr"`
	DatabaseDSN        string         `json:"database_dsn"`
	AccessSecret       string         `json:"access_secret"`
	RefreshSecret      string         `json:"refresh_secret"`
	AccessTokenTTL     timex.Duration `json:"access_token_ttl"`
	RefreshTokenTTL    timex.Duration `json:"refresh_token_ttl"`
	Issuer             string         `json:"issuer"`
	BcryptCost         int            `json:"bcrypt_cost"`
	ThrottleLimit      int            `json:"throttle_limit"`
	ThrottleWindow     timex.Duration `json:"throttle_window"`
	AuthThrottleLimit  int            `json:"login_throttle_limit"`
	AuthThrottleWindow timex.Duration `json:"login_throttle_window"`
	RequestTimeout     timex.Duration `json:"request_timeout"`
	ShutdownTimeout    timex.Duration `json:"shutdown_timeout"`
}

func parseJSON(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var c jsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}

	setString(&cfg.Env, c.Env)
	setString(&cfg.HTTPAddr, c.HTTPAddr)
	setString(&cfg.GRPCHealthAddr, c.GRPCHealthAddr)
	setString(&cfg.DatabaseDSN, c.DatabaseDSN)
	setString(&cfg.AccessSecret, c.AccessSecret)
	setString(&cfg.RefreshSecret, c.RefreshSecret)
	setString(&cfg.Issuer, c.Issuer)
	setInt(&cfg.BcryptCost, c.BcryptCost)
	setInt(&cfg.ThrottleLimit, c.ThrottleLimit)
	setInt(&cfg.AuthThrottleLimit, c.AuthThrottleLimit)
	setDuration(&cfg.AccessTokenTTL, c.AccessTokenTTL)
	setDuration(&cfg.RefreshTokenTTL, c.RefreshTokenTTL)
	setDuration(&cfg.ThrottleWindow, c.ThrottleWindow)
	setDuration(&cfg.AuthThrottleWindow, c.AuthThrottleWindow)
	setDuration(&cfg.RequestTimeout, c.RequestTimeout)
	setDuration(&cfg.ShutdownTimeout, c.ShutdownTimeout)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
