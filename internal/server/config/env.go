package config

import "github.com/ilyakaznacheev/cleanenv"

// parseEnv overlays AUTH_* variables; unset variables leave fields as they are.
func parseEnv(cfg *Config) error {
	return cleanenv.ReadEnv(cfg)
}

// EnvUsage describes the recognised environment variables.
func EnvUsage() string {
	var cfg Config
	desc, err := cleanenv.GetDescription(&cfg, nil)
	if err != nil {
		return ""
	}
	return desc
}
