package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then applies
// environment overrides and defaults. A missing file is not an error:
// the returned config then carries environment values and defaults only.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg)
	setDefaults(&cfg)
	return &cfg, nil
}

// applyEnv overrides configuration values from environment variables
func applyEnv(cfg *Config) {
	if v := os.Getenv("SURVEYDESK_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("SURVEYDESK_WS_URL"); v != "" {
		cfg.Realtime.URL = v
	}
	if v := os.Getenv("SURVEYDESK_WS_NAMESPACE"); v != "" {
		cfg.Realtime.Namespace = v
	}
	if v := os.Getenv("SURVEYDESK_RECONNECT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Realtime.ReconnectInterval = d
		}
	}
	if v := os.Getenv("SURVEYDESK_MAX_RECONNECT_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Realtime.MaxReconnectAttempts = n
		}
	}
	if v := os.Getenv("SURVEYDESK_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
}
