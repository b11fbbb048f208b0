package config

import "time"

type (
	// Config is the root configuration for the surveydesk client core
	Config struct {
		API      APIConfig      `yaml:"api"`
		Realtime RealtimeConfig `yaml:"realtime"`
		Notify   NotifyConfig   `yaml:"notify"`
		Logger   LoggerConfig   `yaml:"logger"`
		Metrics  MetricsConfig  `yaml:"metrics"`
	}

	// APIConfig defines the REST API endpoint configuration
	APIConfig struct {
		BaseURL string        `yaml:"base_url"` // e.g. http://localhost:8000
		Timeout time.Duration `yaml:"timeout"`  // per-request timeout, 0 means transport default
	}

	// RealtimeConfig defines the websocket channel configuration
	RealtimeConfig struct {
		URL                  string        `yaml:"url"`                    // e.g. ws://localhost:8000/ws
		Namespace            string        `yaml:"namespace"`              // channel namespace, e.g. "notifications"
		ReconnectInterval    time.Duration `yaml:"reconnect_interval"`     // delay between reconnect attempts
		MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"` // attempts before giving up
	}

	// NotifyConfig defines the notification store configuration
	NotifyConfig struct {
		MaxItems int `yaml:"max_items"` // bounded list capacity
	}

	// LoggerConfig defines the logging configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, e.g., "UTC", default is local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps, default is "2006-01-02 15:04:05"
	}

	// MetricsConfig defines the prometheus metrics configuration
	MetricsConfig struct {
		Namespace string `yaml:"namespace"`
	}
)

// setDefaults fills in defaults for unset fields
func setDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	if cfg.Realtime.URL == "" {
		cfg.Realtime.URL = "ws://localhost:8000/ws"
	}
	if cfg.Realtime.Namespace == "" {
		cfg.Realtime.Namespace = "notifications"
	}
	if cfg.Realtime.ReconnectInterval == 0 {
		cfg.Realtime.ReconnectInterval = 5 * time.Second
	}
	if cfg.Realtime.MaxReconnectAttempts == 0 {
		cfg.Realtime.MaxReconnectAttempts = 5
	}
	if cfg.Notify.MaxItems == 0 {
		cfg.Notify.MaxItems = 100
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "surveydesk"
	}
}
