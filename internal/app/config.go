package app

import (
	"errors"
	"strings"
)

// Config holds the process-level options for an App instance.
type Config struct {
	ConfigPath string // .hcl file, directory of .hcl files, or .yaml/.yml file

	// LogLevel and LogFormat override the settings block when non-empty.
	LogLevel  string
	LogFormat string
}

// NewConfig validates cfg.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogLevel != "" {
		if _, ok := parseLevel(cfg.LogLevel); !ok {
			return nil, errors.New("invalid log level: must be 'debug', 'info', 'warn', or 'error'")
		}
	}
	if cfg.LogFormat != "" && cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, errors.New("invalid log format: must be 'text' or 'json'")
	}
	return &cfg, nil
}
