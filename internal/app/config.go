package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
// Values set here override the ones read from ConfigPaths.
type Config struct {
	ConfigPaths []string // hcl, yaml, json or toml files

	App       string
	Root      string
	Extension string
	Timeout   time.Duration
	// WaitTimeout bounds how long run waits for bootstrap. Zero waits
	// until the context is done.
	WaitTimeout time.Duration
	// Dir is the base directory of relative file locators.
	Dir string

	Entries []string // bundle and graph
	Output  string   // bundle target, stdout when empty
	Watch   bool
	Format  string // graph report format

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}

	switch cfg.Format {
	case "":
		cfg.Format = "yaml"
	case "yaml", "yml", "json":
	default:
		return nil, fmt.Errorf("invalid format %q: must be 'yaml' or 'json'", cfg.Format)
	}

	if cfg.Timeout < 0 || cfg.WaitTimeout < 0 {
		return nil, errors.New("timeouts must not be negative")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck-port %d", cfg.HealthcheckPort)
	}
	if cfg.Watch && cfg.Output == "" {
		return nil, errors.New("--watch needs an output file")
	}
	return &cfg, nil
}
