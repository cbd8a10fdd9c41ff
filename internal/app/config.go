package app

import (
	"errors"
	"runtime"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string
	// Job is the only job to run. Empty runs every job.
	Job    string
	DryRun bool

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	WorkerCount     int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("--config is required and cannot be empty")
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, errors.New("healthcheck-port must be between 0 and 65535")
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = runtime.NumCPU()
	}
	return &cfg, nil
}
