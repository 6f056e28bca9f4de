package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvOverrides holds settings taken from the environment. Unset variables
// leave the config untouched.
type EnvOverrides struct {
	Subcommand  string `env:"CHECK_DELTA_SUBCOMMAND"`
	Log         string `env:"CHECK_DELTA_LOG"`
	StaleTime   *int64 `env:"CHECK_DELTA_STALE_TIME"`
	Jobs        *int   `env:"CHECK_DELTA_JOBS"`
	StateFile   string `env:"CHECK_DELTA_STATE_FILE"`
	MetricsFile string `env:"CHECK_DELTA_METRICS_FILE"`
}

// LoadDotEnv loads dir/.env into the process environment without
// overriding variables that are already set. A missing file is ignored.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ParseEnv reads overrides from the process environment.
func ParseEnv() (EnvOverrides, error) {
	var o EnvOverrides
	if err := env.Parse(&o); err != nil {
		return o, fmt.Errorf("parse env: %w", err)
	}
	return o, nil
}

// ParseEnvMap reads overrides from an explicit environment.
func ParseEnvMap(environ map[string]string) (EnvOverrides, error) {
	var o EnvOverrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: environ}); err != nil {
		return o, fmt.Errorf("parse env: %w", err)
	}
	return o, nil
}

// Apply writes the set overrides into cfg.
func (o EnvOverrides) Apply(cfg *Config) {
	if o.Subcommand != "" {
		cfg.Subcommand = o.Subcommand
	}
	if o.Log != "" {
		cfg.Log = o.Log
	}
	if o.StaleTime != nil {
		cfg.StaleTime = *o.StaleTime
	}
	if o.Jobs != nil {
		cfg.Jobs = *o.Jobs
	}
	if o.StateFile != "" {
		cfg.StateFile = o.StateFile
	}
	if o.MetricsFile != "" {
		cfg.MetricsFile = o.MetricsFile
	}
}
