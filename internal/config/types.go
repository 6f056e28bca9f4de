package config

import (
	"time"

	"github.com/bianoble/check-delta/internal/scan"
	"github.com/bianoble/check-delta/internal/snapshot"
	"github.com/bianoble/check-delta/internal/state"
)

// Config represents the check-delta.yaml configuration file.
type Config struct {
	Version    int      `yaml:"version"`
	Subcommand string   `yaml:"subcommand,omitempty"`
	Args       []string `yaml:"args,omitempty"`
	Log        string   `yaml:"log,omitempty"` // "stderr", "file", "none"
	// StaleTime is the staleness threshold in seconds.
	StaleTime   int64    `yaml:"stale_time,omitempty"`
	Extensions  []string `yaml:"extensions,omitempty"`
	Ignore      []string `yaml:"ignore,omitempty"`
	// GlobalIgnore also applies the user's and system's git excludes.
	GlobalIgnore *bool  `yaml:"global_ignore,omitempty"`
	Jobs         int    `yaml:"jobs,omitempty"`
	StateFile    string `yaml:"state_file,omitempty"`
	MetricsFile  string `yaml:"metrics_file,omitempty"`
	Watch        Watch  `yaml:"watch,omitempty"`
}

// Watch configures watch mode.
type Watch struct {
	DebounceMS int `yaml:"debounce_ms,omitempty"`
}

// Defaults.
const (
	DefaultSubcommand = "check"
	DefaultLog        = "stderr"
	DefaultDebounceMS = 500
)

// Default returns the built-in configuration every layer is merged onto.
func Default() *Config {
	return &Config{
		Version:    1,
		Subcommand: DefaultSubcommand,
		Log:        DefaultLog,
		StaleTime:  int64(snapshot.DefaultStaleThreshold / time.Second),
		Extensions: append([]string(nil), scan.DefaultExtensions...),
		StateFile:  state.DefaultFileName,
		Watch:      Watch{DebounceMS: DefaultDebounceMS},
	}
}

// StaleThreshold returns StaleTime as a duration.
func (c *Config) StaleThreshold() time.Duration {
	return time.Duration(c.StaleTime) * time.Second
}

// Debounce returns the watch debounce window.
func (c *Config) Debounce() time.Duration {
	if c.Watch.DebounceMS <= 0 {
		return DefaultDebounceMS * time.Millisecond
	}
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
}

// UseGlobalIgnore reports whether global git excludes apply.
func (c *Config) UseGlobalIgnore() bool {
	return c.GlobalIgnore != nil && *c.GlobalIgnore
}
