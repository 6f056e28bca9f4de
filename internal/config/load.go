package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bianoble/check-delta/internal/logging"
)

// Load reads and validates a single check-delta.yaml file, applied on top
// of Default.
func Load(path string) (*Config, error) {
	layer, err := loadLayer(path)
	if err != nil {
		return nil, err
	}

	cfg, err := Merge(Default(), layer)
	if err != nil {
		return nil, err
	}

	if errs := Validate(cfg); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return cfg, nil
}

// loadLayer parses one file without defaults or validation.
func loadLayer(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// HierarchicalOptions controls LoadHierarchical.
type HierarchicalOptions struct {
	ProjectPath      string
	SystemConfigPath string
	UserConfigPath   string
	// NoInherit loads only the project layer.
	NoInherit bool
}

// HierarchicalResult is the merged configuration and the layers that
// contributed to it.
type HierarchicalResult struct {
	Config *Config
	Layers []ConfigLayerInfo
}

// LoadHierarchical loads system, user and project configs, lowest
// precedence first, and merges them onto Default. Missing files are skipped;
// a file that exists but cannot be parsed is an error.
func LoadHierarchical(opts HierarchicalOptions) (*HierarchicalResult, error) {
	var layers []ConfigLayerInfo
	if opts.NoInherit {
		layers = []ConfigLayerInfo{{Path: opts.ProjectPath, Level: LevelProject}}
	} else {
		layers = DiscoverPaths(DiscoverOptions{
			ProjectPath:      opts.ProjectPath,
			SystemConfigPath: opts.SystemConfigPath,
			UserConfigPath:   opts.UserConfigPath,
		})
	}

	configs := []*Config{Default()}
	result := &HierarchicalResult{}
	for _, layer := range layers {
		if layer.Path == "" {
			continue
		}
		cfg, err := loadLayer(layer.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%s config: %w", layer.Level, err)
		}
		layer.Loaded = true
		result.Layers = append(result.Layers, layer)
		configs = append(configs, cfg)
	}

	merged, err := MergeAll(configs)
	if err != nil {
		return nil, err
	}
	if errs := Validate(merged); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}
	result.Config = merged
	return result, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Config for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(cfg *Config) []string {
	var errs []string

	if cfg.Version != 1 {
		errs = append(errs, fmt.Sprintf("unsupported version %d: only version 1 is supported", cfg.Version))
	}

	if strings.TrimSpace(cfg.Subcommand) == "" {
		errs = append(errs, "'subcommand' must not be empty")
	}

	if cfg.Log != "" {
		if _, err := logging.ParseTarget(cfg.Log); err != nil {
			errs = append(errs, fmt.Sprintf("log: %v", err))
		}
	}

	if cfg.StaleTime <= 0 {
		errs = append(errs, fmt.Sprintf("stale_time: must be positive, got %d (use --reset to discard the snapshot)", cfg.StaleTime))
	}

	if cfg.Jobs < 0 {
		errs = append(errs, fmt.Sprintf("jobs: must not be negative, got %d", cfg.Jobs))
	}

	if len(cfg.Extensions) == 0 {
		errs = append(errs, "extensions: at least one extension is required")
	}
	for i, ext := range cfg.Extensions {
		if strings.TrimSpace(ext) == "" {
			errs = append(errs, fmt.Sprintf("extensions[%d]: must not be empty", i))
		}
	}

	for i, p := range cfg.Ignore {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Sprintf("ignore[%d]: must not be empty", i))
		}
	}

	if cfg.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Sprintf("watch.debounce_ms: must not be negative, got %d", cfg.Watch.DebounceMS))
	}

	return errs
}
