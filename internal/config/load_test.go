package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const exampleConfig = `version: 1
subcommand: clippy
args: ["--all-targets", "--", "-D", "warnings"]
log: file
stale_time: 300
extensions: [".rs", ".toml"]
ignore:
  - "generated/"
  - "*.bak.rs"
jobs: 4
state_file: delta.json
metrics_file: /var/lib/node_exporter/check_delta.prom
watch:
  debounce_ms: 250
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, exampleConfig)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Subcommand != "clippy" {
		t.Errorf("subcommand = %q, want clippy", cfg.Subcommand)
	}
	if len(cfg.Args) != 4 || cfg.Args[3] != "warnings" {
		t.Errorf("args = %v", cfg.Args)
	}
	if cfg.Log != "file" {
		t.Errorf("log = %q, want file", cfg.Log)
	}
	if cfg.StaleThreshold() != 5*time.Minute {
		t.Errorf("stale threshold = %v, want 5m", cfg.StaleThreshold())
	}
	if len(cfg.Extensions) != 2 {
		t.Errorf("extensions = %v", cfg.Extensions)
	}
	if len(cfg.Ignore) != 2 {
		t.Errorf("ignore = %v", cfg.Ignore)
	}
	if cfg.Jobs != 4 {
		t.Errorf("jobs = %d, want 4", cfg.Jobs)
	}
	if cfg.StateFile != "delta.json" {
		t.Errorf("state_file = %q", cfg.StateFile)
	}
	if cfg.Debounce() != 250*time.Millisecond {
		t.Errorf("debounce = %v, want 250ms", cfg.Debounce())
	}
}

func TestLoadMinimalConfigGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, "version: 1\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Subcommand != DefaultSubcommand {
		t.Errorf("subcommand = %q, want %q", cfg.Subcommand, DefaultSubcommand)
	}
	if cfg.StaleThreshold() != 3*time.Hour {
		t.Errorf("stale threshold = %v, want 3h", cfg.StaleThreshold())
	}
	if len(cfg.Extensions) != 1 || cfg.Extensions[0] != ".rs" {
		t.Errorf("extensions = %v, want [.rs]", cfg.Extensions)
	}
	if cfg.StateFile != "cargo-check-delta.json" {
		t.Errorf("state_file = %q", cfg.StateFile)
	}
	if cfg.Debounce() != 500*time.Millisecond {
		t.Errorf("debounce = %v, want 500ms", cfg.Debounce())
	}
	if cfg.UseGlobalIgnore() {
		t.Error("global ignore should default to off")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "reading config") {
		t.Errorf("error = %v", err)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, "version: [1\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad version", func(c *Config) { c.Version = 2 }, "unsupported version 2"},
		{"empty subcommand", func(c *Config) { c.Subcommand = " " }, "'subcommand' must not be empty"},
		{"unknown log target", func(c *Config) { c.Log = "syslog" }, "invalid log target 'syslog'"},
		{"negative stale time", func(c *Config) { c.StaleTime = -1 }, "stale_time: must be positive"},
		{"zero stale time", func(c *Config) { c.StaleTime = 0 }, "stale_time: must be positive"},
		{"negative jobs", func(c *Config) { c.Jobs = -2 }, "jobs: must not be negative"},
		{"no extensions", func(c *Config) { c.Extensions = nil }, "at least one extension"},
		{"empty extension", func(c *Config) { c.Extensions = []string{".rs", ""} }, "extensions[1]: must not be empty"},
		{"empty ignore pattern", func(c *Config) { c.Ignore = []string{""} }, "ignore[0]: must not be empty"},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMS = -5 }, "watch.debounce_ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := Validate(cfg)
			if len(errs) != 1 {
				t.Fatalf("expected 1 error, got %v", errs)
			}
			if !strings.Contains(errs[0], tt.want) {
				t.Errorf("error = %q, want it to contain %q", errs[0], tt.want)
			}
		})
	}
}

func TestValidateDefaultIsValid(t *testing.T) {
	if errs := Validate(Default()); len(errs) != 0 {
		t.Errorf("default config invalid: %v", errs)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	writeFile(t, path, "version: 1\nlog: syslog\nstale_time: -5\njobs: -1\n")

	_, err := Load(path)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("errors = %v, want 3", ve.Errors)
	}
	if !strings.HasPrefix(ve.Error(), "config validation failed:") {
		t.Errorf("Error() = %q", ve.Error())
	}
}

func TestLoadHierarchicalNoInherit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	writeFile(t, path, exampleConfig)
	sysPath := filepath.Join(dir, "system", FileName)
	writeFile(t, sysPath, "version: 1\njobs: 9\n")

	result, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      path,
		SystemConfigPath: sysPath,
		NoInherit:        true,
	})
	if err != nil {
		t.Fatalf("LoadHierarchical: %v", err)
	}

	if len(result.Layers) != 1 {
		t.Fatalf("expected 1 layer with NoInherit, got %d", len(result.Layers))
	}
	if result.Layers[0].Level != LevelProject {
		t.Errorf("layer.Level = %q, want %q", result.Layers[0].Level, LevelProject)
	}
	if result.Config.Jobs != 4 {
		t.Errorf("jobs = %d, want 4 (system layer must be skipped)", result.Config.Jobs)
	}
}

func TestLoadHierarchicalMergesLayers(t *testing.T) {
	dir := t.TempDir()
	sysPath := filepath.Join(dir, "system", FileName)
	writeFile(t, sysPath, "version: 1\nlog: none\nignore: [\"vendor/\"]\njobs: 2\n")
	userPath := filepath.Join(dir, "user", FileName)
	writeFile(t, userPath, "stale_time: 600\njobs: 3\n")
	projPath := filepath.Join(dir, FileName)
	writeFile(t, projPath, "version: 1\nsubcommand: test\nignore: [\"fixtures/\"]\n")

	result, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      projPath,
		SystemConfigPath: sysPath,
		UserConfigPath:   userPath,
	})
	if err != nil {
		t.Fatalf("LoadHierarchical: %v", err)
	}

	cfg := result.Config
	if len(result.Layers) != 3 {
		t.Errorf("layers = %d, want 3", len(result.Layers))
	}
	if cfg.Log != "none" {
		t.Errorf("log = %q, want none from system", cfg.Log)
	}
	if cfg.StaleTime != 600 {
		t.Errorf("stale_time = %d, want 600 from user", cfg.StaleTime)
	}
	if cfg.Jobs != 3 {
		t.Errorf("jobs = %d, want 3 (user overrides system)", cfg.Jobs)
	}
	if cfg.Subcommand != "test" {
		t.Errorf("subcommand = %q, want test from project", cfg.Subcommand)
	}
	if len(cfg.Ignore) != 2 || cfg.Ignore[0] != "vendor/" || cfg.Ignore[1] != "fixtures/" {
		t.Errorf("ignore = %v, want system then project patterns", cfg.Ignore)
	}
}

func TestLoadHierarchicalMissingFilesUseDefaults(t *testing.T) {
	result, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      "/nonexistent/check-delta.yaml",
		SystemConfigPath: "/nonexistent/system.yaml",
		UserConfigPath:   "/nonexistent/user.yaml",
	})
	if err != nil {
		t.Fatalf("LoadHierarchical: %v", err)
	}
	if len(result.Layers) != 0 {
		t.Errorf("layers = %v, want none", result.Layers)
	}
	if result.Config.Subcommand != DefaultSubcommand {
		t.Errorf("subcommand = %q, want default", result.Config.Subcommand)
	}
}

func TestLoadHierarchicalSystemParseError(t *testing.T) {
	dir := t.TempDir()
	projectPath := filepath.Join(dir, "project.yaml")
	writeFile(t, projectPath, "version: 1\n")
	systemPath := filepath.Join(dir, "system.yaml")
	writeFile(t, systemPath, "invalid: [yaml: broken")

	_, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      projectPath,
		SystemConfigPath: systemPath,
		UserConfigPath:   "/nonexistent/user.yaml",
	})
	if err == nil {
		t.Fatal("expected error for broken system config")
	}
	if !strings.Contains(err.Error(), "parsing") || !strings.Contains(err.Error(), "system") {
		t.Errorf("error should mention system parse failure: %v", err)
	}
}

func TestLoadHierarchicalVersionMismatch(t *testing.T) {
	dir := t.TempDir()
	projectPath := filepath.Join(dir, "project.yaml")
	writeFile(t, projectPath, "version: 2\n")

	_, err := LoadHierarchical(HierarchicalOptions{
		ProjectPath:      projectPath,
		SystemConfigPath: "/nonexistent/system.yaml",
		UserConfigPath:   "/nonexistent/user.yaml",
	})
	if err == nil || !strings.Contains(err.Error(), "version mismatch") {
		t.Errorf("expected version mismatch, got %v", err)
	}
}
