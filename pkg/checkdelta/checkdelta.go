// Package checkdelta provides the public Go library API for check-delta.
//
// check-delta is an incremental build trigger for Cargo workspaces. It
// records source timestamps between runs and invokes the build command only
// for packages whose files changed, plus packages that failed last time.
//
// # Basic Usage
//
//	client, err := checkdelta.New(checkdelta.Options{Dir: "/path/to/workspace"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := client.Run(ctx, checkdelta.RunOptions{Subcommand: "clippy"})
//	var bf *checkdelta.BuildFailedError
//	if errors.As(err, &bf) {
//	    os.Exit(bf.ExitCode)
//	}
package checkdelta

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bianoble/check-delta/internal/config"
	"github.com/bianoble/check-delta/internal/engine"
	"github.com/bianoble/check-delta/internal/runner"
	"github.com/bianoble/check-delta/internal/snapshot"
	"github.com/bianoble/check-delta/internal/watch"
	"github.com/bianoble/check-delta/internal/workspace"
)

// DeltaRunner performs incremental runs.
type DeltaRunner interface {
	Run(ctx context.Context, opts RunOptions) (*RunResult, error)
}

// StatusReporter reports on the persisted state.
type StatusReporter interface {
	Status(ctx context.Context) (*Status, error)
}

// Cleaner deletes the persisted state.
type Cleaner interface {
	Clean(ctx context.Context, opts CleanOptions) (*CleanResult, error)
}

// Options configures a check-delta client.
type Options struct {
	// Dir is the directory cargo metadata runs in. Default: ".".
	Dir string

	// ManifestPath is passed to cargo metadata as --manifest-path.
	ManifestPath string

	// ConfigPath is the project config file, relative to Dir.
	// Default: "check-delta.yaml".
	ConfigPath string

	// NoInherit skips the system and user config layers.
	NoInherit bool

	// Environ replaces the process environment for config overrides.
	Environ map[string]string

	// Cargo is the build tool binary. Default: "cargo".
	Cargo string

	// Provider overrides the cargo metadata query.
	Provider Provider

	// Runner overrides the process runner.
	Runner Runner

	Logger  *slog.Logger
	Metrics *Metrics
}

// RunOptions configures a run. Zero values fall back to the config.
type RunOptions struct {
	Subcommand string
	Args       []string
	Reset      bool
	// StaleTime must be positive when set; use Reset to discard the snapshot.
	StaleTime *time.Duration
	Jobs      *int
}

func (o RunOptions) validate() error {
	if o.StaleTime != nil && *o.StaleTime <= 0 {
		return fmt.Errorf("stale time must be positive, got %v", *o.StaleTime)
	}
	if o.Jobs != nil && *o.Jobs < 0 {
		return fmt.Errorf("jobs must not be negative, got %d", *o.Jobs)
	}
	return nil
}

// CleanOptions configures a clean operation.
type CleanOptions struct {
	DryRun bool
}

// Client is the main entry point for the check-delta library.
// It implements DeltaRunner, StatusReporter and Cleaner.
type Client struct {
	cfg      *config.Config
	provider workspace.Provider
	runner   runner.Runner
	program  string
	logger   *slog.Logger
	metrics  *Metrics
}

// New creates a client and resolves its configuration.
func New(opts Options) (*Client, error) {
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace dir: %w", err)
	}

	resolved, err := config.Resolve(config.ResolveOptions{
		HierarchicalOptions: config.HierarchicalOptions{
			ProjectPath: config.ProjectPath(abs, opts.ConfigPath),
			NoInherit:   opts.NoInherit,
		},
		DotEnvDir: abs,
		Environ:   opts.Environ,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:      resolved.Config,
		provider: opts.Provider,
		runner:   opts.Runner,
		program:  opts.Cargo,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if c.program == "" {
		c.program = engine.DefaultProgram
	}
	if c.provider == nil {
		c.provider = &workspace.CargoProvider{Cargo: c.program, ManifestPath: opts.ManifestPath, Dir: abs}
	}
	if c.runner == nil {
		c.runner = &runner.ExecRunner{}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// Config returns the resolved configuration.
func (c *Client) Config() *Config {
	return c.cfg
}

// Metadata queries the workspace layout.
func (c *Client) Metadata(ctx context.Context) (*Metadata, error) {
	return c.provider.Metadata(ctx)
}

func (c *Client) runOptions(opts RunOptions) engine.RunOptions {
	eo := engine.RunOptions{
		Subcommand:     c.cfg.Subcommand,
		Args:           c.cfg.Args,
		Reset:          opts.Reset,
		StaleThreshold: c.cfg.StaleThreshold(),
		StateFile:      c.cfg.StateFile,
		Extensions:     c.cfg.Extensions,
		Ignore:         c.cfg.Ignore,
		GlobalIgnore:   c.cfg.UseGlobalIgnore(),
		Jobs:           c.cfg.Jobs,
	}
	if opts.Subcommand != "" {
		eo.Subcommand = opts.Subcommand
	}
	if opts.Args != nil {
		eo.Args = opts.Args
	}
	if opts.StaleTime != nil {
		eo.StaleThreshold = *opts.StaleTime
	}
	if opts.Jobs != nil {
		eo.Jobs = *opts.Jobs
	}
	return eo
}

func (c *Client) deltaEngine(provider workspace.Provider) *engine.DeltaEngine {
	return &engine.DeltaEngine{
		Provider: provider,
		Runner:   c.runner,
		Program:  c.program,
		Logger:   c.logger,
		Metrics:  c.metrics,
	}
}

// Run performs one incremental run. A failing build returns the result
// together with a *BuildFailedError.
func (c *Client) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	result, err := c.deltaEngine(c.provider).Run(ctx, c.runOptions(opts))
	if werr := c.metrics.WriteFile(c.cfg.MetricsFile); werr != nil {
		c.logger.Warn("writing metrics", "error", werr)
	}
	return result, err
}

// Status reports on the persisted state.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	eng := &engine.StatusEngine{Provider: c.provider}
	return eng.Status(ctx, engine.StatusOptions{
		StateFile:      c.cfg.StateFile,
		StaleThreshold: c.cfg.StaleThreshold(),
	})
}

// Clean deletes the persisted state.
func (c *Client) Clean(ctx context.Context, opts CleanOptions) (*CleanResult, error) {
	eng := &engine.CleanEngine{Provider: c.provider}
	return eng.Clean(ctx, engine.CleanOptions{StateFile: c.cfg.StateFile, DryRun: opts.DryRun})
}

// Watch runs once and then again whenever sources change, until ctx is
// cancelled. onRun, if set, receives every run's outcome.
func (c *Client) Watch(ctx context.Context, opts RunOptions, onRun func(*RunResult, error)) error {
	if err := opts.validate(); err != nil {
		return err
	}
	meta, err := c.provider.Metadata(ctx)
	if err != nil {
		return fmt.Errorf("querying workspace metadata: %w", err)
	}
	eng := c.deltaEngine(workspace.Static{Meta: meta})
	eo := c.runOptions(opts)

	w := &watch.Watcher{
		Root:         meta.WorkspaceRoot,
		TargetDir:    meta.TargetDirectory,
		Extensions:   eo.Extensions,
		Ignore:       eo.Ignore,
		GlobalIgnore: eo.GlobalIgnore,
		Debounce:     c.cfg.Debounce(),
		Logger:       c.logger,
		Run: func(ctx context.Context) error {
			result, err := eng.Run(ctx, eo)
			// Only the first run honors a reset.
			eo.Reset = false
			if werr := c.metrics.WriteFile(c.cfg.MetricsFile); werr != nil {
				c.logger.Warn("writing metrics", "error", werr)
			}
			if onRun != nil {
				onRun(result, err)
			}
			return err
		},
	}
	return w.Watch(ctx)
}

// Diff compares two snapshots.
func Diff(old, cur Snapshot) DiffResult {
	return snapshot.Diff(old, cur)
}

// Stale reports whether old would be discarded when diffing against cur.
func Stale(threshold time.Duration, old, cur Snapshot) bool {
	return snapshot.NewPolicy(threshold, false).Check(old, cur) == snapshot.VerdictStale
}
