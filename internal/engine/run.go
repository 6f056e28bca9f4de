package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bianoble/check-delta/internal/ledger"
	"github.com/bianoble/check-delta/internal/logging"
	"github.com/bianoble/check-delta/internal/metrics"
	"github.com/bianoble/check-delta/internal/resolve"
	"github.com/bianoble/check-delta/internal/runner"
	"github.com/bianoble/check-delta/internal/scan"
	"github.com/bianoble/check-delta/internal/snapshot"
	"github.com/bianoble/check-delta/internal/state"
	"github.com/bianoble/check-delta/internal/workspace"
)

// DeltaEngine performs incremental runs: it diffs the workspace against the
// persisted snapshot and builds only what changed or failed last time.
type DeltaEngine struct {
	Provider workspace.Provider
	Runner   runner.Runner
	// Program is the build tool; empty means DefaultProgram.
	Program string
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// RunOptions configures a run.
type RunOptions struct {
	Subcommand     string
	Args           []string
	Reset          bool
	StaleThreshold time.Duration
	// StateFile is a name under the target directory or an absolute path.
	StateFile string

	Extensions   []string
	Ignore       []string
	GlobalIgnore bool
	Jobs         int

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// Run performs one incremental run. Metadata and state-write failures are
// returned as errors. A failing build still persists state and is reported
// as a *BuildFailedError alongside the result.
func (e *DeltaEngine) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := e.logger().With(logging.RunID(runID))
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	subcommand := opts.Subcommand
	if subcommand == "" {
		subcommand = "check"
	}

	meta, err := e.Provider.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying workspace metadata: %w", err)
	}

	result := &RunResult{
		RunID:     runID,
		StatePath: state.Path(meta.TargetDirectory, opts.StateFile),
	}

	prev, info := state.Load(result.StatePath, now())
	result.Load = info
	switch info.Status {
	case state.StatusCorrupt, state.StatusInvalid:
		logger.Warn("ignoring unreadable state", logging.StateFile(result.StatePath), logging.Error(info.Err))
	case state.StatusMissing:
		logger.Debug("no previous state", logging.StateFile(result.StatePath))
	}

	scanner := &scan.Scanner{
		Root:         meta.WorkspaceRoot,
		TargetDir:    meta.TargetDirectory,
		Extensions:   opts.Extensions,
		Ignore:       opts.Ignore,
		GlobalIgnore: opts.GlobalIgnore,
		Jobs:         opts.Jobs,
		Logger:       logger,
	}
	scanStart := time.Now()
	cur, stats, err := scanner.Scan(ctx, now())
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", meta.WorkspaceRoot, err)
	}
	e.Metrics.Scan(cur.Len(), time.Since(scanStart).Seconds())
	result.Files = cur.Len()
	logger.Debug("scanned workspace",
		slog.Int("files", stats.Files),
		slog.Int64("dirs", stats.Dirs),
		slog.Int64("ignored", stats.Ignored),
		slog.Int64("failed", stats.Failed))

	policy := snapshot.NewPolicy(opts.StaleThreshold, opts.Reset)
	base, verdict := policy.Effective(prev.Snapshot(), cur)
	result.Verdict = verdict
	if verdict != snapshot.VerdictFresh {
		logger.Info("previous snapshot not trusted", logging.Verdict(string(verdict)))
	}

	result.Diff = snapshot.Diff(base, cur)
	changed := result.Diff.Changed()
	for _, p := range changed {
		logger.Debug("changed", logging.Path(p))
	}

	res := resolve.New(meta.WorkspaceRoot, meta.Roots()).Resolve(changed)
	result.Affected = res.Affected
	result.Unowned = res.Unowned
	added, modified, removed := result.Diff.Sorted()
	e.Metrics.Changes(len(added), len(modified), len(removed), len(res.Affected))

	led := ledger.New(prev.FailedCrates)
	for _, root := range led.Retain(meta.HasRoot) {
		logger.Debug("dropping retry entry for package no longer in the workspace", logging.Package(root))
	}
	result.Plan = led.Plan(res.Affected)

	d := &Dispatcher{Runner: e.Runner, Program: e.Program, Logger: logger, Metrics: e.Metrics}
	builds, skipped, dispatchErr := d.Dispatch(ctx, result.Plan, subcommand, opts.Args, led)
	result.Builds = builds
	result.Skipped = skipped

	// Files of affected packages that were never built keep their previous
	// timestamps so the next run detects them again.
	var unbuilt []string
	for _, root := range skipped {
		unbuilt = append(unbuilt, res.Paths[root]...)
	}
	final := cur.WithPrevious(base, unbuilt)

	result.Ledger = led.Entries()
	if err := state.Save(result.StatePath, state.FromSnapshot(final, result.Ledger)); err != nil {
		e.Metrics.Finish("error", led.Len(), time.Since(start).Seconds(), float64(now().Unix()))
		return result, fmt.Errorf("saving state: %w", err)
	}
	logger.Debug("state saved", logging.StateFile(result.StatePath), slog.Int("ledger", led.Len()))

	if dispatchErr != nil {
		e.Metrics.Finish("cancelled", led.Len(), time.Since(start).Seconds(), float64(now().Unix()))
		return result, dispatchErr
	}

	if failed, ok := result.Failed(); ok {
		result.ExitCode = failed.ExitCode
		e.Metrics.Finish("failure", led.Len(), time.Since(start).Seconds(), float64(now().Unix()))
		return result, &BuildFailedError{Package: failed.Package, ExitCode: failed.ExitCode, Err: failed.Err}
	}

	e.Metrics.Finish("success", led.Len(), time.Since(start).Seconds(), float64(now().Unix()))
	logger.Info("run complete", slog.Int("built", len(result.Builds)), slog.Int("changed", len(changed)))
	return result, nil
}

func (e *DeltaEngine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// IsBuildFailure reports whether err is a failing build and returns its
// exit code.
func IsBuildFailure(err error) (int, bool) {
	var bf *BuildFailedError
	if errors.As(err, &bf) {
		return bf.ExitCode, true
	}
	return 0, false
}
