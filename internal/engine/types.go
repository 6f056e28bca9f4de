package engine

import (
	"fmt"
	"time"

	"github.com/bianoble/check-delta/internal/snapshot"
	"github.com/bianoble/check-delta/internal/state"
)

// BuildResult records one dispatched build.
type BuildResult struct {
	Package  string
	ExitCode int
	Duration time.Duration
	Err      error // spawn or wait failure; nil when the child ran
}

// OK reports whether the build succeeded.
func (b BuildResult) OK() bool {
	return b.ExitCode == 0 && b.Err == nil
}

// RunResult holds the outcome of an incremental run.
type RunResult struct {
	RunID     string
	StatePath string
	// Load tells whether a previous state was found.
	Load    state.LoadInfo
	Verdict snapshot.Verdict
	Diff    snapshot.DiffResult
	// Affected lists package roots owning a changed file, sorted.
	Affected []string
	// Unowned lists changed paths outside every package.
	Unowned []string
	// Plan is the build order: Affected, then retried ledger entries.
	Plan   []string
	Builds []BuildResult
	// Skipped lists planned packages not reached after a failure.
	Skipped []string
	// Ledger is the retry ledger as persisted.
	Ledger   []string
	Files    int
	ExitCode int
}

// Failed returns the failing build, if any.
func (r *RunResult) Failed() (BuildResult, bool) {
	for _, b := range r.Builds {
		if !b.OK() {
			return b, true
		}
	}
	return BuildResult{}, false
}

// BuildFailedError reports that a package build failed. ExitCode is the
// child's exit code, which the process should exit with.
type BuildFailedError struct {
	Package  string
	ExitCode int
	Err      error
}

func (e *BuildFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build of %s failed: %v", e.Package, e.Err)
	}
	return fmt.Sprintf("build of %s failed with exit code %d", e.Package, e.ExitCode)
}

func (e *BuildFailedError) Unwrap() error {
	return e.Err
}
