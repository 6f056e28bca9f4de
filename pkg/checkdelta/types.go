package checkdelta

import (
	"github.com/bianoble/check-delta/internal/config"
	"github.com/bianoble/check-delta/internal/engine"
	"github.com/bianoble/check-delta/internal/metrics"
	"github.com/bianoble/check-delta/internal/runner"
	"github.com/bianoble/check-delta/internal/snapshot"
	"github.com/bianoble/check-delta/internal/workspace"
)

// Type aliases re-export the internal types that make up the public API.

type Config = config.Config

type RunResult = engine.RunResult
type BuildResult = engine.BuildResult
type BuildFailedError = engine.BuildFailedError
type Status = engine.Status
type CleanResult = engine.CleanResult

type Snapshot = snapshot.Snapshot
type DiffResult = snapshot.DiffResult
type Verdict = snapshot.Verdict

type Provider = workspace.Provider
type Metadata = workspace.Metadata
type Package = workspace.Package
type MetadataError = workspace.MetadataError

type Runner = runner.Runner
type Command = runner.Command

type Metrics = metrics.Recorder

// NewMetrics returns a recorder to pass in Options.Metrics.
func NewMetrics() *Metrics {
	return metrics.New()
}
