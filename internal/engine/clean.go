package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/bianoble/check-delta/internal/state"
	"github.com/bianoble/check-delta/internal/workspace"
)

// CleanEngine deletes the persisted state so the next run starts over.
type CleanEngine struct {
	Provider workspace.Provider
}

// CleanOptions configures a clean operation.
type CleanOptions struct {
	StateFile string
	DryRun    bool
}

// CleanResult holds the outcome of a clean operation.
type CleanResult struct {
	StatePath string
	// Removed is true if a state file existed (and, unless DryRun, was deleted).
	Removed bool
}

// Clean removes the state file. A missing file is not an error.
func (e *CleanEngine) Clean(ctx context.Context, opts CleanOptions) (*CleanResult, error) {
	meta, err := e.Provider.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying workspace metadata: %w", err)
	}

	result := &CleanResult{StatePath: state.Path(meta.TargetDirectory, opts.StateFile)}
	if opts.DryRun {
		_, err := os.Stat(result.StatePath)
		switch {
		case err == nil:
			result.Removed = true
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("checking %s: %w", result.StatePath, err)
		}
		return result, nil
	}

	removed, err := state.Remove(result.StatePath)
	if err != nil {
		return nil, err
	}
	result.Removed = removed
	return result, nil
}
