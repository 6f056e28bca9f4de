package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/bianoble/check-delta/internal/snapshot"
	"github.com/bianoble/check-delta/internal/state"
	"github.com/bianoble/check-delta/internal/workspace"
)

// StatusEngine reports on the persisted state without scanning or building.
type StatusEngine struct {
	Provider workspace.Provider
}

// StatusOptions configures a status query.
type StatusOptions struct {
	StateFile      string
	StaleThreshold time.Duration
	Now            func() time.Time
}

// Status describes the persisted state of a workspace.
type Status struct {
	StatePath string
	Load      state.LoadInfo
	// CapturedAt is zero when no usable state exists.
	CapturedAt time.Time
	Age        time.Duration
	Files      int
	Ledger     []string
	// Stale is true when the next run would discard the snapshot.
	Stale  bool
	Digest string
	// Packages lists the current workspace package roots.
	Packages []string
}

// Status loads the state file. It fails only if metadata cannot be queried.
func (e *StatusEngine) Status(ctx context.Context, opts StatusOptions) (*Status, error) {
	meta, err := e.Provider.Metadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying workspace metadata: %w", err)
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	s := &Status{
		StatePath: state.Path(meta.TargetDirectory, opts.StateFile),
		Packages:  meta.Roots(),
	}
	ts := now()
	st, info := state.Load(s.StatePath, ts)
	s.Load = info
	s.Ledger = st.FailedCrates
	if info.Status != state.StatusLoaded {
		return s, nil
	}

	s.CapturedAt = st.LastUpdate
	s.Age = ts.Sub(st.LastUpdate)
	s.Files = len(st.Files)
	policy := snapshot.NewPolicy(opts.StaleThreshold, false)
	s.Stale = policy.Check(st.Snapshot(), snapshot.New(ts)) == snapshot.VerdictStale

	if d, err := state.Digest(s.StatePath); err == nil {
		s.Digest = d
	}
	return s, nil
}
