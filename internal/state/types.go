// Package state persists the snapshot and retry ledger between runs.
//
// The state file is the only thing check-delta writes besides build output
// and logs. It lives in the build tool's target directory:
//
//	{
//	  "failed_crates": ["/ws/crates/b"],
//	  "files": {"crates/a/src/lib.rs": "2024-05-01T12:00:00.123456789Z"},
//	  "last_update": "2024-05-01T12:00:03Z"
//	}
//
// Files written by older releases have no failed_crates key; they load with
// an empty ledger.
package state

import (
	"path/filepath"
	"time"

	"github.com/bianoble/check-delta/internal/snapshot"
)

// DefaultFileName is the state file name inside the target directory.
const DefaultFileName = "cargo-check-delta.json"

// State is the on-disk form of a snapshot plus the retry ledger.
type State struct {
	LastUpdate   time.Time            `json:"last_update"`
	Files        map[string]time.Time `json:"files"`
	FailedCrates []string             `json:"failed_crates"`
}

// Empty returns the state used when nothing usable is on disk.
func Empty(now time.Time) *State {
	return &State{
		LastUpdate:   now,
		Files:        map[string]time.Time{},
		FailedCrates: []string{},
	}
}

// FromSnapshot builds the state to persist from a snapshot and the ledger
// entries left after a run.
func FromSnapshot(s snapshot.Snapshot, ledger []string) *State {
	files := s.Files
	if files == nil {
		files = map[string]time.Time{}
	}
	failed := append([]string{}, ledger...)
	return &State{LastUpdate: s.CapturedAt, Files: files, FailedCrates: failed}
}

// Snapshot returns the snapshot part of the state.
func (s *State) Snapshot() snapshot.Snapshot {
	return snapshot.FromFiles(s.LastUpdate, s.Files)
}

// Path returns the state file location for a target directory.
// An empty name selects DefaultFileName.
func Path(targetDir, name string) string {
	if name == "" {
		name = DefaultFileName
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(targetDir, name)
}

// LoadStatus describes how Load arrived at the state it returned.
type LoadStatus string

const (
	StatusLoaded  LoadStatus = "loaded"
	StatusMissing LoadStatus = "missing"
	StatusCorrupt LoadStatus = "corrupt"
	StatusInvalid LoadStatus = "invalid"
)

// LoadInfo accompanies every Load. Err is set for any status but loaded.
type LoadInfo struct {
	Status LoadStatus
	Err    error
}
