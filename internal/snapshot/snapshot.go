// Package snapshot holds the point-in-time file timestamp records compared
// between runs, the diff between two of them, and the policy that decides
// when an old record is too old to trust.
package snapshot

import (
	"time"
)

// Snapshot maps file paths to their last-modified time, plus the time the
// snapshot was taken. Once handed to Diff it must not be modified; the
// helpers in this package always return new values.
type Snapshot struct {
	CapturedAt time.Time
	Files      map[string]time.Time
}

// New returns an empty snapshot captured at now.
func New(now time.Time) Snapshot {
	return Snapshot{CapturedAt: now, Files: map[string]time.Time{}}
}

// FromFiles builds a snapshot from an already-collected file map.
// The map is used as-is; callers give up ownership.
func FromFiles(now time.Time, files map[string]time.Time) Snapshot {
	if files == nil {
		files = map[string]time.Time{}
	}
	return Snapshot{CapturedAt: now, Files: files}
}

// Len returns the number of tracked files.
func (s Snapshot) Len() int {
	return len(s.Files)
}

// WithPrevious returns a copy of s in which each path in paths carries its
// timestamp from prev instead, or is dropped when prev never recorded it.
// It is used to keep changes of packages that were not built this run
// visible to the next diff.
func (s Snapshot) WithPrevious(prev Snapshot, paths []string) Snapshot {
	files := make(map[string]time.Time, len(s.Files))
	for p, t := range s.Files {
		files[p] = t
	}
	for _, p := range paths {
		if old, ok := prev.Files[p]; ok {
			files[p] = old
		} else {
			delete(files, p)
		}
	}
	return Snapshot{CapturedAt: s.CapturedAt, Files: files}
}
