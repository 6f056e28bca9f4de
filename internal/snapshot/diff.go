package snapshot

import "sort"

// DiffResult partitions every path whose state differs between two snapshots.
// A path is in at most one of the three sets.
type DiffResult struct {
	Added    map[string]struct{}
	Removed  map[string]struct{}
	Modified map[string]struct{}
}

// Diff classifies each path of old and cur. It does no I/O and only looks at
// the Files maps: capture times play no part.
//
// Timestamps are compared with time.Time.Equal, i.e. exact instant equality
// down to the nanosecond, independent of location or monotonic readings.
func Diff(old, cur Snapshot) DiffResult {
	d := DiffResult{
		Added:    make(map[string]struct{}),
		Removed:  make(map[string]struct{}),
		Modified: make(map[string]struct{}),
	}

	for path, mod := range cur.Files {
		prev, ok := old.Files[path]
		switch {
		case !ok:
			d.Added[path] = struct{}{}
		case !prev.Equal(mod):
			d.Modified[path] = struct{}{}
		}
	}

	for path := range old.Files {
		if _, ok := cur.Files[path]; !ok {
			d.Removed[path] = struct{}{}
		}
	}

	return d
}

// Empty reports whether nothing changed.
func (d DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Modified) == 0
}

// Len returns the total number of changed paths.
func (d DiffResult) Len() int {
	return len(d.Added) + len(d.Removed) + len(d.Modified)
}

// Changed returns the union of all three sets in lexical order.
func (d DiffResult) Changed() []string {
	out := make([]string, 0, d.Len())
	for _, set := range []map[string]struct{}{d.Added, d.Modified, d.Removed} {
		for p := range set {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Sorted returns the added, modified and removed sets as sorted slices.
func (d DiffResult) Sorted() (added, modified, removed []string) {
	return sortedKeys(d.Added), sortedKeys(d.Modified), sortedKeys(d.Removed)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
