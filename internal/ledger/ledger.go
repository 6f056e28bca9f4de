// Package ledger tracks packages whose last build failed so they are built
// again on later runs until they succeed.
package ledger

// Ledger is an ordered set of package roots. Entries keep the order in which
// they failed; a root appears at most once.
type Ledger struct {
	roots []string
}

// New returns a ledger holding entries in order, dropping empty strings and
// repeats.
func New(entries []string) *Ledger {
	l := &Ledger{}
	for _, r := range entries {
		if r != "" && !l.Contains(r) {
			l.roots = append(l.roots, r)
		}
	}
	return l
}

// Contains reports whether root is in the ledger.
func (l *Ledger) Contains(root string) bool {
	for _, r := range l.roots {
		if r == root {
			return true
		}
	}
	return false
}

// Entries returns a copy of the ledger in order.
func (l *Ledger) Entries() []string {
	return append([]string{}, l.roots...)
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.roots)
}

// Retain keeps only the roots for which keep returns true and returns the
// dropped ones in ledger order.
func (l *Ledger) Retain(keep func(root string) bool) []string {
	var dropped []string
	kept := l.roots[:0]
	for _, r := range l.roots {
		if keep(r) {
			kept = append(kept, r)
		} else {
			dropped = append(dropped, r)
		}
	}
	l.roots = kept
	return dropped
}

// Plan returns the build order for a run: affected first, in the given
// order, then ledger entries not already listed. Each root appears once.
func (l *Ledger) Plan(affected []string) []string {
	seen := make(map[string]bool, len(affected)+len(l.roots))
	out := make([]string, 0, len(affected)+len(l.roots))
	for _, list := range [][]string{affected, l.roots} {
		for _, r := range list {
			if r == "" || seen[r] {
				continue
			}
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// Succeeded removes root from the ledger if present.
func (l *Ledger) Succeeded(root string) {
	for i, r := range l.roots {
		if r == root {
			l.roots = append(l.roots[:i:i], l.roots[i+1:]...)
			return
		}
	}
}

// Failed appends root unless it is already recorded.
func (l *Ledger) Failed(root string) {
	if root == "" || l.Contains(root) {
		return
	}
	l.roots = append(l.roots, root)
}
