package snapshot

import "time"

// DefaultStaleThreshold is how old a previous snapshot may be before it is
// discarded instead of diffed.
const DefaultStaleThreshold = 3 * time.Hour

// Verdict explains which old snapshot a run ends up diffing against.
type Verdict string

const (
	VerdictFresh Verdict = "fresh" // old snapshot used as loaded
	VerdictStale Verdict = "stale" // older than the threshold, replaced by empty
	VerdictReset Verdict = "reset" // caller asked to ignore the old snapshot
	VerdictSkew  Verdict = "skew"  // clock went backwards, old snapshot used as loaded
)

// Policy decides whether a previous snapshot can still be trusted.
type Policy struct {
	Threshold time.Duration
	Reset     bool
}

// NewPolicy returns a policy with the given threshold. A non-positive
// threshold means unset and falls back to DefaultStaleThreshold; callers
// reject zero from user input before it gets here.
func NewPolicy(threshold time.Duration, reset bool) Policy {
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}
	return Policy{Threshold: threshold, Reset: reset}
}

// Check returns the verdict for diffing cur against old.
// Elapsed time is cur.CapturedAt - old.CapturedAt; a negative elapsed time is
// never stale.
func (p Policy) Check(old, cur Snapshot) Verdict {
	if p.Reset {
		return VerdictReset
	}
	elapsed := cur.CapturedAt.Sub(old.CapturedAt)
	if elapsed < 0 {
		return VerdictSkew
	}
	if elapsed > p.Threshold {
		return VerdictStale
	}
	return VerdictFresh
}

// Effective returns the snapshot to diff cur against together with the
// verdict that produced it. Stale and reset verdicts yield an empty snapshot
// so that every current file is classified as added.
func (p Policy) Effective(old, cur Snapshot) (Snapshot, Verdict) {
	v := p.Check(old, cur)
	switch v {
	case VerdictStale, VerdictReset:
		return New(cur.CapturedAt), v
	default:
		return old, v
	}
}
