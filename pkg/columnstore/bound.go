package columnstore

import "github.com/bobboyms/percolator/pkg/kv"

// boundKind selects whether a Range endpoint is open on that side.
type boundKind uint8

const (
	unbounded boundKind = iota
	inclusive
	exclusive
)

// Bound is one endpoint (lower or upper) of a timestamp range.
type Bound struct {
	kind boundKind
	ts   kv.Timestamp
}

// Unbounded returns an endpoint with no limit.
func Unbounded() Bound { return Bound{kind: unbounded} }

// Inclusive returns an endpoint that includes ts.
func Inclusive(ts kv.Timestamp) Bound { return Bound{kind: inclusive, ts: ts} }

// Exclusive returns an endpoint that excludes ts.
func Exclusive(ts kv.Timestamp) Bound { return Bound{kind: exclusive, ts: ts} }

func (b Bound) satisfiesLower(ts kv.Timestamp) bool {
	switch b.kind {
	case unbounded:
		return true
	case inclusive:
		return ts >= b.ts
	case exclusive:
		return ts > b.ts
	default:
		return false
	}
}

func (b Bound) satisfiesUpper(ts kv.Timestamp) bool {
	switch b.kind {
	case unbounded:
		return true
	case inclusive:
		return ts <= b.ts
	case exclusive:
		return ts < b.ts
	default:
		return false
	}
}

// seekFloor returns the timestamp the tree cursor should seek from: the
// smallest timestamp that could possibly satisfy this lower bound.
func (b Bound) seekFloor() kv.Timestamp {
	switch b.kind {
	case inclusive:
		return b.ts
	case exclusive:
		return b.ts + 1
	default:
		return 0
	}
}

// Range is an inclusive/exclusive/unbounded span of timestamps for a single
// pinned raw key, matching §4.2's ts_range contract.
type Range struct {
	Lower Bound
	Upper Bound
}

// AtMost returns the range [0, ts] (or (-inf, ts] conceptually): every
// version committed/locked at or before ts. Used by Get's snapshot reads.
func AtMost(ts kv.Timestamp) Range {
	return Range{Lower: Unbounded(), Upper: Inclusive(ts)}
}

// AtLeast returns the range [ts, +inf): used by Prewrite's write-conflict
// check, which only needs to know whether any commit lands at or after our
// start_ts.
func AtLeast(ts kv.Timestamp) Range {
	return Range{Lower: Inclusive(ts), Upper: Unbounded()}
}

// All returns the fully unbounded range (-inf, +inf): used by Prewrite's
// lock-exclusivity check, which looks for any lock at all on the key.
func All() Range {
	return Range{Lower: Unbounded(), Upper: Unbounded()}
}

// Exactly returns the single-point range [ts, ts].
func Exactly(ts kv.Timestamp) Range {
	return Range{Lower: Inclusive(ts), Upper: Inclusive(ts)}
}
