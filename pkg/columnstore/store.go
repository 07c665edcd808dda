// Package columnstore implements the three-column-family data model of §3:
// Data, Lock and Write, each an ordered mapping from a composite (raw key,
// timestamp) pair to a tagged cell value, adapted from the host engine's
// table/index layer (pkg/query's ScanCondition range semantics, laid over
// the generic pkg/index B+ tree instead of the host's heap-backed one,
// since §1 excludes durable persistence entirely).
package columnstore

import (
	"github.com/bobboyms/percolator/pkg/index"
	"github.com/bobboyms/percolator/pkg/kv"
)

// Column names one of the three logical column families.
type Column int

const (
	Data Column = iota
	Lock
	Write
)

func (c Column) String() string {
	switch c {
	case Data:
		return "data"
	case Lock:
		return "lock"
	case Write:
		return "write"
	default:
		return "unknown"
	}
}

// Store holds the three column families. Each family is independently
// indexed; the Transaction Server is responsible for the cross-family,
// cross-call atomicity §4.3 requires (it holds its own critical section for
// the duration of every handler). The per-family index additionally
// latch-crabs at the node level, so isolated single-key operations remain
// safe even if called outside a handler (e.g. by metrics scrapers or tests).
type Store struct {
	data  *index.Tree[kv.Value]
	lock  *index.Tree[kv.Value]
	write *index.Tree[kv.Value]
}

// degree is the B+ tree minimum degree used for every column family. The
// column store never holds enough live versions of one key to make a wider
// fan-out matter; this mirrors the host engine's default table index degree.
const degree = 32

// New constructs an empty column store.
func New() *Store {
	return &Store{
		data:  index.New[kv.Value](degree),
		lock:  index.New[kv.Value](degree),
		write: index.New[kv.Value](degree),
	}
}

func (s *Store) tree(col Column) *index.Tree[kv.Value] {
	switch col {
	case Data:
		return s.data
	case Lock:
		return s.lock
	case Write:
		return s.write
	default:
		panic("columnstore: unknown column")
	}
}

// Write inserts or overwrites the cell at (key, ts) in column col. Data
// payloads of compressThreshold bytes or more are transparently compressed.
func (s *Store) Write(key kv.Key, col Column, ts kv.Timestamp, v kv.Value) {
	if col == Data && v.IsData() {
		v = kv.DataValue(encodePayload(v.Data))
	}
	ck := kv.CompositeKey{Key: key, Ts: ts}
	_ = s.tree(col).Set(ck, v)
}

// Erase removes the cell at (key, ts) in column col, a no-op if absent.
func (s *Store) Erase(key kv.Key, col Column, ts kv.Timestamp) {
	s.tree(col).Delete(kv.CompositeKey{Key: key, Ts: ts})
}

// Read returns the entry with the greatest timestamp within r for key in
// column col, or ok=false if no entry in range exists.
func (s *Store) Read(key kv.Key, col Column, r Range) (ts kv.Timestamp, value kv.Value, ok bool) {
	t := s.tree(col)
	lowerTs := r.Lower.seekFloor()
	cur := t.Seek(kv.CompositeKey{Key: key, Ts: lowerTs})
	defer cur.Close()

	for cur.Valid() {
		ck := cur.Key().(kv.CompositeKey)
		if !bytesEqual(ck.Key, key) {
			break
		}
		if !r.Lower.satisfiesLower(ck.Ts) {
			cur.Next()
			continue
		}
		if !r.Upper.satisfiesUpper(ck.Ts) {
			break
		}
		ts, value, ok = ck.Ts, cur.Value(), true
		cur.Next()
	}

	if ok && col == Data && value.IsData() {
		plain, err := decodePayload(value.Data)
		if err != nil {
			panic(err)
		}
		value = kv.DataValue(plain)
	}
	return ts, value, ok
}

// Exists reports whether any entry for key in column col falls within r,
// returning the first (lowest-timestamp) match. Used by checks that only
// need presence, such as Prewrite's write-conflict and lock-exclusivity
// tests — they don't need the greatest match, only that one exists.
func (s *Store) Exists(key kv.Key, col Column, r Range) (ts kv.Timestamp, value kv.Value, ok bool) {
	t := s.tree(col)
	lowerTs := r.Lower.seekFloor()
	cur := t.Seek(kv.CompositeKey{Key: key, Ts: lowerTs})
	defer cur.Close()

	if !cur.Valid() {
		return 0, kv.Value{}, false
	}
	ck := cur.Key().(kv.CompositeKey)
	if !bytesEqual(ck.Key, key) || !r.Upper.satisfiesUpper(ck.Ts) {
		return 0, kv.Value{}, false
	}
	return ck.Ts, cur.Value(), true
}

// FindWritePointingTo scans every Write row for key and returns the commit
// timestamp of the one whose VTs payload equals startTs, or ok=false. Linear
// in the number of Write versions of key; called only on recovery paths
// (§4.2).
func (s *Store) FindWritePointingTo(key kv.Key, startTs kv.Timestamp) (commitTs kv.Timestamp, ok bool) {
	cur := s.write.Seek(kv.CompositeKey{Key: key, Ts: 0})
	defer cur.Close()

	for cur.Valid() {
		ck := cur.Key().(kv.CompositeKey)
		if !bytesEqual(ck.Key, key) {
			break
		}
		v := cur.Value()
		if v.IsTimestamp() && v.Ts == startTs {
			return ck.Ts, true
		}
		cur.Next()
	}
	return 0, false
}

func bytesEqual(a, b kv.Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
