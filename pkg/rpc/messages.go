// Package rpc is the unary RPC envelope of §6: typed request/response pairs
// for the TSO and the five Transaction Server methods, a bounded-retry
// caller (§4.4's call_with_retry), and a simulated network that can drop or
// delay individual messages for the failure-injection scenarios of §8.
// Every message struct is tagged for BSON — the same self-describing binary
// format the host engine already uses (pkg/storage/bson.go) to serialize
// documents — since §6.3 only requires the wire format be opaque to the
// core and preserve byte sequences exactly.
package rpc

// GetRequest is the wire request for the Get handler.
type GetRequest struct {
	StartTs uint64 `bson:"start_ts"`
	Key     []byte `bson:"key"`
}

// LockInfo describes a contending lock, returned by Get and Prewrite.
type LockInfo struct {
	Ts      uint64 `bson:"ts"`
	Primary []byte `bson:"primary"`
}

// GetResponse is the wire response for the Get handler. Locked is set, and
// Found/Value are meaningless, exactly when the key is currently locked at
// or before start_ts.
type GetResponse struct {
	Found  bool      `bson:"found"`
	Value  []byte    `bson:"value"`
	Locked *LockInfo `bson:"locked,omitempty"`
}

// PrewriteRequest is the wire request for the Prewrite handler.
type PrewriteRequest struct {
	StartTs    uint64 `bson:"start_ts"`
	Key        []byte `bson:"key"`
	Value      []byte `bson:"value"`
	PrimaryKey []byte `bson:"primary_key"`
}

// ConflictInfo describes a write-conflict, returned by Prewrite.
type ConflictInfo struct {
	Ts uint64 `bson:"ts"`
}

// PrewriteResponse is the wire response for the Prewrite handler. At most
// one of Conflict/Locked is set; both unset means success.
type PrewriteResponse struct {
	Conflict *ConflictInfo `bson:"conflict,omitempty"`
	Locked   *LockInfo     `bson:"locked,omitempty"`
}

// CommitRequest is the wire request for the Commit handler.
type CommitRequest struct {
	IsPrimary bool   `bson:"is_primary"`
	Key       []byte `bson:"key"`
	StartTs   uint64 `bson:"start_ts"`
	CommitTs  uint64 `bson:"commit_ts"`
}

// CommitResponse is the wire response for the Commit handler. Always empty
// on success — Commit has no failure mode per §4.3.
type CommitResponse struct{}

// CheckRequest is the wire request for the Check handler.
type CheckRequest struct {
	Key    []byte `bson:"key"`
	LockTs uint64 `bson:"lock_ts"`
}

// CheckResponse is the wire response for the Check handler.
type CheckResponse struct {
	Found    bool   `bson:"found"`
	CommitTs uint64 `bson:"commit_ts"`
}

// RollbackRequest is the wire request for the Rollback handler.
type RollbackRequest struct {
	Key     []byte `bson:"key"`
	StartTs uint64 `bson:"start_ts"`
}

// RollbackResponse is the wire response for the Rollback handler.
type RollbackResponse struct{}

// TimestampRequest is the wire request for the TSO (§6.1); it carries no
// fields but is still encoded so the simulated network treats it uniformly.
type TimestampRequest struct{}

// TimestampResponse is the wire response for the TSO.
type TimestampResponse struct {
	Ts uint64 `bson:"ts"`
}
