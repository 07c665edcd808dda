// Package oracle is the Timestamp Oracle (§4.1): a process-wide, strictly
// increasing 64-bit counter. No persistence is required within a run —
// every process restart is a fresh epoch, matching the in-memory-only scope
// of §1.
package oracle

import (
	"sync/atomic"

	"github.com/bobboyms/percolator/pkg/kv"
	"github.com/bobboyms/percolator/pkg/metrics"
)

// Oracle hands out strictly increasing timestamps. The zero value is not
// usable; construct with New.
type Oracle struct {
	counter uint64
}

// New constructs an Oracle whose first dispensed timestamp is 1 (0 is
// reserved to mean "no committed version" throughout the column store).
func New() *Oracle {
	return &Oracle{counter: 0}
}

// GetTimestamp returns the next strictly increasing timestamp. Safe for
// concurrent use; the pre-increment value is never observed twice.
func (o *Oracle) GetTimestamp() kv.Timestamp {
	ts := atomic.AddUint64(&o.counter, 1)
	metrics.TimestampsDispensed.Inc()
	return kv.Timestamp(ts)
}

// TimestampRequest is the wire request for §6.1; it carries no fields.
type TimestampRequest struct{}

// TimestampResponse is the wire response for §6.1.
type TimestampResponse struct {
	Ts uint64 `bson:"ts"`
}

// Handle implements the TSO's only RPC method, for wiring into rpc.Transport.
func (o *Oracle) Handle(TimestampRequest) TimestampResponse {
	return TimestampResponse{Ts: uint64(o.GetTimestamp())}
}
