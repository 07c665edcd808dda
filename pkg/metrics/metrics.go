// Package metrics registers the prometheus collectors every component in
// this module reports to: the oracle's dispense counter, the transaction
// server's per-handler outcome counters and latency histograms, the
// client's lock-recovery iteration counter, and the RPC envelope's retry
// counter. These are the concrete instrumentation points implied by §5's
// list of suspension points — every place a goroutine can block or retry is
// worth a counter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// TimestampsDispensed counts every TSO.GetTimestamp call.
	TimestampsDispensed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "percolator",
		Subsystem: "oracle",
		Name:      "timestamps_dispensed_total",
		Help:      "Total timestamps dispensed by the oracle.",
	})

	// HandlerCalls counts Transaction Server handler invocations by method
	// and outcome (ok, is_locked, write_conflict, or panic when a handler
	// body panics).
	HandlerCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "percolator",
		Subsystem: "txnserver",
		Name:      "handler_calls_total",
		Help:      "Transaction Server handler calls by method and outcome.",
	}, []string{"method", "outcome"})

	// HandlerLatency observes wall-clock time spent inside a handler body,
	// i.e. time spent holding the server's critical section.
	HandlerLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "percolator",
		Subsystem: "txnserver",
		Name:      "handler_latency_seconds",
		Help:      "Time spent inside a Transaction Server handler.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	// LockRecoveryIterations counts each pass of the client's Get recovery
	// loop (§4.4): sleep, Check, Commit-or-Rollback, re-Get.
	LockRecoveryIterations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "percolator",
		Subsystem: "client",
		Name:      "lock_recovery_iterations_total",
		Help:      "Total lock-recovery loop iterations across all Get calls.",
	})

	// RPCRetries counts retry attempts (attempt index > 0) in the RPC
	// envelope, labeled by method.
	RPCRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "percolator",
		Subsystem: "rpc",
		Name:      "retries_total",
		Help:      "RPC retry attempts by method.",
	}, []string{"method"})

	// MessagesDropped counts messages the simulated network discarded,
	// labeled by method and direction (request/response).
	MessagesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "percolator",
		Subsystem: "rpc",
		Name:      "messages_dropped_total",
		Help:      "Messages dropped by the simulated network, by method and direction.",
	}, []string{"method", "direction"})
)

// Registry is a dedicated registry rather than the global default one, so
// multiple Stores/Servers in the same test process (or a future multi-tenant
// host) don't collide registering the same collector twice.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		TimestampsDispensed,
		HandlerCalls,
		HandlerLatency,
		LockRecoveryIterations,
		RPCRetries,
		MessagesDropped,
	)
}
