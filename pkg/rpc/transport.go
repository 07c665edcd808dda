package rpc

import "context"

// Transport is the client-facing boundary to the TSO and Transaction Server
// (§6.3): unary request/response, opaque wire format, best-effort delivery.
// Implementations are free to be a direct in-process call or a simulated
// network with drops and latency (see Network in sim.go); the client driver
// only ever depends on this interface.
type Transport interface {
	Timestamp(ctx context.Context, req TimestampRequest) (TimestampResponse, error)
	Get(ctx context.Context, req GetRequest) (GetResponse, error)
	Prewrite(ctx context.Context, req PrewriteRequest) (PrewriteResponse, error)
	Commit(ctx context.Context, req CommitRequest) (CommitResponse, error)
	Check(ctx context.Context, req CheckRequest) (CheckResponse, error)
	Rollback(ctx context.Context, req RollbackRequest) (RollbackResponse, error)
}
