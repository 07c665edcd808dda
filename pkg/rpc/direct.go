package rpc

import (
	"context"

	"github.com/bobboyms/percolator/pkg/kv"
	"github.com/bobboyms/percolator/pkg/oracle"
	"github.com/bobboyms/percolator/pkg/txnserver"
)

// Direct is the simplest Transport: it calls the oracle and the Transaction
// Server in-process, translating between the wire message structs and the
// server's typed method signatures. Wrap it in a Network for the simulated
// drop/latency behavior §8's scenarios need.
type Direct struct {
	Oracle *oracle.Oracle
	Server *txnserver.Server
}

func (d *Direct) Timestamp(_ context.Context, _ TimestampRequest) (TimestampResponse, error) {
	return TimestampResponse{Ts: uint64(d.Oracle.GetTimestamp())}, nil
}

func (d *Direct) Get(ctx context.Context, req GetRequest) (GetResponse, error) {
	value, found, err := d.Server.Get(ctx, kv.Timestamp(req.StartTs), kv.Key(req.Key))
	if err != nil {
		if locked, ok := asLocked(err); ok {
			return GetResponse{Locked: &LockInfo{Ts: locked.Ts, Primary: locked.Primary}}, nil
		}
		return GetResponse{}, err
	}
	return GetResponse{Found: found, Value: value}, nil
}

func (d *Direct) Prewrite(ctx context.Context, req PrewriteRequest) (PrewriteResponse, error) {
	err := d.Server.Prewrite(ctx, kv.Timestamp(req.StartTs), kv.Key(req.Key), req.Value, req.PrimaryKey)
	if err == nil {
		return PrewriteResponse{}, nil
	}
	if conflict, ok := asWriteConflict(err); ok {
		return PrewriteResponse{Conflict: &ConflictInfo{Ts: conflict.Ts}}, nil
	}
	if locked, ok := asLocked(err); ok {
		return PrewriteResponse{Locked: &LockInfo{Ts: locked.Ts, Primary: locked.Primary}}, nil
	}
	return PrewriteResponse{}, err
}

func (d *Direct) Commit(ctx context.Context, req CommitRequest) (CommitResponse, error) {
	err := d.Server.Commit(ctx, req.IsPrimary, kv.Key(req.Key), kv.Timestamp(req.StartTs), kv.Timestamp(req.CommitTs))
	return CommitResponse{}, err
}

func (d *Direct) Check(ctx context.Context, req CheckRequest) (CheckResponse, error) {
	commitTs, found := d.Server.Check(ctx, kv.Key(req.Key), kv.Timestamp(req.LockTs))
	return CheckResponse{Found: found, CommitTs: uint64(commitTs)}, nil
}

func (d *Direct) Rollback(ctx context.Context, req RollbackRequest) (RollbackResponse, error) {
	err := d.Server.Rollback(ctx, kv.Key(req.Key), kv.Timestamp(req.StartTs))
	return RollbackResponse{}, err
}
