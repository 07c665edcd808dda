// Package txnserver hosts the five Percolator request handlers of §4.3 —
// Get, Prewrite, Commit, Check, Rollback — against a columnstore.Store under
// a single mutual-exclusion domain, matching §5: the critical section covers
// a handler's whole body and is never held across a suspension point,
// because a handler body is straight-line computation over in-memory maps.
// Grounded on the host engine's BeginTransaction/Commit critical-section
// pattern (pkg/storage/engine.go), generalized from "one big table" to the
// three named columns.
package txnserver

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/bobboyms/percolator/internal/logging"
	"github.com/bobboyms/percolator/pkg/columnstore"
	"github.com/bobboyms/percolator/pkg/kv"
	"github.com/bobboyms/percolator/pkg/metrics"
	"github.com/bobboyms/percolator/pkg/percolerrors"
)

// Server holds the three column families behind one mutex (§9's accepted
// alternative of per-key striping is not taken here — the spec only
// requires atomicity per handler call, and a single store-wide mutex is the
// simplest implementation that satisfies it).
type Server struct {
	mu    sync.Mutex
	store *columnstore.Store
}

// New constructs a Server over a fresh, empty column store.
func New() *Server {
	return &Server{store: columnstore.New()}
}

// instrument wraps a handler body with the call-outcome counter, the
// latency histogram, and a Sentry-reporting panic recovery that re-raises
// after reporting — matching §7.5's "programmer errors abort the process"
// while still getting the failure reported, since the RPC dispatch boundary
// is the only place a handler panic (an invariant violation) can surface.
func instrument(ctx context.Context, method string, fn func() string) {
	start := time.Now()
	outcome := "panic"
	defer func() {
		metrics.HandlerCalls.WithLabelValues(method, outcome).Inc()
		metrics.HandlerLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}()
	defer func() {
		if r := recover(); r != nil {
			sentry.CurrentHub().Recover(r)
			sentry.Flush(2 * time.Second)
			panic(r)
		}
	}()
	outcome = fn()
	_ = ctx
}

// Get implements §4.3's Get handler.
func (s *Server) Get(ctx context.Context, startTs kv.Timestamp, key kv.Key) (value []byte, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	instrument(ctx, "Get", func() string {
		lockTs, lockVal, locked := s.store.Exists(key, columnstore.Lock, columnstore.AtMost(startTs))
		if locked {
			logging.Infof(ctx, "get: key locked by start_ts=%d", uint64(lockTs))
			err = &percolerrors.IsLockedError{Ts: uint64(lockTs), Primary: lockVal.Data}
			return "is_locked"
		}

		_, writeVal, ok := s.store.Read(key, columnstore.Write, columnstore.AtMost(startTs))
		if !ok {
			found = false
			return "ok"
		}

		percolerrors.AssertInvariant(writeVal.IsTimestamp(), "get: write row for %x is not a VTs cell", key)
		ds := writeVal.Ts
		_, dataVal, ok := s.store.Read(key, columnstore.Data, columnstore.Exactly(ds))
		percolerrors.AssertInvariant(ok, "get: data row missing for %x at ts=%d", key, uint64(ds))

		value, found = dataVal.Data, true
		return "ok"
	})
	return value, found, err
}

// Prewrite implements §4.3's Prewrite handler.
func (s *Server) Prewrite(ctx context.Context, startTs kv.Timestamp, key kv.Key, value, primaryKey []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	instrument(ctx, "Prewrite", func() string {
		if commitTs, _, ok := s.store.Exists(key, columnstore.Write, columnstore.AtLeast(startTs)); ok {
			err = &percolerrors.WriteConflictError{Ts: uint64(commitTs)}
			return "write_conflict"
		}

		if lockTs, _, ok := s.store.Exists(key, columnstore.Lock, columnstore.All()); ok {
			err = &percolerrors.IsLockedError{Ts: uint64(lockTs)}
			return "is_locked"
		}

		s.store.Write(key, columnstore.Data, startTs, kv.DataValue(value))
		s.store.Write(key, columnstore.Lock, startTs, kv.DataValue(primaryKey))
		return "ok"
	})
	return err
}

// Commit implements §4.3's Commit handler. It never fails: the client is
// trusted to call Commit only after a successful Prewrite, and the effect is
// idempotent under retry (a repeated Write-row write is identical; a
// repeated Lock erase is a no-op).
func (s *Server) Commit(ctx context.Context, isPrimary bool, key kv.Key, startTs, commitTs kv.Timestamp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	instrument(ctx, "Commit", func() string {
		s.store.Write(key, columnstore.Write, commitTs, kv.TimestampValue(startTs))
		s.store.Erase(key, columnstore.Lock, startTs)
		logging.Infof(ctx, "commit: key=%x start_ts=%d commit_ts=%d primary=%v", key, uint64(startTs), uint64(commitTs), isPrimary)
		return "ok"
	})
	return nil
}

// Check implements §4.3's Check handler.
func (s *Server) Check(ctx context.Context, key kv.Key, lockTs kv.Timestamp) (commitTs kv.Timestamp, found bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	instrument(ctx, "Check", func() string {
		commitTs, found = s.store.FindWritePointingTo(key, lockTs)
		return "ok"
	})
	return commitTs, found
}

// Rollback implements §4.3's Rollback handler: erase the Lock, leaving the
// Data row orphaned (§9 — no tombstone is recorded; Check on this
// (key, start_ts) correctly keeps returning none).
func (s *Server) Rollback(ctx context.Context, key kv.Key, startTs kv.Timestamp) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	instrument(ctx, "Rollback", func() string {
		s.store.Erase(key, columnstore.Lock, startTs)
		return "ok"
	})
	return nil
}
