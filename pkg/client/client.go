// Package client is the Transaction Client of §4.4: a write buffer kept
// sorted by key, the begin/set/get/commit driver, and the lock-recovery loop
// that Get runs when it observes a contending lock. Grounded on the host
// engine's BeginTransaction/Commit API shape (pkg/storage/engine.go), with
// the buffer and recovery logic specific to Percolator.
package client

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/bobboyms/percolator/internal/logging"
	"github.com/bobboyms/percolator/pkg/kv"
	"github.com/bobboyms/percolator/pkg/metrics"
	"github.com/bobboyms/percolator/pkg/percolerrors"
	"github.com/bobboyms/percolator/pkg/rpc"
)

// Config holds the client-tunable constants of §4.4: the Get recovery
// backoff. (The retry envelope's attempt count and base timeout are fixed by
// §4.4 itself and live in pkg/rpc.)
type Config struct {
	// RecoveryBackoff is the sleep before each Check/Rollback recovery
	// attempt during Get; §4.4 specifies 100ms of simulated time.
	RecoveryBackoff time.Duration
}

// DefaultConfig returns the §4.4-mandated constants.
func DefaultConfig() Config {
	return Config{RecoveryBackoff: 100 * time.Millisecond}
}

type writeEntry struct {
	key   []byte
	value []byte
}

// Client drives one transaction at a time against a Transport. It is not
// safe for concurrent use by multiple goroutines — each logical transaction
// should own its own Client (or call Begin/Commit strictly sequentially).
type Client struct {
	transport rpc.Transport
	cfg       Config

	// id tags every log line this client emits; it is not sent over the
	// wire and is not a retry idempotency token (§11).
	id uuid.UUID

	began   bool
	startTs kv.Timestamp
	buffer  []writeEntry
}

// New constructs a Client bound to transport.
func New(transport rpc.Transport, cfg Config) *Client {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return &Client{transport: transport, cfg: cfg, id: id}
}

// Timestamp is a direct TSO passthrough (§6.4, §12), independent of any
// in-progress transaction — useful for tests observing TSO progress.
func (c *Client) Timestamp(ctx context.Context) (kv.Timestamp, error) {
	resp, err := rpc.Call(ctx, "Timestamp",
		func() rpc.TimestampRequest { return rpc.TimestampRequest{} },
		c.transport.Timestamp)
	if err != nil {
		return 0, err
	}
	return kv.Timestamp(resp.Ts), nil
}

// Begin requires no transaction already be open, obtains start_ts from the
// TSO, and clears the write buffer.
func (c *Client) Begin(ctx context.Context) error {
	if c.began {
		percolerrors.Precondition("client: begin called with a transaction already open")
	}
	ts, err := c.Timestamp(ctx)
	if err != nil {
		return err
	}
	c.startTs = ts
	c.began = true
	c.buffer = nil
	logging.Infof(logging.WithTag(ctx, "client_id", c.id.String()), "begin: start_ts=%d", uint64(c.startTs))
	return nil
}

// Set buffers a write locally; it never touches the network. The buffer
// stays sorted by key so the lexicographically smallest key is always
// buffer[0], the fixed primary (§4.4, §9).
func (c *Client) Set(key, value []byte) {
	if !c.began {
		percolerrors.Precondition("client: set called without an open transaction")
	}
	idx, found := slices.BinarySearchFunc(c.buffer, key, func(e writeEntry, k []byte) int {
		return bytes.Compare(e.key, k)
	})
	if found {
		c.buffer[idx].value = value
		return
	}
	c.buffer = slices.Insert(c.buffer, idx, writeEntry{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
}

// Get issues Get and, on IsLocked, runs the recovery loop of §4.4: sleep,
// Check the primary, then Commit-forward or Rollback the held key, and
// re-issue Get. Returns empty bytes (not an error) for "no such version".
func (c *Client) Get(ctx context.Context, key []byte) ([]byte, error) {
	if !c.began {
		percolerrors.Precondition("client: get called without an open transaction")
	}
	ctx = logging.WithTag(ctx, "client_id", c.id.String())
	ctx = logging.WithTag(ctx, "start_ts", uint64(c.startTs))

	for {
		resp, err := rpc.Call(ctx, "Get",
			func() rpc.GetRequest { return rpc.GetRequest{StartTs: uint64(c.startTs), Key: key} },
			c.transport.Get)
		if err != nil {
			return nil, err
		}
		if resp.Locked == nil {
			if resp.Found {
				return resp.Value, nil
			}
			return []byte{}, nil
		}

		metrics.LockRecoveryIterations.Inc()
		logging.Infof(ctx, "get: recovering lock start_ts=%d primary=%x", resp.Locked.Ts, resp.Locked.Primary)
		time.Sleep(c.cfg.RecoveryBackoff)

		lockTs := resp.Locked.Ts
		primary := resp.Locked.Primary

		checkResp, err := rpc.Call(ctx, "Check",
			func() rpc.CheckRequest { return rpc.CheckRequest{Key: primary, LockTs: lockTs} },
			c.transport.Check)
		if err != nil {
			return nil, err
		}

		if checkResp.Found {
			isPrimary := bytes.Equal(primary, key)
			_, err := rpc.Call(ctx, "Commit",
				func() rpc.CommitRequest {
					return rpc.CommitRequest{IsPrimary: isPrimary, Key: key, StartTs: lockTs, CommitTs: checkResp.CommitTs}
				},
				c.transport.Commit)
			if err != nil {
				return nil, err
			}
		} else {
			_, err := rpc.Call(ctx, "Rollback",
				func() rpc.RollbackRequest { return rpc.RollbackRequest{Key: key, StartTs: lockTs} },
				c.transport.Rollback)
			if err != nil {
				return nil, err
			}
		}
		// Loop: the lock is now cleared (committed or rolled back), so the
		// next Get either observes the healed value or no lock at all.
	}
}

// Commit drives two-phase commit (§4.4). A read-only transaction (empty
// buffer) is a no-op returning true. A non-nil error means the primary's
// Commit outcome is genuinely unknown to the caller (transport exhausted
// after retries, before any Commit of the primary succeeded); the bool
// return is meaningless in that case. A failure to obtain commit_ts from the
// TSO also returns a non-nil error, before anything has been prewritten.
func (c *Client) Commit(ctx context.Context) (bool, error) {
	if !c.began {
		percolerrors.Precondition("client: commit called without an open transaction")
	}
	ctx = logging.WithTag(ctx, "client_id", c.id.String())
	defer func() { c.began = false }()

	if len(c.buffer) == 0 {
		return true, nil
	}

	ts, err := c.Timestamp(ctx)
	if err != nil {
		return false, err
	}
	commitTs := ts

	primary := c.buffer[0].key

	for _, e := range c.buffer {
		key, value := e.key, e.value
		resp, err := rpc.Call(ctx, "Prewrite",
			func() rpc.PrewriteRequest {
				return rpc.PrewriteRequest{StartTs: uint64(c.startTs), Key: key, Value: value, PrimaryKey: primary}
			},
			c.transport.Prewrite)
		if err != nil {
			return false, nil
		}
		if resp.Conflict != nil || resp.Locked != nil {
			logging.Infof(ctx, "commit: prewrite rejected key=%x", key)
			return false, nil
		}
	}

	for i, e := range c.buffer {
		isPrimary := i == 0
		key := e.key
		_, err := rpc.Call(ctx, "Commit",
			func() rpc.CommitRequest {
				return rpc.CommitRequest{IsPrimary: isPrimary, Key: key, StartTs: uint64(c.startTs), CommitTs: uint64(commitTs)}
			},
			c.transport.Commit)
		if err != nil {
			if isPrimary {
				return false, &percolerrors.UnknownOutcomeError{Cause: err}
			}
			// Secondary failures after the primary succeeded are swallowed;
			// a future reader will roll them forward via lock recovery.
			logging.Infof(ctx, "commit: secondary commit failed, deferring to recovery: %v", err)
			continue
		}
	}

	return true, nil
}
