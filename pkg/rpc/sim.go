package rpc

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/tokenbucket"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/bobboyms/percolator/pkg/metrics"
)

// Direction distinguishes a request message from its response, since the
// supplemented drop-rule harness (§12) can target either independently
// ("drop all Commit requests after the primary" vs. "drop all Commit
// responses").
type Direction string

const (
	DirRequest  Direction = "request"
	DirResponse Direction = "response"
)

// DropRule drops a message deterministically rather than by a random coin
// flip, matching §12's pluggable-predicate requirement. Should reports
// whether the next message matching Method and Direction is dropped; it is
// consulted once per matching message and may close over its own counter to
// express "drop the first N" or "drop forever after N".
type DropRule struct {
	Method    string
	Direction Direction
	Should    func() bool
}

// NetworkConfig parameterizes the simulated network. The zero value is an
// unthrottled, lossless network with no added latency.
type NetworkConfig struct {
	// Rate and Burst configure a token bucket throttling message delivery;
	// Rate <= 0 disables throttling entirely.
	Rate  tokenbucket.Rate
	Burst tokenbucket.Tokens

	// Latency is a fixed per-message delivery delay, applied after the
	// token bucket admits the message and before drop rules are evaluated.
	Latency time.Duration

	// Drops are consulted in order; the first matching rule whose Should
	// returns true drops the message.
	Drops []DropRule
}

// Network wraps a Transport with simulated throttling, latency and message
// drops, so scenario tests can exercise §8's partial-failure scenarios
// against a real Transport implementation instead of a hand-rolled fake.
type Network struct {
	inner Transport
	cfg   NetworkConfig

	mu     sync.Mutex
	bucket *tokenbucket.TokenBucket
}

// NewNetwork wraps inner with the simulated network described by cfg.
func NewNetwork(inner Transport, cfg NetworkConfig) *Network {
	n := &Network{inner: inner, cfg: cfg}
	if cfg.Rate > 0 {
		n.bucket = &tokenbucket.TokenBucket{}
		n.bucket.Init(cfg.Rate, cfg.Burst)
	}
	return n
}

// deliver applies throttling, latency and drop rules for one message on the
// wire. It returns false if the message should be treated as lost.
func (n *Network) deliver(ctx context.Context, method string, dir Direction) (bool, error) {
	if n.bucket != nil {
		n.mu.Lock()
		err := n.bucket.Wait(ctx, 1)
		n.mu.Unlock()
		if err != nil {
			return false, err
		}
	}
	if n.cfg.Latency > 0 {
		t := time.NewTimer(n.cfg.Latency)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return false, ctx.Err()
		}
	}
	for _, rule := range n.cfg.Drops {
		if rule.Method != method || rule.Direction != dir {
			continue
		}
		if rule.Should() {
			metrics.MessagesDropped.WithLabelValues(method, string(dir)).Inc()
			return false, nil
		}
	}
	return true, nil
}

// roundTrip runs a single simulated request/response exchange for method,
// re-encoding both messages through BSON so the wire format is genuinely
// exercised (§6.3 only requires it be opaque and byte-preserving) before
// handing the decoded values to call.
func roundTrip[Req, Resp any](ctx context.Context, n *Network, method string, req Req, call func(context.Context, Req) (Resp, error)) (Resp, error) {
	var zero Resp

	wireReq, err := bson.Marshal(req)
	if err != nil {
		return zero, errors.Wrapf(err, "rpc: encode %s request", method)
	}
	var decodedReq Req
	if err := bson.Unmarshal(wireReq, &decodedReq); err != nil {
		return zero, errors.Wrapf(err, "rpc: decode %s request", method)
	}

	ok, err := n.deliver(ctx, method, DirRequest)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, errors.Newf("rpc: %s request dropped", method)
	}

	resp, err := call(ctx, decodedReq)
	if err != nil {
		return zero, err
	}

	wireResp, err := bson.Marshal(resp)
	if err != nil {
		return zero, errors.Wrapf(err, "rpc: encode %s response", method)
	}
	var decodedResp Resp
	if err := bson.Unmarshal(wireResp, &decodedResp); err != nil {
		return zero, errors.Wrapf(err, "rpc: decode %s response", method)
	}

	ok, err = n.deliver(ctx, method, DirResponse)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, errors.Newf("rpc: %s response dropped", method)
	}
	return decodedResp, nil
}

func (n *Network) Timestamp(ctx context.Context, req TimestampRequest) (TimestampResponse, error) {
	return roundTrip(ctx, n, "Timestamp", req, n.inner.Timestamp)
}

func (n *Network) Get(ctx context.Context, req GetRequest) (GetResponse, error) {
	return roundTrip(ctx, n, "Get", req, n.inner.Get)
}

func (n *Network) Prewrite(ctx context.Context, req PrewriteRequest) (PrewriteResponse, error) {
	return roundTrip(ctx, n, "Prewrite", req, n.inner.Prewrite)
}

func (n *Network) Commit(ctx context.Context, req CommitRequest) (CommitResponse, error) {
	return roundTrip(ctx, n, "Commit", req, n.inner.Commit)
}

func (n *Network) Check(ctx context.Context, req CheckRequest) (CheckResponse, error) {
	return roundTrip(ctx, n, "Check", req, n.inner.Check)
}

func (n *Network) Rollback(ctx context.Context, req RollbackRequest) (RollbackResponse, error) {
	return roundTrip(ctx, n, "Rollback", req, n.inner.Rollback)
}
