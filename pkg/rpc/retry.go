package rpc

import (
	"context"
	"time"

	"github.com/bobboyms/percolator/pkg/metrics"
	"github.com/bobboyms/percolator/pkg/percolerrors"
)

// maxAttempts and baseTimeout implement §4.4's call_with_retry: up to three
// attempts, per-attempt timeout starting at 100ms and doubling each retry.
const (
	maxAttempts = 3
	baseTimeout = 100 * time.Millisecond
)

// Call runs do(factory()) up to maxAttempts times, rebuilding the request
// from factory on every attempt (so idempotency-relevant values stay
// identical across retries rather than being mutated in place) and doubling
// the per-attempt timeout each time. It reports the last transport error,
// wrapped, if every attempt fails.
func Call[Req, Resp any](ctx context.Context, method string, factory func() Req, do func(context.Context, Req) (Resp, error)) (Resp, error) {
	var zero Resp
	var lastErr error
	timeout := baseTimeout

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			metrics.RPCRetries.WithLabelValues(method).Inc()
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		resp, err := do(attemptCtx, factory())
		cancel()

		if err == nil {
			return resp, nil
		}
		lastErr = err
		timeout *= 2
	}

	return zero, percolerrors.WrapTransport(lastErr, maxAttempts)
}
