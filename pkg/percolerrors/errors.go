// Package percolerrors defines the typed failure kinds the Percolator
// protocol can surface (§7 of the spec: Transport, WriteConflict, IsLocked,
// UnknownOutcome, precondition violations), in the small exported-struct
// style the host engine uses for its own domain errors (see the
// TableNotFoundError/DuplicateKeyError family it replaces), but wrapped at
// component boundaries with github.com/cockroachdb/errors so every error the
// client ultimately observes carries a stack trace and still matches with
// errors.As.
package percolerrors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// IsLockedError reports a contending Lock row blocking a Get or Prewrite.
type IsLockedError struct {
	Ts      uint64 // start_ts of the lock holder
	Primary []byte // primary key recorded in the lock, when known
}

func (e *IsLockedError) Error() string {
	return fmt.Sprintf("key is locked by start_ts=%d", e.Ts)
}

// WriteConflictError reports that another transaction committed on this key
// after our start_ts; the client must abort.
type WriteConflictError struct {
	Ts uint64 // commit_ts of the conflicting write
}

func (e *WriteConflictError) Error() string {
	return fmt.Sprintf("write conflict: key committed at ts=%d", e.Ts)
}

// UnknownOutcomeError wraps a transport failure on the primary's Commit call
// after retries are exhausted. The transaction's final state is ambiguous to
// the caller until a future reader recovers the lock (§7.4).
type UnknownOutcomeError struct {
	Cause error
}

func (e *UnknownOutcomeError) Error() string {
	return fmt.Sprintf("commit outcome unknown: primary commit did not confirm: %v", e.Cause)
}

func (e *UnknownOutcomeError) Unwrap() error { return e.Cause }

// PreconditionError marks a protocol precondition violation on the client
// (double begin, commit without begin, ...). These are programmer errors;
// the caller is expected to panic rather than recover from them (§7.5).
type PreconditionError struct {
	Msg string
}

func (e *PreconditionError) Error() string { return e.Msg }

// AsLocked extracts an *IsLockedError from err, following wrapped causes.
func AsLocked(err error) (*IsLockedError, bool) {
	var locked *IsLockedError
	if errors.As(err, &locked) {
		return locked, true
	}
	return nil, false
}

// AsWriteConflict extracts a *WriteConflictError from err, following wrapped causes.
func AsWriteConflict(err error) (*WriteConflictError, bool) {
	var conflict *WriteConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}

// WrapTransport marks a transport-layer failure (timeout or drop) with a
// stack trace at the point the retry envelope gives up, matching §7.1.
func WrapTransport(err error, attempts int) error {
	return errors.Wrapf(err, "transport: exhausted %d attempt(s)", attempts)
}

// Precondition panics with a PreconditionError — used for client-state
// violations the spec declares are programmer errors that abort the process.
func Precondition(format string, args ...interface{}) {
	panic(&PreconditionError{Msg: fmt.Sprintf(format, args...)})
}

// AssertInvariant panics via cockroachdb/errors' assertion-failure helper
// when a server-side invariant the spec declares "must always hold" (§3) is
// violated — these indicate a bug in this module, not a client misuse.
func AssertInvariant(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(errors.AssertionFailedf(format, args...))
	}
}
