// Package offchain defines the capability surface through which a
// deterministic, sandboxed worker performs non-deterministic external
// actions: issuing HTTP requests, reading wall-clock time, and
// submitting results back to the host.
//
// Workers never open sockets or read the system clock directly; every
// side effect goes through an implementation of Externalities supplied
// by the hosting environment. Side effects observed through the
// interface never become part of the worker's own deterministic state.
package offchain

import "context"

// Header is a response header pair, raw bytes with no implied charset.
type Header struct {
	Name  []byte
	Value []byte
}

// Externalities is the single point of contact between worker logic
// and host resources.
//
// All operations are synchronous from the worker's point of view.
// HTTPRequestWriteBody, HTTPResponseWait and HTTPResponseReadBody may
// block the calling thread up to the supplied deadline, or
// indefinitely when the deadline is nil; a nil deadline is an explicit
// choice to block forever, not a default. The worker owns the waiting
// policy, the host never substitutes an ambient timeout for a deadline
// the worker did not supply.
//
// One worker occupies one logical thread; implementations are not
// required to support concurrent callers.
type Externalities interface {
	// SubmitResult hands an opaque, already-encoded result payload to
	// the host for eventual inclusion by the consuming pipeline.
	// Success means accepted for consideration, not included. The only
	// failure mode is ErrUnavailable, reported when the capability
	// cannot be used in the current execution context.
	SubmitResult(ctx context.Context, result []byte) error

	// Timestamp returns the current wall-clock time. The only failure
	// mode is ErrUnavailable.
	Timestamp(ctx context.Context) (Timestamp, error)

	// HTTPRequestStart begins a new request and returns an identifier
	// distinct from every other currently live identifier. The meta
	// argument is a reserved, opaquely-encoded extension field which
	// implementations must preserve and may ignore.
	HTTPRequestStart(ctx context.Context, method, uri string, meta []byte) (RequestID, error)

	// HTTPRequestAddHeader appends a header to a request. Headers can
	// only be added before the request body is finalized; afterwards,
	// and on unknown identifiers, the call fails.
	HTTPRequestAddHeader(ctx context.Context, id RequestID, name, value string) error

	// HTTPRequestWriteBody appends a chunk of the request body.
	// Writing a zero-length chunk finalizes the request; no further
	// header or body mutation is permitted afterwards. A nil deadline
	// blocks until the write completes; otherwise the call fails with
	// ErrDeadlineExceeded once the wall clock passes the deadline.
	HTTPRequestWriteBody(ctx context.Context, id RequestID, chunk []byte, deadline *Timestamp) error

	// HTTPResponseWait blocks until every identifier in ids reaches a
	// terminal status or the deadline elapses, and reports one status
	// per identifier, preserving the length and order of the input.
	// Identifiers unknown to the host resolve to Unknown rather than
	// failing the call; the call itself never fails and never returns
	// a partial-length result. Waiting is idempotent with respect to
	// status observation.
	HTTPResponseWait(ctx context.Context, ids []RequestID, deadline *Timestamp) []RequestStatus

	// HTTPResponseHeaders returns the response headers of a completed
	// request in the order they were received. Requests that are not
	// ready yet, and unknown identifiers, yield an empty sequence;
	// absence of data is not an error.
	HTTPResponseHeaders(ctx context.Context, id RequestID) []Header

	// HTTPResponseReadBody reads up to len(buf) bytes of the response
	// body into buf and returns the number of bytes read; zero signals
	// the end of the body. The call fails with ErrDeadlineExceeded if
	// the deadline elapses first, or ErrConnectionFailed if the remote
	// peer closed or errored before producing the expected data. A nil
	// deadline blocks indefinitely.
	HTTPResponseReadBody(ctx context.Context, id RequestID, buf []byte, deadline *Timestamp) (int, error)

	// Close releases host resources associated with the capability.
	Close(ctx context.Context) error
}
