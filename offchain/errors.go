package offchain

import "errors"

var (
	// ErrUnavailable reports that the capability cannot be used in the
	// current execution context.
	ErrUnavailable = errors.New("offchain capability unavailable")

	// ErrUnknownRequest reports a mutating operation on a request
	// identifier the host has no record of.
	ErrUnknownRequest = errors.New("unknown http request id")

	// ErrRequestFinalized reports an attempt to mutate a request whose
	// body has already been finalized.
	ErrRequestFinalized = errors.New("http request already finalized")

	// ErrDeadlineExceeded reports that a blocking operation did not
	// complete before the deadline supplied by the caller.
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	// ErrConnectionFailed reports that the remote peer closed or
	// errored before producing the expected data.
	ErrConnectionFailed = errors.New("connection failed")
)
