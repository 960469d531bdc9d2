package offchain

import "fmt"

// RequestID is an opaque handle for an in-flight HTTP request.
//
// Identifiers are assigned by the host when a request is started and
// are unique among requests the worker can still observe; once a
// request has been fully consumed (or abandoned past its deadline and
// reclaimed) the host is free to reuse its identifier. Workers must
// never fabricate identifiers.
type RequestID uint16

// RequestStatus is the status reported for one HTTP request by
// HTTPResponseWait.
//
// The numeric value is also the wire representation exchanged between
// host and worker: codes below 100 are reserved for internal states
// (only 0, 10 and 20 are assigned today), codes in the 100-999 range
// mean the request finished with that HTTP status code, and every
// other value is invalid.
type RequestStatus uint16

const (
	// Unknown reports that the host has no record of the identifier;
	// it was either never issued or has already been reclaimed.
	Unknown RequestStatus = 0

	// DeadlineReached reports that the wait deadline elapsed before
	// the request finished.
	DeadlineReached RequestStatus = 10

	// Timeout reports that the request exceeded a host-side timeout,
	// independent of any deadline supplied by the worker.
	Timeout RequestStatus = 20
)

const (
	minStatusCode = 100
	maxStatusCode = 999
)

// Finished constructs the status of a request which completed with the
// given HTTP status code.
func Finished(code uint16) RequestStatus {
	return RequestStatus(code)
}

// ParseRequestStatus validates a raw status code received over the
// wire. Codes outside the reserved set and the 100-999 range are
// rejected, never coerced.
func ParseRequestStatus(code uint16) (RequestStatus, bool) {
	switch {
	case code == uint16(Unknown), code == uint16(DeadlineReached), code == uint16(Timeout):
		return RequestStatus(code), true
	case code >= minStatusCode && code <= maxStatusCode:
		return RequestStatus(code), true
	default:
		return 0, false
	}
}

// StatusCode returns the HTTP status code of a finished request, or
// false if the status does not represent a finished request.
func (s RequestStatus) StatusCode() (uint16, bool) {
	if s >= minStatusCode && s <= maxStatusCode {
		return uint16(s), true
	}
	return 0, false
}

func (s RequestStatus) String() string {
	switch s {
	case Unknown:
		return "Unknown"
	case DeadlineReached:
		return "DeadlineReached"
	case Timeout:
		return "Timeout"
	}
	if code, ok := s.StatusCode(); ok {
		return fmt.Sprintf("Finished(%d)", code)
	}
	return fmt.Sprintf("RequestStatus(%d)", uint16(s))
}
