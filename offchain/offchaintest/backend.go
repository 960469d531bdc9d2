// Package offchaintest provides a deterministic, in-memory
// implementation of offchain.Externalities for tests.
//
// The backend performs no network I/O and never blocks: responses are
// canned ahead of time with Respond, the clock only moves when the
// test advances it, and requests which could otherwise block forever
// report DeadlineReached instead.
package offchaintest

import (
	"context"
	"sync"

	"github.com/stealthrocket/offcraft/offchain"
)

// Response is a canned response served for a matching request.
type Response struct {
	// Status is the HTTP status code, in the 100-999 range.
	Status uint16
	// Headers are returned in order by HTTPResponseHeaders.
	Headers []offchain.Header
	// Body is the full response body.
	Body []byte
}

// Backend is a deterministic offchain.Externalities.
//
// The zero value is not usable; construct instances with New.
type Backend struct {
	mutex     sync.Mutex
	now       offchain.Timestamp
	lastID    offchain.RequestID
	requests  map[offchain.RequestID]*request
	responses map[string]Response
	results   [][]byte
}

type request struct {
	method    string
	uri       string
	meta      []byte
	headers   []offchain.Header
	body      []byte
	finalized bool

	// set at finalization
	resolved bool
	status   offchain.RequestStatus
	response Response
	cursor   int
}

var _ offchain.Externalities = (*Backend)(nil)

// New constructs an empty Backend with the clock at zero.
func New() *Backend {
	return &Backend{
		requests:  map[offchain.RequestID]*request{},
		responses: map[string]Response{},
	}
}

// Respond registers the response served for requests matching the
// given method and URI. Requests with no matching response resolve to
// the Timeout status.
func (b *Backend) Respond(method, uri string, res Response) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.responses[method+" "+uri] = res
}

// SetNow positions the simulated wall clock.
func (b *Backend) SetNow(now offchain.Timestamp) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.now = now
}

// Advance moves the simulated wall clock forward by d.
func (b *Backend) Advance(d offchain.Duration) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.now = b.now.Add(d)
}

// Results returns the payloads submitted so far, in submission order.
func (b *Backend) Results() [][]byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	results := make([][]byte, len(b.results))
	copy(results, b.results)
	return results
}

func (b *Backend) SubmitResult(ctx context.Context, result []byte) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.results = append(b.results, append([]byte(nil), result...))
	return nil
}

func (b *Backend) Timestamp(ctx context.Context) (offchain.Timestamp, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.now, nil
}

func (b *Backend) HTTPRequestStart(ctx context.Context, method, uri string, meta []byte) (offchain.RequestID, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	id := b.lastID
	for {
		id++
		if _, used := b.requests[id]; !used {
			break
		}
	}
	b.lastID = id

	b.requests[id] = &request{
		method: method,
		uri:    uri,
		meta:   append([]byte(nil), meta...),
	}
	return id, nil
}

func (b *Backend) HTTPRequestAddHeader(ctx context.Context, id offchain.RequestID, name, value string) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	r, ok := b.requests[id]
	if !ok {
		return offchain.ErrUnknownRequest
	}
	if r.finalized {
		return offchain.ErrRequestFinalized
	}
	r.headers = append(r.headers, offchain.Header{
		Name:  []byte(name),
		Value: []byte(value),
	})
	return nil
}

func (b *Backend) HTTPRequestWriteBody(ctx context.Context, id offchain.RequestID, chunk []byte, deadline *offchain.Timestamp) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	r, ok := b.requests[id]
	if !ok {
		return offchain.ErrUnknownRequest
	}
	if r.finalized {
		return offchain.ErrRequestFinalized
	}
	if deadline != nil && b.now > *deadline {
		return offchain.ErrDeadlineExceeded
	}
	if len(chunk) > 0 {
		r.body = append(r.body, chunk...)
		return nil
	}

	r.finalized = true
	r.resolved = true
	if res, ok := b.responses[r.method+" "+r.uri]; ok {
		r.response = res
		r.status = offchain.Finished(res.Status)
	} else {
		r.status = offchain.Timeout
	}
	return nil
}

func (b *Backend) HTTPResponseWait(ctx context.Context, ids []offchain.RequestID, deadline *offchain.Timestamp) []offchain.RequestStatus {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	statuses := make([]offchain.RequestStatus, len(ids))
	for i, id := range ids {
		r, ok := b.requests[id]
		switch {
		case !ok:
			statuses[i] = offchain.Unknown
		case r.resolved:
			statuses[i] = r.status
		default:
			// A request that was never finalized cannot complete; the
			// backend reports DeadlineReached rather than blocking the
			// test forever.
			statuses[i] = offchain.DeadlineReached
		}
	}
	return statuses
}

func (b *Backend) HTTPResponseHeaders(ctx context.Context, id offchain.RequestID) []offchain.Header {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	r, ok := b.requests[id]
	if !ok || !r.resolved {
		return nil
	}
	if _, finished := r.status.StatusCode(); !finished {
		return nil
	}
	return r.response.Headers
}

func (b *Backend) HTTPResponseReadBody(ctx context.Context, id offchain.RequestID, buf []byte, deadline *offchain.Timestamp) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	r, ok := b.requests[id]
	if !ok {
		return 0, offchain.ErrUnknownRequest
	}
	if !r.resolved {
		return 0, offchain.ErrDeadlineExceeded
	}
	if _, finished := r.status.StatusCode(); !finished {
		return 0, offchain.ErrConnectionFailed
	}
	if r.cursor == len(r.response.Body) {
		// End of body; the identifier is reclaimed and may be reused.
		delete(b.requests, id)
		return 0, nil
	}
	n := copy(buf, r.response.Body[r.cursor:])
	r.cursor += n
	return n, nil
}

func (b *Backend) Close(ctx context.Context) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.requests = map[offchain.RequestID]*request{}
	return nil
}
