// Package host implements the production offchain.Externalities
// backend: HTTP requests are performed with net/http on background
// goroutines while the worker-facing surface stays synchronous and
// deadline-bound.
package host

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/stealthrocket/offcraft/offchain"
)

var errTooManyRequests = errors.New("too many in-flight http requests")

// API is an offchain.Externalities backed by a real HTTP client.
//
// Each worker session owns one API instance; the interface does not
// need to support concurrent workers, but the API serializes access to
// its request table anyway since completions arrive from background
// goroutines.
type API struct {
	client    *http.Client
	limiter   *rate.Limiter
	sem       *semaphore.Weighted
	submitter Submitter
	now       func() time.Time

	maxResponseSize int64
	decompress      bool

	mutex    sync.Mutex
	lastID   offchain.RequestID
	requests map[offchain.RequestID]*record
	group    sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// record is the host-side state of one request identifier.
//
// The building fields are guarded by the API mutex until finalization
// hands the record to its dispatch goroutine; the terminal fields are
// written by that goroutine before done is closed and are read-only
// afterwards. The read cursor is guarded by the API mutex.
type record struct {
	method    string
	uri       string
	meta      []byte // reserved extension field, preserved verbatim
	header    http.Header
	body      bytes.Buffer
	finalized bool

	done        chan struct{}
	status      offchain.RequestStatus
	err         error
	respHeaders []offchain.Header
	respBody    []byte
	cursor      int
}

var _ offchain.Externalities = (*API)(nil)

// NewAPI constructs an API from config. The submitter receives
// payloads handed to SubmitResult; a nil submitter makes SubmitResult
// report ErrUnavailable.
func NewAPI(config *Config, submitter Submitter) (*API, error) {
	transport, err := config.newTransport()
	if err != nil {
		return nil, err
	}
	a := &API{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.RequestTimeout.Std(),
		},
		sem:             semaphore.NewWeighted(config.MaxConcurrentRequests),
		submitter:       submitter,
		now:             time.Now,
		maxResponseSize: config.MaxResponseSize,
		decompress:      !config.DisableCompression,
		requests:        map[offchain.RequestID]*record{},
	}
	if config.RequestsPerSecond > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a, nil
}

func (a *API) SubmitResult(ctx context.Context, result []byte) error {
	if a.submitter == nil {
		return offchain.ErrUnavailable
	}
	return a.submitter.Submit(ctx, append([]byte(nil), result...))
}

func (a *API) Timestamp(ctx context.Context) (offchain.Timestamp, error) {
	return offchain.TimestampFromTime(a.now()), nil
}

func (a *API) HTTPRequestStart(ctx context.Context, method, uri string, meta []byte) (offchain.RequestID, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if len(a.requests) > math.MaxUint16 {
		return 0, errTooManyRequests
	}
	id := a.lastID
	for {
		id++
		if _, used := a.requests[id]; !used {
			break
		}
	}
	a.lastID = id

	a.requests[id] = &record{
		method: method,
		uri:    uri,
		meta:   append([]byte(nil), meta...),
		header: http.Header{},
		done:   make(chan struct{}),
	}
	return id, nil
}

func (a *API) HTTPRequestAddHeader(ctx context.Context, id offchain.RequestID, name, value string) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	rec, ok := a.requests[id]
	if !ok {
		return offchain.ErrUnknownRequest
	}
	if rec.finalized {
		return offchain.ErrRequestFinalized
	}
	rec.header.Add(name, value)
	return nil
}

func (a *API) HTTPRequestWriteBody(ctx context.Context, id offchain.RequestID, chunk []byte, deadline *offchain.Timestamp) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	rec, ok := a.requests[id]
	if !ok {
		return offchain.ErrUnknownRequest
	}
	if rec.finalized {
		return offchain.ErrRequestFinalized
	}
	if deadline != nil && offchain.TimestampFromTime(a.now()) > *deadline {
		return offchain.ErrDeadlineExceeded
	}
	if len(chunk) > 0 {
		rec.body.Write(chunk)
		return nil
	}

	// An empty chunk finalizes the request: the record is handed to a
	// dispatch goroutine and no further mutation is permitted.
	rec.finalized = true
	a.group.Add(1)
	go a.dispatch(rec)
	return nil
}

// HTTPResponseWait reports one status per identifier, blocking up to
// the deadline. Cancellation of ctx is treated like deadline expiry:
// the wait stops and unfinished requests report DeadlineReached, even
// when the caller passed a nil deadline.
func (a *API) HTTPResponseWait(ctx context.Context, ids []offchain.RequestID, deadline *offchain.Timestamp) []offchain.RequestStatus {
	var expired bool
	var timerC <-chan time.Time
	if deadline != nil {
		wait := a.until(*deadline)
		if wait <= 0 {
			expired = true
		} else {
			timer := time.NewTimer(wait)
			defer timer.Stop()
			timerC = timer.C
		}
	}

	statuses := make([]offchain.RequestStatus, len(ids))
	for i, id := range ids {
		a.mutex.Lock()
		rec, ok := a.requests[id]
		a.mutex.Unlock()
		if !ok {
			statuses[i] = offchain.Unknown
			continue
		}
		if !expired {
			select {
			case <-rec.done:
			case <-timerC:
				expired = true
			case <-ctx.Done():
				expired = true
			}
		}
		select {
		case <-rec.done:
			statuses[i] = rec.status
		default:
			statuses[i] = offchain.DeadlineReached
		}
	}
	return statuses
}

func (a *API) HTTPResponseHeaders(ctx context.Context, id offchain.RequestID) []offchain.Header {
	a.mutex.Lock()
	rec, ok := a.requests[id]
	a.mutex.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-rec.done:
	default:
		return nil
	}
	if rec.err != nil {
		return nil
	}
	return rec.respHeaders
}

func (a *API) HTTPResponseReadBody(ctx context.Context, id offchain.RequestID, buf []byte, deadline *offchain.Timestamp) (int, error) {
	a.mutex.Lock()
	rec, ok := a.requests[id]
	a.mutex.Unlock()
	if !ok {
		return 0, offchain.ErrUnknownRequest
	}
	if err := a.awaitRequest(ctx, rec, deadline); err != nil {
		return 0, err
	}
	if rec.err != nil {
		return 0, rec.err
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()
	if rec.cursor == len(rec.respBody) {
		// End of body; the identifier is reclaimed and may be reused.
		delete(a.requests, id)
		return 0, nil
	}
	n := copy(buf, rec.respBody[rec.cursor:])
	rec.cursor += n
	return n, nil
}

func (a *API) Close(ctx context.Context) error {
	a.cancel()
	a.group.Wait()

	a.mutex.Lock()
	defer a.mutex.Unlock()
	for id := range a.requests {
		delete(a.requests, id)
	}
	a.client.CloseIdleConnections()
	return nil
}

// until returns the wall-clock time remaining before deadline, zero or
// negative when it already elapsed.
func (a *API) until(deadline offchain.Timestamp) time.Duration {
	return deadline.Diff(offchain.TimestampFromTime(a.now())).Std()
}

// awaitRequest blocks until the record reaches a terminal state, the
// deadline elapses, or ctx is canceled.
func (a *API) awaitRequest(ctx context.Context, rec *record, deadline *offchain.Timestamp) error {
	var timerC <-chan time.Time
	if deadline != nil {
		wait := a.until(*deadline)
		if wait <= 0 {
			select {
			case <-rec.done:
				return nil
			default:
				return offchain.ErrDeadlineExceeded
			}
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		timerC = timer.C
	}
	select {
	case <-rec.done:
		return nil
	case <-timerC:
		return offchain.ErrDeadlineExceeded
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch performs the HTTP request of a finalized record and
// publishes its terminal state.
func (a *API) dispatch(rec *record) {
	defer a.group.Done()

	if a.limiter != nil {
		if err := a.limiter.Wait(a.ctx); err != nil {
			a.complete(rec, offchain.Timeout, offchain.ErrConnectionFailed, nil, nil)
			return
		}
	}
	if err := a.sem.Acquire(a.ctx, 1); err != nil {
		a.complete(rec, offchain.Timeout, offchain.ErrConnectionFailed, nil, nil)
		return
	}
	defer a.sem.Release(1)

	req, err := http.NewRequestWithContext(a.ctx, rec.method, rec.uri, bytes.NewReader(rec.body.Bytes()))
	if err != nil {
		a.complete(rec, offchain.Timeout, offchain.ErrConnectionFailed, nil, nil)
		return
	}
	for name, values := range rec.header {
		req.Header[name] = values
	}
	if a.decompress && req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip")
	}

	res, err := a.client.Do(req)
	if err != nil {
		a.complete(rec, offchain.Timeout, offchain.ErrConnectionFailed, nil, nil)
		return
	}
	defer res.Body.Close()

	status, ok := offchain.ParseRequestStatus(uint16(res.StatusCode))
	if !ok {
		a.complete(rec, offchain.Timeout, offchain.ErrConnectionFailed, nil, nil)
		return
	}

	var body io.Reader = io.LimitReader(res.Body, a.maxResponseSize)
	if a.decompress && res.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			a.complete(rec, offchain.Timeout, offchain.ErrConnectionFailed, nil, nil)
			return
		}
		defer gz.Close()
		body = io.LimitReader(gz, a.maxResponseSize)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		a.complete(rec, offchain.Timeout, offchain.ErrConnectionFailed, nil, nil)
		return
	}

	a.complete(rec, status, nil, responseHeaders(res.Header), data)
}

// complete publishes the terminal state of a record; done is closed
// exactly once, after every terminal field is in place.
func (a *API) complete(rec *record, status offchain.RequestStatus, err error, headers []offchain.Header, body []byte) {
	rec.status = status
	rec.err = err
	rec.respHeaders = headers
	rec.respBody = body
	close(rec.done)
}

// responseHeaders flattens an http.Header to ordered pairs. net/http
// does not retain the wire order across distinct names, so names are
// emitted in sorted order with per-name values kept in arrival order.
func responseHeaders(h http.Header) []offchain.Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make([]offchain.Header, 0, len(h))
	for _, name := range names {
		for _, value := range h[name] {
			headers = append(headers, offchain.Header{
				Name:  []byte(name),
				Value: []byte(value),
			})
		}
	}
	return headers
}
