package offchaintest_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stealthrocket/offcraft/internal/assert"
	"github.com/stealthrocket/offcraft/offchain"
	"github.com/stealthrocket/offcraft/offchain/offchaintest"
)

func TestRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	backend := offchaintest.New()
	backend.Respond("POST", "http://example.com/submit", offchaintest.Response{
		Status: 200,
		Headers: []offchain.Header{
			{Name: []byte("X-Request"), Value: []byte("accepted")},
		},
		Body: []byte("0123456789"),
	})

	id, err := backend.HTTPRequestStart(ctx, "POST", "http://example.com/submit", nil)
	assert.OK(t, err)
	assert.OK(t, backend.HTTPRequestAddHeader(ctx, id, "Content-Type", "application/json"))
	assert.OK(t, backend.HTTPRequestWriteBody(ctx, id, []byte(`{"k":1}`), nil))
	assert.OK(t, backend.HTTPRequestWriteBody(ctx, id, nil, nil))

	assert.EqualAll(t,
		backend.HTTPResponseWait(ctx, []offchain.RequestID{id}, nil),
		[]offchain.RequestStatus{offchain.Finished(200)})

	headers := backend.HTTPResponseHeaders(ctx, id)
	assert.Equal(t, len(headers), 1)
	assert.Equal(t, string(headers[0].Name), "X-Request")
	assert.Equal(t, string(headers[0].Value), "accepted")

	var body bytes.Buffer
	buf := make([]byte, 3)
	for {
		n, err := backend.HTTPResponseReadBody(ctx, id, buf, nil)
		assert.OK(t, err)
		if n == 0 {
			break
		}
		body.Write(buf[:n])
	}
	assert.Equal(t, body.String(), "0123456789")
}

func TestFinalizationLocksRequest(t *testing.T) {
	ctx := context.Background()
	backend := offchaintest.New()

	id, err := backend.HTTPRequestStart(ctx, "GET", "http://example.com/", nil)
	assert.OK(t, err)
	assert.OK(t, backend.HTTPRequestWriteBody(ctx, id, nil, nil))

	assert.Error(t, backend.HTTPRequestAddHeader(ctx, id, "X", "y"), offchain.ErrRequestFinalized)
	assert.Error(t, backend.HTTPRequestWriteBody(ctx, id, []byte("late"), nil), offchain.ErrRequestFinalized)
}

func TestUnknownRequest(t *testing.T) {
	ctx := context.Background()
	backend := offchaintest.New()

	assert.Error(t, backend.HTTPRequestAddHeader(ctx, 42, "X", "y"), offchain.ErrUnknownRequest)
	assert.Error(t, backend.HTTPRequestWriteBody(ctx, 42, []byte("x"), nil), offchain.ErrUnknownRequest)
	assert.Equal(t, len(backend.HTTPResponseHeaders(ctx, 42)), 0)

	_, err := backend.HTTPResponseReadBody(ctx, 42, make([]byte, 1), nil)
	assert.Error(t, err, offchain.ErrUnknownRequest)
}

func TestWaitPreservesOrderAndLength(t *testing.T) {
	ctx := context.Background()
	backend := offchaintest.New()
	backend.Respond("GET", "http://example.com/a", offchaintest.Response{Status: 201})

	a, err := backend.HTTPRequestStart(ctx, "GET", "http://example.com/a", nil)
	assert.OK(t, err)
	assert.OK(t, backend.HTTPRequestWriteBody(ctx, a, nil, nil))

	b, err := backend.HTTPRequestStart(ctx, "GET", "http://example.com/b", nil)
	assert.OK(t, err)

	assert.EqualAll(t,
		backend.HTTPResponseWait(ctx, []offchain.RequestID{9999, a, b}, nil),
		[]offchain.RequestStatus{offchain.Unknown, offchain.Finished(201), offchain.DeadlineReached})
}

func TestWriteBodyDeadline(t *testing.T) {
	ctx := context.Background()
	backend := offchaintest.New()
	backend.SetNow(offchain.TimestampFromUnixMillis(1000))

	id, err := backend.HTTPRequestStart(ctx, "GET", "http://example.com/", nil)
	assert.OK(t, err)

	past := offchain.TimestampFromUnixMillis(500)
	assert.Error(t, backend.HTTPRequestWriteBody(ctx, id, []byte("x"), &past), offchain.ErrDeadlineExceeded)

	// The failed write did not finalize or corrupt the request.
	future := offchain.TimestampFromUnixMillis(2000)
	assert.OK(t, backend.HTTPRequestWriteBody(ctx, id, []byte("x"), &future))
}

func TestUnroutedRequestTimesOut(t *testing.T) {
	ctx := context.Background()
	backend := offchaintest.New()

	id, err := backend.HTTPRequestStart(ctx, "GET", "http://example.com/nowhere", nil)
	assert.OK(t, err)
	assert.OK(t, backend.HTTPRequestWriteBody(ctx, id, nil, nil))

	assert.EqualAll(t,
		backend.HTTPResponseWait(ctx, []offchain.RequestID{id}, nil),
		[]offchain.RequestStatus{offchain.Timeout})

	_, err = backend.HTTPResponseReadBody(ctx, id, make([]byte, 1), nil)
	assert.Error(t, err, offchain.ErrConnectionFailed)
}

func TestRequestIDReclaimedAfterFinalRead(t *testing.T) {
	ctx := context.Background()
	backend := offchaintest.New()
	backend.Respond("GET", "http://example.com/", offchaintest.Response{Status: 200, Body: []byte("ok")})

	id, err := backend.HTTPRequestStart(ctx, "GET", "http://example.com/", nil)
	assert.OK(t, err)
	assert.OK(t, backend.HTTPRequestWriteBody(ctx, id, nil, nil))

	buf := make([]byte, 16)
	n, err := backend.HTTPResponseReadBody(ctx, id, buf, nil)
	assert.OK(t, err)
	assert.Equal(t, string(buf[:n]), "ok")

	n, err = backend.HTTPResponseReadBody(ctx, id, buf, nil)
	assert.OK(t, err)
	assert.Equal(t, n, 0)

	// The identifier is no longer observable once fully consumed.
	assert.EqualAll(t,
		backend.HTTPResponseWait(ctx, []offchain.RequestID{id}, nil),
		[]offchain.RequestStatus{offchain.Unknown})
}

func TestSubmitResult(t *testing.T) {
	ctx := context.Background()
	backend := offchaintest.New()

	assert.OK(t, backend.SubmitResult(ctx, []byte("first")))
	assert.OK(t, backend.SubmitResult(ctx, []byte("second")))

	results := backend.Results()
	assert.Equal(t, len(results), 2)
	assert.Equal(t, string(results[0]), "first")
	assert.Equal(t, string(results[1]), "second")
}

func TestClock(t *testing.T) {
	ctx := context.Background()
	backend := offchaintest.New()
	backend.SetNow(offchain.TimestampFromUnixMillis(1000))
	backend.Advance(offchain.DurationFromMillis(234))

	now, err := backend.Timestamp(ctx)
	assert.OK(t, err)
	assert.Equal(t, now, offchain.TimestampFromUnixMillis(1234))
}
