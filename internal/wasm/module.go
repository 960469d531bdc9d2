// Package wasm exposes the offchain capability to WebAssembly guests
// as a wazergo host module.
//
// The wire representation follows the capability contract: request
// identifiers travel as 16-bit values (carried in u32 slots), statuses
// as their u16 encoding, deadlines as i64 unix-milliseconds with
// negative values meaning "no deadline", and failures as negative i32
// codes.
package wasm

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/stealthrocket/wazergo"
	. "github.com/stealthrocket/wazergo/types"

	"github.com/stealthrocket/offcraft/offchain"
)

// HostModuleName is the import name guests link against.
const HostModuleName = "offcraft_offchain"

// HostModule is the declaration of the capability host module.
var HostModule wazergo.HostModule[*Module] = functions{
	"submit_result":           wazergo.F1((*Module).submitResult),
	"timestamp":               wazergo.F1((*Module).timestamp),
	"http_request_start":      wazergo.F4((*Module).httpRequestStart),
	"http_request_add_header": wazergo.F3((*Module).httpRequestAddHeader),
	"http_request_write_body": wazergo.F3((*Module).httpRequestWriteBody),
	"http_response_wait":      wazergo.F3((*Module).httpResponseWait),
	"http_response_headers":   wazergo.F2((*Module).httpResponseHeaders),
	"http_response_read_body": wazergo.F3((*Module).httpResponseReadBody),
}

type functions wazergo.Functions[*Module]

func (f functions) Name() string {
	return HostModuleName
}

func (f functions) Functions() wazergo.Functions[*Module] {
	return (wazergo.Functions[*Module])(f)
}

func (f functions) Instantiate(ctx context.Context, opts ...Option) (*Module, error) {
	mod := &Module{
		ext: offchain.Unavailable(),
	}
	wazergo.Configure(mod, opts...)
	return mod, nil
}

type Option = wazergo.Option[*Module]

// WithExternalities binds the module to a capability backend. Modules
// constructed without it run with the unavailable backend, matching
// execution contexts which forbid side effects.
func WithExternalities(ext offchain.Externalities) Option {
	return wazergo.OptionFunc(func(m *Module) { m.ext = ext })
}

// Module is one instantiation of the capability module; it owns its
// backend and closes it when the guest goes away.
type Module struct {
	ext offchain.Externalities
}

func (m *Module) Close(ctx context.Context) error {
	return m.ext.Close(ctx)
}

// Negative i32 codes returned to the guest in place of a result.
const (
	errUnavailable      Int32 = -1
	errUnknownRequest   Int32 = -2
	errRequestFinalized Int32 = -3
	errDeadlineExceeded Int32 = -4
	errConnectionFailed Int32 = -5
	errInvalid          Int32 = -6
)

func errorCode(err error) Int32 {
	switch {
	case errors.Is(err, offchain.ErrUnavailable):
		return errUnavailable
	case errors.Is(err, offchain.ErrUnknownRequest):
		return errUnknownRequest
	case errors.Is(err, offchain.ErrRequestFinalized):
		return errRequestFinalized
	case errors.Is(err, offchain.ErrDeadlineExceeded):
		return errDeadlineExceeded
	case errors.Is(err, offchain.ErrConnectionFailed):
		return errConnectionFailed
	default:
		return errInvalid
	}
}

// deadlineFromMillis decodes the wire form of an optional deadline.
func deadlineFromMillis(millis Int64) *offchain.Timestamp {
	if millis < 0 {
		return nil
	}
	t := offchain.TimestampFromUnixMillis(uint64(millis))
	return &t
}

func (m *Module) submitResult(ctx context.Context, result Bytes) Int32 {
	if err := m.ext.SubmitResult(ctx, result); err != nil {
		return errorCode(err)
	}
	return 0
}

func (m *Module) timestamp(ctx context.Context, now Pointer[Uint64]) Int32 {
	t, err := m.ext.Timestamp(ctx)
	if err != nil {
		return errorCode(err)
	}
	now.Store(Uint64(t.UnixMillis()))
	return 0
}

func (m *Module) httpRequestStart(ctx context.Context, method, uri, meta Bytes, id Pointer[Uint32]) Int32 {
	requestID, err := m.ext.HTTPRequestStart(ctx, string(method), string(uri), meta)
	if err != nil {
		return errorCode(err)
	}
	id.Store(Uint32(requestID))
	return 0
}

func (m *Module) httpRequestAddHeader(ctx context.Context, id Uint32, name, value Bytes) Int32 {
	err := m.ext.HTTPRequestAddHeader(ctx, offchain.RequestID(id), string(name), string(value))
	if err != nil {
		return errorCode(err)
	}
	return 0
}

func (m *Module) httpRequestWriteBody(ctx context.Context, id Uint32, chunk Bytes, deadline Int64) Int32 {
	err := m.ext.HTTPRequestWriteBody(ctx, offchain.RequestID(id), chunk, deadlineFromMillis(deadline))
	if err != nil {
		return errorCode(err)
	}
	return 0
}

func (m *Module) httpResponseWait(ctx context.Context, ids Array[uint32], statuses Array[uint32], deadline Int64) Int32 {
	if len(statuses) < len(ids) {
		return errInvalid
	}
	requestIDs := make([]offchain.RequestID, len(ids))
	for i, id := range ids {
		requestIDs[i] = offchain.RequestID(id)
	}
	for i, status := range m.ext.HTTPResponseWait(ctx, requestIDs, deadlineFromMillis(deadline)) {
		statuses[i] = uint32(status)
	}
	return 0
}

// httpResponseHeaders writes the encoded response headers into buf and
// returns the encoded size. When buf is too small nothing is written
// and the guest is expected to retry with a buffer of the returned
// size.
func (m *Module) httpResponseHeaders(ctx context.Context, id Uint32, buf Bytes) Int32 {
	encoded := encodeHeaders(m.ext.HTTPResponseHeaders(ctx, offchain.RequestID(id)))
	if len(buf) >= len(encoded) {
		copy(buf, encoded)
	}
	return Int32(len(encoded))
}

func (m *Module) httpResponseReadBody(ctx context.Context, id Uint32, buf Bytes, deadline Int64) Int32 {
	n, err := m.ext.HTTPResponseReadBody(ctx, offchain.RequestID(id), buf, deadlineFromMillis(deadline))
	if err != nil {
		return errorCode(err)
	}
	return Int32(n)
}

// encodeHeaders flattens header pairs to the wire form: for each pair,
// a little-endian u32 name length, the name bytes, a u32 value length,
// then the value bytes.
func encodeHeaders(headers []offchain.Header) []byte {
	size := 0
	for _, h := range headers {
		size += 8 + len(h.Name) + len(h.Value)
	}
	encoded := make([]byte, 0, size)
	for _, h := range headers {
		encoded = binary.LittleEndian.AppendUint32(encoded, uint32(len(h.Name)))
		encoded = append(encoded, h.Name...)
		encoded = binary.LittleEndian.AppendUint32(encoded, uint32(len(h.Value)))
		encoded = append(encoded, h.Value...)
	}
	return encoded
}
