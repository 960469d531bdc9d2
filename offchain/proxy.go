package offchain

import "context"

// Proxy wraps an owned Externalities and forwards every operation to
// it unchanged: same arguments, same return values, same errors. It
// introduces no buffering, batching or reordering.
//
// The proxy exists so ownership of a capability can cross abstraction
// boundaries (stored in a struct, passed by value) without fixing the
// concrete backend type; any Externalities can be placed behind it.
type Proxy struct {
	ext Externalities
}

var _ Externalities = (*Proxy)(nil)

// NewProxy wraps ext in a Proxy.
func NewProxy(ext Externalities) *Proxy {
	return &Proxy{ext: ext}
}

func (p *Proxy) SubmitResult(ctx context.Context, result []byte) error {
	return p.ext.SubmitResult(ctx, result)
}

func (p *Proxy) Timestamp(ctx context.Context) (Timestamp, error) {
	return p.ext.Timestamp(ctx)
}

func (p *Proxy) HTTPRequestStart(ctx context.Context, method, uri string, meta []byte) (RequestID, error) {
	return p.ext.HTTPRequestStart(ctx, method, uri, meta)
}

func (p *Proxy) HTTPRequestAddHeader(ctx context.Context, id RequestID, name, value string) error {
	return p.ext.HTTPRequestAddHeader(ctx, id, name, value)
}

func (p *Proxy) HTTPRequestWriteBody(ctx context.Context, id RequestID, chunk []byte, deadline *Timestamp) error {
	return p.ext.HTTPRequestWriteBody(ctx, id, chunk, deadline)
}

func (p *Proxy) HTTPResponseWait(ctx context.Context, ids []RequestID, deadline *Timestamp) []RequestStatus {
	return p.ext.HTTPResponseWait(ctx, ids, deadline)
}

func (p *Proxy) HTTPResponseHeaders(ctx context.Context, id RequestID) []Header {
	return p.ext.HTTPResponseHeaders(ctx, id)
}

func (p *Proxy) HTTPResponseReadBody(ctx context.Context, id RequestID, buf []byte, deadline *Timestamp) (int, error) {
	return p.ext.HTTPResponseReadBody(ctx, id, buf, deadline)
}

func (p *Proxy) Close(ctx context.Context) error {
	return p.ext.Close(ctx)
}
