package offchain

import "context"

// Unavailable returns an Externalities whose operations all fail with
// ErrUnavailable. It is the backend wired into execution contexts
// which forbid side effects; query-style operations degrade to their
// empty results per the interface contract.
func Unavailable() Externalities {
	return unavailable{}
}

type unavailable struct{}

func (unavailable) SubmitResult(ctx context.Context, result []byte) error {
	return ErrUnavailable
}

func (unavailable) Timestamp(ctx context.Context) (Timestamp, error) {
	return 0, ErrUnavailable
}

func (unavailable) HTTPRequestStart(ctx context.Context, method, uri string, meta []byte) (RequestID, error) {
	return 0, ErrUnavailable
}

func (unavailable) HTTPRequestAddHeader(ctx context.Context, id RequestID, name, value string) error {
	return ErrUnavailable
}

func (unavailable) HTTPRequestWriteBody(ctx context.Context, id RequestID, chunk []byte, deadline *Timestamp) error {
	return ErrUnavailable
}

func (unavailable) HTTPResponseWait(ctx context.Context, ids []RequestID, deadline *Timestamp) []RequestStatus {
	statuses := make([]RequestStatus, len(ids))
	for i := range statuses {
		statuses[i] = Unknown
	}
	return statuses
}

func (unavailable) HTTPResponseHeaders(ctx context.Context, id RequestID) []Header {
	return nil
}

func (unavailable) HTTPResponseReadBody(ctx context.Context, id RequestID, buf []byte, deadline *Timestamp) (int, error) {
	return 0, ErrUnavailable
}

func (unavailable) Close(ctx context.Context) error {
	return nil
}
