package host

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Submitter consumes result payloads handed to SubmitResult.
//
// Accepting a payload means accepted for consideration, not included;
// validation and ordering of accepted payloads belong to the consuming
// pipeline.
type Submitter interface {
	Submit(ctx context.Context, result []byte) error
}

// Pool is an in-memory Submitter which queues accepted payloads until
// a consumer drains them. It is the reference collaborator used in
// tests and standalone hosts; production pipelines provide their own
// Submitter.
type Pool struct {
	mutex   sync.Mutex
	entries []PoolEntry
}

// PoolEntry is one accepted payload, tagged with a unique submission
// identifier.
type PoolEntry struct {
	ID     uuid.UUID
	Result []byte
}

var _ Submitter = (*Pool)(nil)

func (p *Pool) Submit(ctx context.Context, result []byte) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.entries = append(p.entries, PoolEntry{
		ID:     uuid.New(),
		Result: result,
	})
	return nil
}

// Drain returns the queued entries in submission order and empties the
// pool.
func (p *Pool) Drain() []PoolEntry {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	entries := p.entries
	p.entries = nil
	return entries
}

// Len returns the number of queued entries.
func (p *Pool) Len() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.entries)
}
