package persist

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Adapter is the contract a durable backend implements. All methods must
// be safe for concurrent use.
type Adapter interface {
	// PutEvent durably persists one record.
	PutEvent(ctx context.Context, rec Record) error
	// AllEvents returns every durable record; order is not guaranteed.
	// Called once at hydration.
	AllEvents(ctx context.Context) ([]Record, error)
	// Reset removes all durable records, mirroring the log's reset.
	Reset(ctx context.Context) error
	// Close releases backend resources the adapter owns.
	Close() error
}

// PersistenceError wraps a backend failure with the operation that hit it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// MemoryAdapter keeps records in process memory. Used by tests and by
// deployments that explicitly accept losing history on restart.
type MemoryAdapter struct {
	mu   sync.Mutex
	recs map[uint64]Record
}

// NewMemoryAdapter returns an empty in-memory adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{recs: map[uint64]Record{}}
}

// PutEvent implements Adapter.
func (m *MemoryAdapter) PutEvent(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.Seq] = rec
	return nil
}

// AllEvents implements Adapter.
func (m *MemoryAdapter) AllEvents(_ context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Reset implements Adapter.
func (m *MemoryAdapter) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = map[uint64]Record{}
	return nil
}

// Close implements Adapter.
func (m *MemoryAdapter) Close() error { return nil }
