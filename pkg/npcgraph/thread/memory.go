package thread

import (
	"context"
	"sync"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/turn"
)

// MemoryStore is an in-memory store for tests and single-process demos.
// States are kept in their serialized form so loads never alias a live
// turn. Data is lost when the process exits.
type MemoryStore struct {
	mu         sync.RWMutex
	states     map[string][]byte
	records    map[string][]Record
	maxRecords int
	closed     bool
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryMaxRecords caps the records kept per thread.
func WithMemoryMaxRecords(n int) MemoryOption {
	return func(m *MemoryStore) {
		m.maxRecords = n
	}
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		states:     make(map[string][]byte),
		records:    make(map[string][]Record),
		maxRecords: DefaultMaxRecords,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context, threadID string) (*turn.State, error) {
	data, err := m.LoadRaw(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return turn.Unmarshal(data)
}

// LoadRaw returns the stored bytes for a thread.
func (m *MemoryStore) LoadRaw(_ context.Context, threadID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	data, ok := m.states[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, threadID string, state *turn.State) error {
	data, err := turn.Marshal(state)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.states[threadID] = data
	return nil
}

// AppendRecord implements Store.
func (m *MemoryStore) AppendRecord(_ context.Context, threadID string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	recs := append(m.records[threadID], rec)
	if m.maxRecords > 0 && len(recs) > m.maxRecords {
		recs = append([]Record(nil), recs[len(recs)-m.maxRecords:]...)
	}
	m.records[threadID] = recs
	return nil
}

// Records implements Store.
func (m *MemoryStore) Records(_ context.Context, threadID string, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	return tail(m.records[threadID], limit), nil
}

// Threads returns the ids of every saved thread.
func (m *MemoryStore) Threads() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.states))
	for id := range m.states {
		ids = append(ids, id)
	}
	return ids
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.states = nil
	m.records = nil
	return nil
}
