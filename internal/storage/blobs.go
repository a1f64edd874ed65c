package storage

import "sync"

// Blobs is a keyed store of serialized documents. Get returns nil, nil when
// nothing is stored under the key.
type Blobs interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
}

var _ Blobs = (*DB)(nil)

// Memory is a Blobs held in process memory. Safe for concurrent use.
type Memory struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemory returns an empty in-memory blob store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Get returns a copy of the blob stored under key.
func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.blobs[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores a copy of value under key.
func (m *Memory) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.blobs[key] = stored
	return nil
}
