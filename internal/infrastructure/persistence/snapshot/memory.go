package snapshot

import (
	"context"
	"sync"
)

// MemoryKV keeps entries in process memory. Used for tests and the
// "memory" storage driver.
type MemoryKV struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryKV creates an empty in-memory backend.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string][]byte)}
}

// Get implements KV.
func (m *MemoryKV) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.entries[k]; ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

// Put implements KV.
func (m *MemoryKV) Put(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range entries {
		m.entries[k] = append([]byte(nil), v...)
	}
	return nil
}

// Close implements KV.
func (m *MemoryKV) Close() error {
	return nil
}
