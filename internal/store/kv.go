// Package store persists conversation records and the transfer slot in a
// key-value collaborator, enforcing the recency-bounded retention policy.
package store

import (
	"context"
	"errors"
	"sync"
)

// Sentinel errors for the persistence layer.
var (
	// ErrKeyNotFound means the key holds no value.
	ErrKeyNotFound = errors.New("key not found")
	// ErrUnavailable means the persistence collaborator cannot be reached;
	// callers skip the operation and surface a notice instead of failing the
	// host.
	ErrUnavailable = errors.New("store unavailable")
)

// KV is the key-value persistence collaborator the store reads and writes.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// MemoryKV is an in-process KV, used in tests and single-node runs.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryKV returns an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put stores a copy of the value.
func (m *MemoryKV) Put(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

// Delete removes the key; deleting a missing key is not an error.
func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
