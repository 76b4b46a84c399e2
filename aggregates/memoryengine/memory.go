// Package memoryengine provides an in-process aggregates.Backend keeping
// everything in maps guarded by one mutex. It is intended for tests and
// demos; nothing survives the process.
package memoryengine

import (
	"context"
	"sync"

	"github.com/eventfold/aggregates-go/aggregates"
)

// Backend is an in-memory implementation of aggregates.Backend. It is safe
// for concurrent use; Commit batches are applied under the write lock, so
// their effects become visible together.
type Backend struct {
	mu       sync.RWMutex
	counters map[string]int64
	values   map[string][]byte
	logs     map[string][][]byte
}

// New creates an empty in-memory backend.
func New() *Backend {
	return &Backend{
		counters: make(map[string]int64),
		values:   make(map[string][]byte),
		logs:     make(map[string][][]byte),
	}
}

// Incr atomically increments the counter stored at key and returns the new
// value.
func (b *Backend) Incr(_ context.Context, key string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.counters[key]++

	return b.counters[key], nil
}

// Get returns the value stored at key, or found == false if absent.
func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	value, found := b.values[key]
	if !found {
		return nil, false, nil
	}

	return cloneBytes(value), true, nil
}

// GetMulti returns the values for the given keys in order; absent keys
// yield nil elements.
func (b *Backend) GetMulti(_ context.Context, keys []string) ([][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	values := make([][]byte, len(keys))
	for i, key := range keys {
		if value, found := b.values[key]; found {
			values[i] = cloneBytes(value)
		}
	}

	return values, nil
}

// List returns all entries of the log stored at key in insertion order.
func (b *Backend) List(_ context.Context, key string) ([][]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	log := b.logs[key]
	entries := make([][]byte, len(log))
	for i, entry := range log {
		entries[i] = cloneBytes(entry)
	}

	return entries, nil
}

// Commit applies the write batch under the write lock.
func (b *Backend) Commit(_ context.Context, batch aggregates.WriteBatch) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.logs[batch.EventsKey] = append(b.logs[batch.EventsKey], cloneBytes(batch.Event))
	b.values[batch.StateKey] = cloneBytes(batch.State)

	if batch.IDsKey != "" {
		b.logs[batch.IDsKey] = append(b.logs[batch.IDsKey], []byte(batch.NewID))
	}

	return nil
}

// cloneBytes copies a value so callers never share backing arrays with the
// store.
func cloneBytes(value []byte) []byte {
	if value == nil {
		return nil
	}

	clone := make([]byte, len(value))
	copy(clone, value)

	return clone
}

// Ensure Backend implements aggregates.Backend.
var _ aggregates.Backend = (*Backend)(nil)
