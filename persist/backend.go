package persist

import (
	"context"
	"sync"
)

// Backend a string keyed value store.
// Implementations must be safe for concurrent use. Writes replace the previous value (last write wins).
type Backend interface {
	// Get returns the value for key and whether it was present
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// memoryBackend keeps values in a map. Nothing survives the process.
type memoryBackend struct {
	lock   sync.RWMutex
	values map[string]string
}

// NewMemoryBackend returns an empty in-process Backend
func NewMemoryBackend() Backend {
	return &memoryBackend{
		values: map[string]string{},
	}
}

func (b *memoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	v, ok := b.values[key]
	return v, ok, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.values[key] = value
	return nil
}

func (b *memoryBackend) Delete(_ context.Context, key string) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	delete(b.values, key)
	return nil
}

func (b *memoryBackend) Close() error {
	return nil
}
