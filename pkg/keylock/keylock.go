// Package keylock provides single-holder locks keyed by string, created
// lazily on first use. Acquisition is context-aware: a goroutine waiting for
// a held key observes ambient cancellation instead of blocking forever.
package keylock

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// KeyedMutex is a table of per-key single-holder locks. The zero value is not
// usable; construct with New.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// New creates an empty KeyedMutex
func New() *KeyedMutex {
	return &KeyedMutex{
		locks: make(map[string]*semaphore.Weighted),
	}
}

// Lock acquires the lock for key, creating it on first use. Lookup-or-create
// is atomic; the wait for a held key honors ctx. On success the returned
// release function must be called exactly once.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	sem, ok := m.locks[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		m.locks[key] = sem
	}
	m.mu.Unlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

// TryRemove deletes the lock for key if it exists and is not currently held.
// Waiters blocked on the key keep it held, so they are never orphaned mid
// wait. Returns true when an entry was removed.
func (m *KeyedMutex) TryRemove(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sem, ok := m.locks[key]
	if !ok {
		return false
	}
	if !sem.TryAcquire(1) {
		return false
	}
	delete(m.locks, key)
	sem.Release(1)
	return true
}

// Len returns the number of keys currently tracked
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
