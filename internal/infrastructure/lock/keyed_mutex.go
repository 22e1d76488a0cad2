package lock

import (
	"context"
	"sync"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
)

// KeyedMutex serializes work per purchase order inside one process. Each
// order gets its own mutex, so reconciliation of different orders runs in
// parallel while two recomputes of the same order queue up.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates a new KeyedMutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[uuid.UUID]*keyedEntry)}
}

// Acquire blocks until the lock for poID is held or the context is done.
// A cancelled or expired context yields CONCURRENT_UPDATE_CONFLICT since no
// partial write occurred and the caller may retry. The returned release
// function must be called exactly once.
func (k *KeyedMutex) Acquire(ctx context.Context, poID uuid.UUID) (func(), error) {
	k.mu.Lock()
	entry, ok := k.entries[poID]
	if !ok {
		entry = &keyedEntry{ch: make(chan struct{}, 1)}
		k.entries[poID] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
		return func() {
			<-entry.ch
			k.put(poID, entry)
		}, nil
	case <-ctx.Done():
		k.put(poID, entry)
		return nil, shared.ErrConcurrentUpdateConflict
	}
}

// put drops one reference and evicts the entry once unused. Eviction keeps
// the map from growing with every order ever touched.
func (k *KeyedMutex) put(poID uuid.UUID, entry *keyedEntry) {
	k.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, poID)
	}
	k.mu.Unlock()
}
