package locking

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// KeyedMutex serializes work per key. Payment matching uses it keyed by
// lease ID so two concurrent payments for the same lease cannot interleave
// their read-match-write cycles, while payments for different leases
// proceed in parallel.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates a new keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{
		locks: map[string]*entry{},
	}
}

// Lock acquires the mutex for the key, blocking until it is available or the
// context is done. On success the caller must invoke the returned unlock
// function exactly once.
func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	acquired := make(chan struct{})
	go func() {
		e.mu.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
		return func() { k.release(key, e) }, nil
	case <-ctx.Done():
		// The goroutine still holds or will hold the lock; release it once
		// acquired so the entry refcount stays balanced.
		go func() {
			<-acquired
			k.release(key, e)
		}()
		return nil, ctx.Err()
	}
}

// LockLease acquires the mutex keyed by a lease ID
func (k *KeyedMutex) LockLease(ctx context.Context, leaseID uuid.UUID) (func(), error) {
	return k.Lock(ctx, "lease:"+leaseID.String())
}

func (k *KeyedMutex) release(key string, e *entry) {
	e.mu.Unlock()

	k.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
