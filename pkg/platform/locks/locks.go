// Package locks provides per-key write serialization for record mutations.
//
// Two implementations share the UserLocker interface: an in-process keyed
// mutex for single-instance deployments and tests, and a Redis lock for
// multi-instance deployments where a verifier callback and an admin decision
// can land on different replicas.
package locks

import (
	"context"
	"sync"
)

// UserLocker serializes mutations for a single user. Lock blocks until the
// lock is held and returns the release function.
type UserLocker interface {
	Lock(ctx context.Context, userID string) (release func(), err error)
}

// Keyed is an in-process keyed mutex. Entries are reference-counted so the
// map does not grow with the user population.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*keyedEntry)}
}

func (k *Keyed) Lock(_ context.Context, userID string) (func(), error) {
	k.mu.Lock()
	entry, ok := k.locks[userID]
	if !ok {
		entry = &keyedEntry{}
		k.locks[userID] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, userID)
		}
		k.mu.Unlock()
	}, nil
}
