package ingest

import "sync"

// globalScope keys the lock for documents with no asserted project. Two
// near-identical documents in the same scope must never both conclude "no
// candidate found", so the dedup-check-then-write sequence serializes per
// scope.
const globalScope = "__global__"

type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for key and returns its unlock function.
func (k *keyedLocks) acquire(key string) func() {
	if key == "" {
		key = globalScope
	}
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
