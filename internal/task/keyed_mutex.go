package task

import "sync"

// KeyedMutex serializes work per string key. Every mutating action
// sequence on a pending image locks its ID for the whole commit, history,
// store, and asset chain; two concurrent actions on the same image can
// therefore never compute against stale card indices.
//
// Entries are never evicted. The key space is bounded by the number of
// pending images, which is small.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedMutex creates an empty keyed mutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use, and returns
// the unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
