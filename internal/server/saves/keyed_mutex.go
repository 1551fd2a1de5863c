package saves

import "sync"

// keyedMutex serializes Store calls per title id. Locks are never evicted;
// the key space is bounded by the number of titles ever stored.
type keyedMutex struct {
	mu   sync.Mutex
	keys map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{keys: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.keys[key]
	if !ok {
		m = &sync.Mutex{}
		k.keys[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
