package core

import "sync"

// registry is a mutex-guarded map shared by the preview store and the
// operation tracker. Reads may happen concurrently from any number of
// pollers; writes are per-key single-writer plus the sweep.
type registry[T any] struct {
	mu      sync.RWMutex
	entries map[string]T
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{entries: make(map[string]T)}
}

func (r *registry[T]) put(key string, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = v
}

func (r *registry[T]) get(key string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

func (r *registry[T]) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// sweep removes every entry for which expired returns true and returns
// the removed values. Removal happens under the write lock, so a
// concurrent read sees either the old entry or no entry, never a partial
// one.
func (r *registry[T]) sweep(expired func(T) bool) []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []T
	for key, v := range r.entries {
		if expired(v) {
			removed = append(removed, v)
			delete(r.entries, key)
		}
	}
	return removed
}
