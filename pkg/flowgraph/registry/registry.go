package registry

import (
	"cmp"
	"slices"
	"sync"
)

// Registry is a thread-safe map of values indexed by key.
type Registry[K cmp.Ordered, V any] struct {
	mu      sync.RWMutex
	entries map[K]V
}

// New creates a new empty registry.
func New[K cmp.Ordered, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register adds or replaces the value for key.
func (r *Registry[K, V]) Register(key K, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.entries[key]
	return v, ok
}

// Keys returns the registered keys in ascending order.
func (r *Registry[K, V]) Keys() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]K, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Update applies fn to the value for key (the zero value when absent)
// and stores the result, atomically with respect to other writers.
func (r *Registry[K, V]) Update(key K, fn func(V) V) V {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := fn(r.entries[key])
	r.entries[key] = v
	return v
}

// DeleteIf removes key when pred reports true for its current value.
// The check and the removal happen under one lock.
func (r *Registry[K, V]) DeleteIf(key K, pred func(V) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.entries[key]
	if !ok || !pred(v) {
		return false
	}
	delete(r.entries, key)
	return true
}
