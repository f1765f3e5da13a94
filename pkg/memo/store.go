package memo

import "sync"

// Store is the backing key/value mapping of a memoized function.
type Store[V any] interface {
	Load(key string) (V, bool, error)
	Store(key string, v V) error
	Delete(key string) error
}

// MapStore is an unbounded in-process store. It never evicts on its own.
type MapStore[V any] struct {
	mu sync.RWMutex
	m  map[string]V
}

// NewMapStore returns a store pre-populated with seed (which may be nil).
func NewMapStore[V any](seed map[string]V) *MapStore[V] {
	m := make(map[string]V, len(seed))
	for k, v := range seed {
		m[k] = v
	}
	return &MapStore[V]{m: m}
}

func (s *MapStore[V]) Load(key string) (V, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *MapStore[V]) Store(key string, v V) error {
	s.mu.Lock()
	s.m[key] = v
	s.mu.Unlock()
	return nil
}

func (s *MapStore[V]) Delete(key string) error {
	s.mu.Lock()
	delete(s.m, key)
	s.mu.Unlock()
	return nil
}

// Len reports the number of cached entries.
func (s *MapStore[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
