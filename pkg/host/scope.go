// Package host runs flow definitions: it instantiates nodes, wires their
// ports over an in-process message bus, and supplies the runtime surface
// nodes execute against.
package host

import (
	"sync"
)

// MemoryScope is a mutex-guarded in-memory variable store. One instance
// backs each flow scope and one the global scope.
type MemoryScope struct {
	mu     sync.RWMutex
	values map[string]any
}

func NewMemoryScope() *MemoryScope {
	return &MemoryScope{values: make(map[string]any)}
}

func (s *MemoryScope) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]

	return value, ok
}

func (s *MemoryScope) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
}
