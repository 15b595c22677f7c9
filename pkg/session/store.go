// Package session keeps per-key chat turn history for multi-turn generation.
package session

import (
	"sync"

	"github.com/calrock27/genflow/pkg/models"
)

// DefaultKey is the session key used when a message carries no topic.
const DefaultKey = "default"

// Store holds conversation history keyed by session. Histories are
// created on first use and grow by exactly two turns per successful
// exchange (the user's turn, then the model's reply). Nothing evicts
// automatically; Reset is the only way to shrink a history.
//
// Implementations guard their own internal state, but concurrent
// invocations against the same key are not serialized across an
// in-flight remote call: interleaved read-append pairs race on
// last-write-wins.
type Store interface {
	// History returns the accumulated turns for key, oldest first.
	// An unknown key yields an empty history, not an error.
	History(key string) ([]models.ChatTurn, error)

	// Append adds turns to the end of the keyed history, creating it
	// when absent.
	Append(key string, turns ...models.ChatTurn) error

	// Reset discards the keyed history.
	Reset(key string) error
}

// MemoryStore is the default in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]models.ChatTurn
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]models.ChatTurn)}
}

// History implements Store. The returned slice is a copy.
func (s *MemoryStore) History(key string) ([]models.ChatTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns := s.sessions[key]
	out := make([]models.ChatTurn, len(turns))
	copy(out, turns)

	return out, nil
}

// Append implements Store.
func (s *MemoryStore) Append(key string, turns ...models.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[key] = append(s.sessions[key], turns...)

	return nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)

	return nil
}
