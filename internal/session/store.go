package session

import (
	"sync"

	"aictl/internal/protocol"
)

// StateStore holds the latest merged game state behind a mutex.  The
// receiver loop replaces the whole snapshot in one critical section;
// readers get a copy, so no partially updated state is ever visible.
type StateStore struct {
	mu    sync.Mutex
	state protocol.GameState
}

// NewStateStore returns a store holding the default (zero) state.
func NewStateStore() *StateStore {
	return &StateStore{}
}

// Set replaces the snapshot.
func (s *StateStore) Set(state protocol.GameState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Get returns a copy of the current snapshot.
func (s *StateStore) Get() protocol.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
