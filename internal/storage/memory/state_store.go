package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/exurl-archiver/internal/archiver"
)

// StateStore holds poller state for the lifetime of the process.
type StateStore struct {
	mu    sync.RWMutex
	state *archiver.State
}

var _ archiver.WatermarkStore = (*StateStore)(nil)

// NewStateStore constructs an empty StateStore.
func NewStateStore() *StateStore {
	return &StateStore{}
}

// Load implements archiver.WatermarkStore.
func (s *StateStore) Load(context.Context) (archiver.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return archiver.State{}, archiver.ErrStateNotFound
	}
	return *s.state, nil
}

// Save implements archiver.WatermarkStore.
func (s *StateStore) Save(_ context.Context, st archiver.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &st
	return nil
}
