package store

import (
	"context"
	"sync"

	"fair-gaming-core/internal/model"
)

// Memory is an in-process Store used by tests and the simulator.
type Memory struct {
	mu     sync.RWMutex
	states map[string]*model.SignedState
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{states: make(map[string]*model.SignedState)}
}

// Load implements Store.
func (m *Memory) Load(ctx context.Context, sessionID string) (*model.SignedState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyState(state), nil
}

// Save implements Store.
func (m *Memory) Save(ctx context.Context, state *model.SignedState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.SessionID] = copyState(state)
	return nil
}

// copyState deep-copies a signed state so callers and the store never
// share snapshot bytes.
func copyState(state *model.SignedState) *model.SignedState {
	cp := *state
	cp.Snapshot = append([]byte(nil), state.Snapshot...)
	return &cp
}

// Delete implements Store.
func (m *Memory) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, sessionID)
	return nil
}
