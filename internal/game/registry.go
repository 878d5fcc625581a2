package game

import (
	"fmt"
	"sync"

	"fair-gaming-core/internal/model"
)

// Registry maps game types to their machines. It is thread-safe and holds
// no other state; machines carry their own provider references.
type Registry struct {
	machines map[model.GameType]Machine
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		machines: make(map[model.GameType]Machine),
	}
}

// Register adds a machine. Registering the same game type twice replaces
// the earlier machine.
func (r *Registry) Register(m Machine) error {
	if m == nil {
		return fmt.Errorf("cannot register nil machine")
	}
	if m.GameType() == "" {
		return fmt.Errorf("machine game type cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.machines[m.GameType()] = m
	return nil
}

// Get retrieves the machine for a game type.
func (r *Registry) Get(gt model.GameType) (Machine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.machines[gt]
	return m, ok
}

// Types returns all registered game types.
func (r *Registry) Types() []model.GameType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]model.GameType, 0, len(r.machines))
	for gt := range r.machines {
		types = append(types, gt)
	}
	return types
}

// Count returns the number of registered machines.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.machines)
}
