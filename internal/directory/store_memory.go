package directory

import (
	"context"
	"fmt"
	"sync"

	"varsityhub/pkg/platform/sentinel"
)

// InMemory is the development and test implementation of Store.
type InMemory struct {
	mu         sync.RWMutex
	principals map[string]Principal
}

// NewInMemory builds an empty in-memory directory.
func NewInMemory() *InMemory {
	return &InMemory{principals: make(map[string]Principal)}
}

// Put registers or replaces a principal. Test setup helper; the real
// directory is mutated by the external user-management system.
func (s *InMemory) Put(p Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals[p.ID] = p
}

// GetPrincipal implements Store.
func (s *InMemory) GetPrincipal(_ context.Context, id string) (Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.principals[id]
	if !ok {
		return Principal{}, fmt.Errorf("principal %s: %w", id, sentinel.ErrNotFound)
	}
	return p, nil
}
