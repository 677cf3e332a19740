package audit

import (
	"context"
	"sort"
	"sync"
)

// InMemory keeps audit entries in process memory. Used in development and as
// the test double for the sink; production deployments wire the Postgres store.
type InMemory struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemory builds an empty in-memory audit store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Append stores a copy of the entry. Each append is atomic under the lock.
func (s *InMemory) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

// Query returns matching entries ordered by creation time.
func (s *InMemory) Query(_ context.Context, filter Filter) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Entry
	for _, e := range s.entries {
		if filter.ActorID != "" && e.ActorID != filter.ActorID {
			continue
		}
		if filter.ResourceType != "" && e.ResourceType != filter.ResourceType {
			continue
		}
		if !filter.From.IsZero() && e.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.CreatedAt.After(filter.To) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
