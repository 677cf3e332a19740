package healthrecords

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"varsityhub/pkg/platform/sentinel"
)

// InMemoryRepo is the development and test implementation of Repo.
type InMemoryRepo struct {
	mu        sync.RWMutex
	histories map[string]MedicalHistory // keyed by athlete ID
	incidents map[uuid.UUID]InjuryIncident
}

// NewInMemoryRepo builds an empty in-memory repository.
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		histories: make(map[string]MedicalHistory),
		incidents: make(map[uuid.UUID]InjuryIncident),
	}
}

// UpsertMedicalHistory implements Repo.
func (r *InMemoryRepo) UpsertMedicalHistory(_ context.Context, mh MedicalHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := mh
	stored.Attributes = copyAttrs(mh.Attributes)
	r.histories[mh.AthleteID] = stored
	return nil
}

// GetMedicalHistory implements Repo.
func (r *InMemoryRepo) GetMedicalHistory(_ context.Context, athleteID string) (MedicalHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mh, ok := r.histories[athleteID]
	if !ok {
		return MedicalHistory{}, fmt.Errorf("medical history for %s: %w", athleteID, sentinel.ErrNotFound)
	}
	mh.Attributes = copyAttrs(mh.Attributes)
	return mh, nil
}

// SaveInjuryIncident implements Repo.
func (r *InMemoryRepo) SaveInjuryIncident(_ context.Context, inc InjuryIncident) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.incidents[inc.ID] = inc
	return nil
}

// GetInjuryIncident implements Repo.
func (r *InMemoryRepo) GetInjuryIncident(_ context.Context, id uuid.UUID) (InjuryIncident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inc, ok := r.incidents[id]
	if !ok {
		return InjuryIncident{}, fmt.Errorf("injury incident %s: %w", id, sentinel.ErrNotFound)
	}
	return inc, nil
}

// ListInjuryIncidents implements Repo.
func (r *InMemoryRepo) ListInjuryIncidents(_ context.Context, athleteID string) ([]InjuryIncident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []InjuryIncident
	for _, inc := range r.incidents {
		if inc.AthleteID == athleteID {
			out = append(out, inc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func copyAttrs(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

// Corrupt overwrites one stored medical history attribute in place. Test
// helper for exercising the unreadable-field path.
func (r *InMemoryRepo) Corrupt(athleteID, field, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if mh, ok := r.histories[athleteID]; ok && mh.Attributes != nil {
		mh.Attributes[field] = value
	}
}
