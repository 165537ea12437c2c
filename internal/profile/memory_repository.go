package profile

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository keeps completed profiles for the lifetime of the process.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[string]*Record),
	}
}

// Save stores a copy of the profile.
func (r *InMemoryRepository) Save(_ context.Context, sessionID string, p UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[sessionID] = &Record{
		SessionID:   sessionID,
		Profile:     p.Clone(),
		CompletedAt: time.Now(),
	}
	return nil
}

// Get returns a copy of the stored record.
func (r *InMemoryRepository) Get(_ context.Context, sessionID string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[sessionID]
	if !ok {
		return nil, ErrProfileNotFound
	}

	cpy := *rec
	cpy.Profile = rec.Profile.Clone()
	return &cpy, nil
}

// Count returns the number of stored profiles.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

var _ Repository = (*InMemoryRepository)(nil)
