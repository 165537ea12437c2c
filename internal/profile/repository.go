package profile

import (
	"context"
	"time"
)

// Record is a completed profile as stored by a Repository.
type Record struct {
	SessionID   string
	Profile     UserProfile
	CompletedAt time.Time
}

// Repository stores the profiles of travellers who finished onboarding.
type Repository interface {
	// Save stores or replaces the profile for a session.
	Save(ctx context.Context, sessionID string, p UserProfile) error

	// Get retrieves the profile stored for a session.
	// Returns ErrProfileNotFound if nothing is stored.
	Get(ctx context.Context, sessionID string) (*Record, error)
}
