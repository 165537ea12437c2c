// Package events carries the domain events Atlas emits while travellers use
// the application. The API publishes them; the worker consumes them.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names an event.
type Type string

const (
	TypeSessionStarted Type = "session.started"
	TypeStepChanged    Type = "onboarding.step_changed"
	TypeRoutesSearched Type = "routes.searched"
	TypeNearbyLoaded   Type = "nearby.loaded"
	TypeChatReplied    Type = "chat.replied"
	TypeSessionClosed  Type = "session.closed"
)

// Known reports whether t is an event type Atlas emits.
func (t Type) Known() bool {
	switch t {
	case TypeSessionStarted, TypeStepChanged, TypeRoutesSearched,
		TypeNearbyLoaded, TypeChatReplied, TypeSessionClosed:
		return true
	}
	return false
}

// Event is one domain event.
type Event struct {
	ID         string            `json:"id"`
	Type       Type              `json:"type"`
	SessionID  string            `json:"sessionId"`
	OccurredAt time.Time         `json:"occurredAt"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// New creates an event stamped with a fresh ID and the current time.
func New(t Type, sessionID string, attrs map[string]string) Event {
	return Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       t,
		SessionID:  sessionID,
		OccurredAt: time.Now().UTC(),
		Attributes: attrs,
	}
}

// Publisher delivers events. Publish must not block on the broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}
