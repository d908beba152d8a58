// Package events publishes profile changes and page views to RabbitMQ and
// consumes the view stream in the worker.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultExchange is the topic exchange every profile event goes through.
const DefaultExchange = "profile.events"

type EventType string

const (
	TypeProfileUpdated EventType = "profile.updated"
	TypeProfileViewed  EventType = "profile.viewed"
)

// ProfileEvent is the message body for both event types. Fields and Phase
// are only set on profile.updated.
type ProfileEvent struct {
	EventID    string    `json:"eventId"`
	EventType  EventType `json:"eventType"`
	AccountID  string    `json:"accountId"`
	Username   string    `json:"username,omitempty"`
	Fields     []string  `json:"fields,omitempty"`
	Phase      string    `json:"phase,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewProfileEvent stamps an id and time on a new event.
func NewProfileEvent(t EventType, accountID, username string) *ProfileEvent {
	return &ProfileEvent{
		EventID:    uuid.NewString(),
		EventType:  t,
		AccountID:  accountID,
		Username:   username,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	PublishProfileEvent(ctx context.Context, event *ProfileEvent) error
	// Enabled is false when publishing is switched off and events are dropped.
	Enabled() bool
	Close() error
}
