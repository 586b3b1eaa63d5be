// Package eventbus provides event-driven communication between the API and generation workers.
package eventbus

import (
	"context"

	"github.com/dukex/roadbook/pkg/events"
)

// Event is any generation lifecycle event registered in pkg/events.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes events keyed by itinerary id, so every event of one attempt lands on the same
// partition in order.
type EventPublisher interface {
	Publish(ctx context.Context, itineraryID string, event Event) error
}

// EventSubscriber routes decoded events to one handler per type. Handle must be called before Subscribe.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives the decoded event, e.g. *events.GenerationRequested. A returned error requests
// redelivery.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
