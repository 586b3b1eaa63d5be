// Package events defines event types and structures for itinerary generation lifecycle notifications.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukex/roadbook/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every generation lifecycle event. Messages are keyed by itinerary id.
const Topic = "roadbook.generations"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	GenerationRequestedEvent EventType = "generation.requested"
	GenerationStartedEvent   EventType = "generation.started"
	GenerationCompletedEvent EventType = "generation.completed"
	GenerationFailedEvent    EventType = "generation.failed"
	GenerationCancelledEvent EventType = "generation.cancelled"
)

type BaseEvent struct {
	ID          string         `json:"id"`
	Type        EventType      `json:"type"`
	Timestamp   time.Time      `json:"timestamp"`
	ItineraryID string         `json:"itinerary_id"`
	UserID      string         `json:"user_id"`
	NoteID      string         `json:"note_id,omitempty"`
	WorkerID    string         `json:"worker_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, itinerary *models.Itinerary) BaseEvent {
	return BaseEvent{
		ID:          uuid.New().String(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		ItineraryID: itinerary.ID,
		UserID:      itinerary.UserID,
		NoteID:      itinerary.NoteID,
		Metadata:    make(map[string]any),
	}
}

// GenerationRequested asks a worker to execute a reserved generation.
type GenerationRequested struct {
	BaseEvent

	RequestID string `json:"request_id"`
	Version   int    `json:"version"`
}

func (e GenerationRequested) GetType() EventType {
	return GenerationRequestedEvent
}

type GenerationStarted struct {
	BaseEvent

	Version int `json:"version"`
}

func (e GenerationStarted) GetType() EventType {
	return GenerationStartedEvent
}

type GenerationCompleted struct {
	BaseEvent

	Title            string        `json:"title"`
	TotalDistanceKM  float64       `json:"total_distance_km"`
	TotalDurationMin int           `json:"total_duration_min"`
	Usage            models.Usage  `json:"usage"`
	Duration         time.Duration `json:"duration"`
}

func (e GenerationCompleted) GetType() EventType {
	return GenerationCompletedEvent
}

type GenerationFailed struct {
	BaseEvent

	FailureKind models.FailureKind `json:"failure_kind"`
	Error       string             `json:"error"`
	Duration    time.Duration      `json:"duration"`
}

func (e GenerationFailed) GetType() EventType {
	return GenerationFailedEvent
}

type GenerationCancelled struct {
	BaseEvent

	PreviousStatus models.ItineraryStatus `json:"previous_status"`
}

func (e GenerationCancelled) GetType() EventType {
	return GenerationCancelledEvent
}

var registry = map[EventType]func() any{
	GenerationRequestedEvent: func() any { return &GenerationRequested{} },
	GenerationStartedEvent:   func() any { return &GenerationStarted{} },
	GenerationCompletedEvent: func() any { return &GenerationCompleted{} },
	GenerationFailedEvent:    func() any { return &GenerationFailed{} },
	GenerationCancelledEvent: func() any { return &GenerationCancelled{} },
}

// Known reports whether eventType has a registered payload.
func Known(eventType EventType) bool {
	_, ok := registry[eventType]

	return ok
}

// Decode unmarshals payload into the concrete event type registered for eventType.
func Decode(eventType EventType, payload []byte) (any, error) {
	factory, ok := registry[eventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}

	event := factory()

	err := json.Unmarshal(payload, event)
	if err != nil {
		return nil, fmt.Errorf("decode %s event: %w", eventType, err)
	}

	return event, nil
}
