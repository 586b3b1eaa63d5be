// Package models defines the core domain models for itinerary generation and route export.
package models

import (
	"slices"
	"time"
)

// ItineraryStatus represents the lifecycle state of a generation attempt.
type ItineraryStatus string

const (
	ItineraryStatusPending   ItineraryStatus = "pending"   // Accepted, slot not yet reserved
	ItineraryStatusRunning   ItineraryStatus = "running"   // Holds the user's single generation slot
	ItineraryStatusCompleted ItineraryStatus = "completed" // Route validated and persisted
	ItineraryStatusFailed    ItineraryStatus = "failed"    // Client, data-quality or validation failure
	ItineraryStatusCancelled ItineraryStatus = "cancelled" // Explicit caller action
)

var transitions = map[ItineraryStatus][]ItineraryStatus{
	ItineraryStatusPending: {ItineraryStatusRunning, ItineraryStatusCancelled},
	ItineraryStatusRunning: {ItineraryStatusCompleted, ItineraryStatusFailed, ItineraryStatusCancelled},
}

// CanTransition reports whether the lifecycle graph has an edge from s to next.
func (s ItineraryStatus) CanTransition(next ItineraryStatus) bool {
	return slices.Contains(transitions[s], next)
}

// IsTerminal reports whether no edge leaves s.
func (s ItineraryStatus) IsTerminal() bool {
	return s == ItineraryStatusCompleted || s == ItineraryStatusFailed || s == ItineraryStatusCancelled
}

// IsValid reports whether s is a known status.
func (s ItineraryStatus) IsValid() bool {
	switch s {
	case ItineraryStatusPending, ItineraryStatusRunning, ItineraryStatusCompleted,
		ItineraryStatusFailed, ItineraryStatusCancelled:
		return true
	default:
		return false
	}
}

// FailureKind classifies why an itinerary ended in the failed state.
type FailureKind string

const (
	FailureKindPlanService  FailureKind = "plan_service"
	FailureKindTruncated    FailureKind = "truncated"
	FailureKindDataQuality  FailureKind = "data_quality"
	FailureKindValidation   FailureKind = "validation"
	FailureKindStaleRunning FailureKind = "stale"
)

// Usage records what a single plan request consumed.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// Itinerary is one generation attempt for a note.
type Itinerary struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	NoteID      string          `json:"note_id"`
	Version     int             `json:"version"`
	Status      ItineraryStatus `json:"status"`
	RequestID   string          `json:"request_id"`
	Preferences *Preferences    `json:"preferences,omitempty"`

	Route            *Route  `json:"route,omitempty"`
	Title            string  `json:"title,omitempty"`
	TotalDistanceKM  float64 `json:"total_distance_km,omitempty"`
	TotalDurationMin int     `json:"total_duration_min,omitempty"`

	Progress    int         `json:"progress"`
	Message     string      `json:"message,omitempty"`
	FailureKind FailureKind `json:"failure_kind,omitempty"`
	Usage       Usage       `json:"usage"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// ApplySummary copies the cheap listing fields from the route.
func (i *Itinerary) ApplySummary(route *Route) {
	if route == nil {
		return
	}

	i.Title = route.Title
	i.TotalDistanceKM = route.TotalDistanceKM
	i.TotalDurationMin = route.TotalDurationMin
}

// Note is the trip note an itinerary is generated from. Note storage itself lives outside this service.
type Note struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
