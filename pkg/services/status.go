package services

import (
	"time"

	"github.com/dukex/roadbook/pkg/models"
)

// StatusView is what callers see of an itinerary. Preferences, usage and request metadata stay internal.
type StatusView struct {
	ID      string                 `json:"id"`
	NoteID  string                 `json:"note_id"`
	Version int                    `json:"version"`
	Status  models.ItineraryStatus `json:"status"`

	Progress *int   `json:"progress,omitempty"`
	Message  string `json:"message,omitempty"`

	FailureKind models.FailureKind `json:"failure_kind,omitempty"`

	Title            string        `json:"title,omitempty"`
	TotalDistanceKM  float64       `json:"total_distance_km,omitempty"`
	TotalDurationMin int           `json:"total_duration_min,omitempty"`
	Route            *models.Route `json:"route,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

// NewStatusView projects an itinerary by status.
func NewStatusView(itinerary *models.Itinerary) StatusView {
	view := StatusView{
		ID:        itinerary.ID,
		NoteID:    itinerary.NoteID,
		Version:   itinerary.Version,
		Status:    itinerary.Status,
		CreatedAt: itinerary.CreatedAt,
	}

	switch itinerary.Status {
	case models.ItineraryStatusPending, models.ItineraryStatusRunning:
		progress := itinerary.Progress
		view.Progress = &progress
		view.Message = itinerary.Message
	case models.ItineraryStatusCompleted:
		view.Title = itinerary.Title
		view.TotalDistanceKM = itinerary.TotalDistanceKM
		view.TotalDurationMin = itinerary.TotalDurationMin
		view.Route = itinerary.Route
		view.FinishedAt = itinerary.FinishedAt
	case models.ItineraryStatusFailed:
		view.Message = itinerary.Message
		view.FailureKind = itinerary.FailureKind
		view.FinishedAt = itinerary.FinishedAt
	case models.ItineraryStatusCancelled:
		view.Message = itinerary.Message
		view.CancelledAt = itinerary.CancelledAt
	}

	return view
}

// Summary is one line of a note's version history.
type Summary struct {
	ID               string                 `json:"id"`
	Version          int                    `json:"version"`
	Status           models.ItineraryStatus `json:"status"`
	Title            string                 `json:"title,omitempty"`
	TotalDistanceKM  float64                `json:"total_distance_km,omitempty"`
	TotalDurationMin int                    `json:"total_duration_min,omitempty"`
	FailureKind      models.FailureKind     `json:"failure_kind,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	FinishedAt       *time.Time             `json:"finished_at,omitempty"`
}

func newSummary(itinerary *models.Itinerary) Summary {
	return Summary{
		ID:               itinerary.ID,
		Version:          itinerary.Version,
		Status:           itinerary.Status,
		Title:            itinerary.Title,
		TotalDistanceKM:  itinerary.TotalDistanceKM,
		TotalDurationMin: itinerary.TotalDurationMin,
		FailureKind:      itinerary.FailureKind,
		CreatedAt:        itinerary.CreatedAt,
		FinishedAt:       itinerary.FinishedAt,
	}
}
