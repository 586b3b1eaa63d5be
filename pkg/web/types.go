package web

import (
	"github.com/dukex/roadbook/pkg/models"
	"github.com/dukex/roadbook/pkg/services"
)

// UserIDHeader carries the authenticated user. Authentication itself happens upstream.
const UserIDHeader = "X-User-ID"

// StartGenerationRequest represents the request body for starting a generation.
type StartGenerationRequest struct {
	RequestID   string              `json:"request_id"  validate:"required,max=128"`
	Preferences *models.Preferences `json:"preferences"`
}

// ListItinerariesResponse represents a note's version history.
type ListItinerariesResponse struct {
	Itineraries []services.Summary `json:"itineraries"`
}

// LinkResponse represents one preview link, or why the route does not fit the service.
type LinkResponse struct {
	Service   string `json:"service"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
	MaxPoints int    `json:"max_points,omitempty"`
	Points    int    `json:"points,omitempty"`
}

// LinksResponse represents the preview links of an itinerary.
type LinksResponse struct {
	Mode  string         `json:"mode"`
	Links []LinkResponse `json:"links"`
}
