// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/roadbook/pkg/models"
	"github.com/google/uuid"
)

// CreateTestNote creates a test Note with default values that can be overridden.
func CreateTestNote(userID string, overrides ...func(*models.Note)) *models.Note {
	note := &models.Note{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     "Dolomites long weekend",
		Body:      "Three days from Bolzano over Passo Pordoi, Sella and Gardena, back via Passo Giau.",
		CreatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(note)
	}

	return note
}

// CreateTestPreferences returns a valid resolved preference set.
func CreateTestPreferences() *models.Preferences {
	return &models.Preferences{
		Terrain:             models.TerrainMountains,
		RoadStyle:           models.RoadStyleTwisty,
		TargetDurationHours: 6,
		TargetDistanceKM:    250,
	}
}

// CreateTestItinerary creates a pending Itinerary for the note with default values that can be overridden.
func CreateTestItinerary(note *models.Note, overrides ...func(*models.Itinerary)) *models.Itinerary {
	itinerary := &models.Itinerary{
		UserID:      note.UserID,
		NoteID:      note.ID,
		Status:      models.ItineraryStatusPending,
		RequestID:   uuid.New().String(),
		Preferences: CreateTestPreferences(),
	}

	for _, override := range overrides {
		override(itinerary)
	}

	return itinerary
}

// WithRequestID sets the idempotency key.
func WithRequestID(requestID string) func(*models.Itinerary) {
	return func(i *models.Itinerary) {
		i.RequestID = requestID
	}
}

// CreateTestRoute returns a small canonical route with two segments.
func CreateTestRoute() *models.Route {
	bolzano := models.Coordinate{Lat: 46.4983, Lon: 11.3548}
	via := models.Coordinate{Lat: 46.5, Lon: 11.6}
	canazei := models.Coordinate{Lat: 46.4769, Lon: 11.7706}
	cortina := models.Coordinate{Lat: 46.5405, Lon: 12.1357}

	return &models.Route{
		Title:            "Dolomites long weekend",
		TotalDistanceKM:  95.5,
		TotalDurationMin: 150,
		Highlights:       []string{"Passo Pordoi"},
		Paths: []models.PathFeature{
			{Coordinates: []models.Coordinate{bolzano, via, canazei}, Day: 1, SegmentIndex: 0, Name: "Bolzano to Canazei", DistanceKM: 50.5, DurationMin: 80},
			{Coordinates: []models.Coordinate{canazei, cortina}, Day: 1, SegmentIndex: 1, Name: "Canazei to Cortina", DistanceKM: 45, DurationMin: 70},
		},
		Points: []models.PointFeature{
			{Coordinate: bolzano, Role: models.PointRoleStart, Label: "Bolzano", Day: 1},
			{Coordinate: via, Role: models.PointRoleIntermediate, Label: "Day 1 segment 1 via 1", Day: 1},
			{Coordinate: canazei, Role: models.PointRoleEnd, Label: "Canazei", Day: 1},
			{Coordinate: canazei, Role: models.PointRoleStart, Label: "Canazei", Day: 1, SegmentIndex: 1},
			{Coordinate: cortina, Role: models.PointRoleEnd, Label: "Cortina d'Ampezzo", Day: 1, SegmentIndex: 1},
		},
	}
}

// PlanJSON is a well-formed plan answer covering two days.
const PlanJSON = `{
  "title": "Dolomites long weekend",
  "summary": "Classic passes loop",
  "highlights": ["Passo Pordoi", "Passo Giau"],
  "days": [
    {
      "day": 1,
      "segments": [
        {"name": "Bolzano to Canazei", "start": {"name": "Bolzano", "lat": 46.4983, "lon": 11.3548}, "end": {"name": "Canazei", "lat": 46.4769, "lon": 11.7706}, "distance_km": 55, "duration_min": 85},
        {"start": {"name": "Canazei", "lat": 46.4769, "lon": 11.7706}, "end": {"name": "Arabba", "lat": 46.4969, "lon": 11.8747}, "distance_km": 25}
      ]
    },
    {
      "day": 2,
      "segments": [
        {"name": "Over Giau", "start": {"name": "Arabba", "lat": 46.4969, "lon": 11.8747}, "end": {"name": "Cortina d'Ampezzo", "lat": 46.5405, "lon": 12.1357}, "distance_km": 40}
      ]
    }
  ]
}`
