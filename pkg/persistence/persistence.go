// Package persistence provides the storage abstraction for itineraries and the notes they are generated from.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/roadbook/pkg/models"
)

// ItineraryRepository stores generation attempts. Implementations enforce, at the storage level, that a
// user holds at most one running itinerary, that (user, request_id) is unique and that (note, version) is
// unique.
type ItineraryRepository interface {
	// Create inserts a new itinerary, assigning ID, version and timestamps. It returns ErrDuplicateRequest
	// when (user, request_id) already exists.
	Create(ctx context.Context, itinerary *models.Itinerary) error

	// GetByID returns a non-deleted itinerary owned by userID or ErrItineraryNotFound.
	GetByID(ctx context.Context, userID, id string) (*models.Itinerary, error)

	// GetByRequestID returns the itinerary created for (userID, requestID) or ErrItineraryNotFound.
	GetByRequestID(ctx context.Context, userID, requestID string) (*models.Itinerary, error)

	// ActiveForUser returns the user's running itinerary or ErrItineraryNotFound.
	ActiveForUser(ctx context.Context, userID string) (*models.Itinerary, error)

	// Transition writes itinerary as a compare-and-set on its stored status being from. It returns
	// ErrStatusChanged when the stored status differs and ErrActiveGenerationExists when the write would
	// give the user a second running itinerary.
	Transition(ctx context.Context, itinerary *models.Itinerary, from models.ItineraryStatus) error

	// UpdateProgress records progress on a running itinerary, or returns ErrStatusChanged.
	UpdateProgress(ctx context.Context, id string, progress int, message string) error

	// ListByNote returns the non-deleted versions of a note, newest first.
	ListByNote(ctx context.Context, userID, noteID string) ([]*models.Itinerary, error)

	// SoftDelete marks a terminal itinerary deleted.
	SoftDelete(ctx context.Context, userID, id string) error

	// DeletePending removes a pending itinerary that never started, releasing its request id and version.
	DeletePending(ctx context.Context, userID, id string) error

	// ListStaleRunning returns running itineraries started before the given instant.
	ListStaleRunning(ctx context.Context, startedBefore time.Time) ([]*models.Itinerary, error)
}

// NoteRepository gives read access to trip notes. Note CRUD belongs to another service; SaveNote exists for
// seeding and tests.
type NoteRepository interface {
	NoteByID(ctx context.Context, userID, noteID string) (*models.Note, error)
	SaveNote(ctx context.Context, note *models.Note) error
}

type Persistence interface {
	Itineraries() ItineraryRepository
	Notes() NoteRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
