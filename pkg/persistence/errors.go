// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrItineraryNotFound indicates an itinerary was not found for the given owner and identifier.
	ErrItineraryNotFound = errors.New("itinerary not found")

	// ErrNoteNotFound indicates a note is missing, deleted or owned by someone else.
	ErrNoteNotFound = errors.New("note not found")

	// ErrDuplicateRequest indicates an itinerary already exists for the (user, request_id) pair.
	ErrDuplicateRequest = errors.New("itinerary already exists for request")

	// ErrActiveGenerationExists indicates the user already holds a running itinerary.
	ErrActiveGenerationExists = errors.New("user already has a running itinerary")

	// ErrVersionConflict indicates two attempts for the same note were assigned the same version.
	ErrVersionConflict = errors.New("itinerary version conflict")

	// ErrStatusChanged indicates a compare-and-set lost: the stored status was not the expected one.
	ErrStatusChanged = errors.New("itinerary status changed")

	// ErrInvalidTransition indicates a write that does not follow the lifecycle graph.
	ErrInvalidTransition = errors.New("invalid itinerary status transition")
)

// ItineraryError wraps itinerary-related errors with additional context.
type ItineraryError struct {
	Op          string // Operation being performed (e.g., "Create", "Transition")
	ItineraryID string // Itinerary ID if applicable
	Err         error  // Underlying error
	Message     string // Additional context message
}

func (e *ItineraryError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s operation failed for itinerary %s: %s (%v)", e.Op, e.ItineraryID, e.Message, e.Err)
	}

	return fmt.Sprintf("%s operation failed for itinerary %s: %v", e.Op, e.ItineraryID, e.Err)
}

func (e *ItineraryError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for itinerary errors.
func (e *ItineraryError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewItineraryError creates a new itinerary error with context.
func NewItineraryError(op, itineraryID string, err error) *ItineraryError {
	return &ItineraryError{
		Op:          op,
		ItineraryID: itineraryID,
		Err:         err,
	}
}

// IsItineraryNotFound checks if an error indicates an itinerary was not found.
func IsItineraryNotFound(err error) bool {
	return errors.Is(err, ErrItineraryNotFound)
}

// IsNoteNotFound checks if an error indicates a note was not found.
func IsNoteNotFound(err error) bool {
	return errors.Is(err, ErrNoteNotFound)
}

// IsUniqueViolation checks if an error comes from one of the itinerary uniqueness constraints.
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrDuplicateRequest) || errors.Is(err, ErrActiveGenerationExists) ||
		errors.Is(err, ErrVersionConflict)
}
