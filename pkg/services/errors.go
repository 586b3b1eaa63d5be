// Package services provides the generation orchestrator and itinerary management operations.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/roadbook/pkg/export"
	"github.com/dukex/roadbook/pkg/links"
	"github.com/dukex/roadbook/pkg/persistence"
	"github.com/dukex/roadbook/pkg/planner"
	"github.com/dukex/roadbook/pkg/validate"
)

var (
	// Not Found (404).
	ErrNoteNotFound      = persistence.ErrNoteNotFound
	ErrItineraryNotFound = persistence.ErrItineraryNotFound

	// Bad Request (400).
	ErrInvalidRequest = errors.New("invalid request")

	// Precondition Failed (412).
	ErrPreferencesMissing = errors.New("resolved preferences are required")
	ErrCannotCancel       = errors.New("itinerary cannot be cancelled")
	ErrCannotDelete       = errors.New("itinerary cannot be deleted")
	ErrNotCompleted       = errors.New("itinerary is not completed")

	// Unprocessable (422). Always aborts a generation.
	ErrDataQuality = planner.ErrDataQuality
)

// GenerationInProgressError is returned when the user already holds the running slot.
type GenerationInProgressError struct {
	ActiveItineraryID string
	ActiveRequestID   string
}

func (e *GenerationInProgressError) Error() string {
	if e.ActiveRequestID == "" {
		return "a generation is already in progress"
	}

	return fmt.Sprintf("a generation is already in progress for request %s", e.ActiveRequestID)
}

// SpendCapError is returned when the user's month-to-date spend has reached the cap.
type SpendCapError struct {
	SpentUSD float64
	CapUSD   float64
}

func (e *SpendCapError) Error() string {
	return fmt.Sprintf("monthly spend cap reached: %.2f of %.2f USD", e.SpentUSD, e.CapUSD)
}

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newServiceError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsNotFound checks if an error should return HTTP 404.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoteNotFound) || errors.Is(err, ErrItineraryNotFound)
}

// IsBadRequest checks if an error should return HTTP 400.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, export.ErrUnknownFormat)
}

// IsPreconditionFailed checks if an error should return HTTP 412.
func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreferencesMissing) ||
		errors.Is(err, ErrCannotCancel) ||
		errors.Is(err, ErrCannotDelete) ||
		errors.Is(err, ErrNotCompleted)
}

// IsConflict checks if an error should return HTTP 409.
func IsConflict(err error) bool {
	var inProgress *GenerationInProgressError

	return errors.As(err, &inProgress)
}

// IsRateLimited checks if an error should return HTTP 429.
func IsRateLimited(err error) bool {
	var capErr *SpendCapError

	return errors.As(err, &capErr)
}

// IsDataQuality checks if an error reports an unusable plan.
func IsDataQuality(err error) bool {
	return errors.Is(err, ErrDataQuality)
}

// IsConversionError checks if an error comes from a format converter.
func IsConversionError(err error) bool {
	var conversionErr *export.ConversionError

	return errors.As(err, &conversionErr)
}

// IsValidationError checks if an error comes from the structural validator.
func IsValidationError(err error) bool {
	var validationErr *validate.ValidationError

	return errors.As(err, &validationErr)
}

// IsTooManyPoints checks if an error reports a route exceeding a preview service cap.
func IsTooManyPoints(err error) bool {
	var tooMany *links.TooManyPointsError

	return errors.As(err, &tooMany)
}
