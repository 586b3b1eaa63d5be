package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/roadbook/pkg/export"
	"github.com/dukex/roadbook/pkg/links"
	"github.com/dukex/roadbook/pkg/planner"
	"github.com/dukex/roadbook/pkg/validate"
	"github.com/stretchr/testify/assert"
)

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"note not found", ErrNoteNotFound, IsNotFound},
		{"itinerary not found", fmt.Errorf("load: %w", ErrItineraryNotFound), IsNotFound},
		{"invalid request", newServiceError("op", "code", "msg", ErrInvalidRequest), IsBadRequest},
		{"unknown format", export.ErrUnknownFormat, IsBadRequest},
		{"preferences missing", ErrPreferencesMissing, IsPreconditionFailed},
		{"cannot cancel", newServiceError("op", "code", "msg", ErrCannotCancel), IsPreconditionFailed},
		{"cannot delete", ErrCannotDelete, IsPreconditionFailed},
		{"not completed", ErrNotCompleted, IsPreconditionFailed},
		{"in progress", &GenerationInProgressError{ActiveRequestID: "r"}, IsConflict},
		{"spend cap", fmt.Errorf("start: %w", &SpendCapError{SpentUSD: 5, CapUSD: 5}), IsRateLimited},
		{"data quality", &planner.QualityError{Reason: "too sparse"}, IsDataQuality},
		{"conversion", &export.ConversionError{Format: export.FormatGPX, Reason: "empty"}, IsConversionError},
		{"validation", &validate.ValidationError{Format: export.FormatKML, Problem: "no namespace"}, IsValidationError},
		{"too many points", &links.TooManyPointsError{Service: "google_maps", Points: 12, Max: 11}, IsTooManyPoints},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
		})
	}

	plain := errors.New("boom")
	for _, tt := range tests {
		assert.False(t, tt.check(plain), tt.name)
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "a generation is already in progress for request req-1",
		(&GenerationInProgressError{ActiveRequestID: "req-1"}).Error())
	assert.Equal(t, "a generation is already in progress", (&GenerationInProgressError{}).Error())
	assert.Equal(t, "monthly spend cap reached: 5.10 of 5.00 USD", (&SpendCapError{SpentUSD: 5.1, CapUSD: 5}).Error())
	assert.Equal(t, "Delete: only finished itineraries can be deleted",
		newServiceError("Delete", "cannot_delete", "only finished itineraries can be deleted", ErrCannotDelete).Error())
}
