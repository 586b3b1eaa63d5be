package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/roadbook/pkg/export"
	"github.com/dukex/roadbook/pkg/links"
	"github.com/dukex/roadbook/pkg/models"
	"github.com/dukex/roadbook/pkg/otelhelper"
	"github.com/dukex/roadbook/pkg/persistence"
	"github.com/dukex/roadbook/pkg/validate"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Download is an export document ready to be served.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Itineraries serves stored itineraries: version history, deletion, export downloads and preview links.
type Itineraries struct {
	persistence persistence.Persistence
	builders    []links.Builder
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewItineraries(logger *slog.Logger, persistence persistence.Persistence, builders []links.Builder) *Itineraries {
	if builders == nil {
		builders = links.Default()
	}

	return &Itineraries{
		persistence: persistence,
		builders:    builders,
		logger:      logger.With("module", "itineraries"),
		tracer:      otelhelper.Tracer("roadbook.itineraries"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Itineraries) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// List returns the versions generated for a note, newest first. Deleted versions are left out.
func (s *Itineraries) List(ctx context.Context, userID, noteID string) ([]Summary, error) {
	_, err := s.persistence.Notes().NoteByID(ctx, userID, noteID)
	if err != nil {
		if persistence.IsNoteNotFound(err) {
			return nil, ErrNoteNotFound
		}

		return nil, fmt.Errorf("failed to load note: %w", err)
	}

	itineraries, err := s.persistence.Itineraries().ListByNote(ctx, userID, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list itineraries: %w", err)
	}

	summaries := make([]Summary, 0, len(itineraries))
	for _, itinerary := range itineraries {
		summaries = append(summaries, newSummary(itinerary))
	}

	return summaries, nil
}

// Delete soft-deletes a completed, failed or cancelled itinerary.
func (s *Itineraries) Delete(ctx context.Context, userID, id string) error {
	err := s.persistence.Itineraries().SoftDelete(ctx, userID, id)
	if err != nil {
		switch {
		case persistence.IsItineraryNotFound(err):
			return ErrItineraryNotFound
		case errors.Is(err, persistence.ErrInvalidTransition), errors.Is(err, persistence.ErrStatusChanged):
			return newServiceError("Delete", "cannot_delete", "only finished itineraries can be deleted", ErrCannotDelete)
		default:
			return fmt.Errorf("failed to delete itinerary: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "Itinerary deleted", "itinerary_id", id, "user_id", userID)

	return nil
}

// Download converts a completed itinerary and validates the document before handing it out.
func (s *Itineraries) Download(ctx context.Context, userID, id string, format export.Format) (*Download, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "itineraries.download",
		attribute.String(otelhelper.ItineraryIDKey, id),
		attribute.String(otelhelper.FormatKey, string(format)),
	)
	defer span.End()

	itinerary, err := s.completed(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	body, err := export.Convert(format, itinerary.Route)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	err = validate.Must(format, body)
	if err != nil {
		otelhelper.SetError(span, err)
		s.logger.ErrorContext(ctx, "Stored route failed export validation", "itinerary_id", id, "format", format, "error", err)

		return nil, err
	}

	return &Download{
		Filename:    export.Filename(itinerary.Title, format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}

// PreviewLinks builds one preview link per configured service. Services the route does not fit carry a
// *links.TooManyPointsError instead of a URL.
func (s *Itineraries) PreviewLinks(ctx context.Context, userID, id string, mode links.Mode) ([]links.Result, error) {
	itinerary, err := s.completed(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	return links.BuildAll(s.builders, itinerary.Route, mode), nil
}

func (s *Itineraries) completed(ctx context.Context, userID, id string) (*models.Itinerary, error) {
	itinerary, err := s.persistence.Itineraries().GetByID(ctx, userID, id)
	if err != nil {
		if persistence.IsItineraryNotFound(err) {
			return nil, ErrItineraryNotFound
		}

		return nil, fmt.Errorf("failed to load itinerary: %w", err)
	}

	if itinerary.Status != models.ItineraryStatusCompleted || itinerary.Route == nil {
		return nil, newServiceError("Download", "not_completed", "itinerary is "+string(itinerary.Status), ErrNotCompleted)
	}

	return itinerary, nil
}
