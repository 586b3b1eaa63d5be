// Package web provides HTTP handlers for itinerary generation, history, exports and preview links.
package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/roadbook/pkg/export"
	"github.com/dukex/roadbook/pkg/links"
	"github.com/dukex/roadbook/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const userIDLocal = "user_id"

type APIHandlers struct {
	generationService  *services.Generation
	itinerariesService *services.Itineraries
	validator          *validator.Validate
}

func NewAPIHandlers(
	generationService *services.Generation,
	itinerariesService *services.Itineraries,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		generationService:  generationService,
		itinerariesService: itinerariesService,
		validator:          validator,
	}
}

// Register mounts the itinerary routes. Every route except the health check requires UserIDHeader.
func (h *APIHandlers) Register(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	notes := router.Group("/notes", h.RequireUser)
	notes.Post("/:noteId/itineraries", h.StartGeneration)
	notes.Get("/:noteId/itineraries", h.ListItineraries)

	itineraries := router.Group("/itineraries", h.RequireUser)
	itineraries.Get("/:id", h.GetItinerary)
	itineraries.Post("/:id/cancel", h.CancelGeneration)
	itineraries.Delete("/:id", h.DeleteItinerary)
	itineraries.Get("/:id/export/:format", h.ExportItinerary)
	itineraries.Get("/:id/links", h.PreviewLinks)
}

// RequireUser rejects requests without a user and stores it for the handlers.
func (h *APIHandlers) RequireUser(c fiber.Ctx) error {
	userID := strings.TrimSpace(c.Get(UserIDHeader))
	if userID == "" {
		return unauthorized(c)
	}

	c.Locals(userIDLocal, userID)

	return c.Next()
}

func currentUser(c fiber.Ctx) string {
	userID, _ := c.Locals(userIDLocal).(string)

	return userID
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.itinerariesService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Roadbook API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Roadbook API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) StartGeneration(c fiber.Ctx) error {
	var req StartGenerationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	itinerary, err := h.generationService.StartGeneration(c.Context(), services.StartRequest{
		UserID:      currentUser(c),
		NoteID:      c.Params("noteId"),
		RequestID:   req.RequestID,
		Preferences: req.Preferences,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	httpStatus := http.StatusOK
	if !itinerary.Status.IsTerminal() {
		httpStatus = http.StatusAccepted
	}

	return c.Status(httpStatus).JSON(services.NewStatusView(itinerary))
}

func (h *APIHandlers) ListItineraries(c fiber.Ctx) error {
	summaries, err := h.itinerariesService.List(c.Context(), currentUser(c), c.Params("noteId"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ListItinerariesResponse{Itineraries: summaries})
}

func (h *APIHandlers) GetItinerary(c fiber.Ctx) error {
	view, err := h.generationService.GetStatus(c.Context(), currentUser(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(view)
}

func (h *APIHandlers) CancelGeneration(c fiber.Ctx) error {
	itinerary, err := h.generationService.CancelGeneration(c.Context(), currentUser(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(services.NewStatusView(itinerary))
}

func (h *APIHandlers) DeleteItinerary(c fiber.Ctx) error {
	err := h.itinerariesService.Delete(c.Context(), currentUser(c), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(http.StatusNoContent)
}

func (h *APIHandlers) ExportItinerary(c fiber.Ctx) error {
	format, err := export.ParseFormat(c.Params("format"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	download, err := h.itinerariesService.Download(c.Context(), currentUser(c), c.Params("id"), format)
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Set(fiber.HeaderContentType, download.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", download.Filename))

	return c.Send(download.Body)
}

func (h *APIHandlers) PreviewLinks(c fiber.Ctx) error {
	mode, err := links.ParseMode(c.Query("mode"))
	if err != nil {
		return badRequest(c, err.Error())
	}

	results, err := h.itinerariesService.PreviewLinks(c.Context(), currentUser(c), c.Params("id"), mode)
	if err != nil {
		return handleServiceError(c, err)
	}

	response := LinksResponse{Mode: string(mode), Links: make([]LinkResponse, 0, len(results))}

	for _, result := range results {
		link := LinkResponse{Service: result.Service, URL: result.URL}

		if result.Err != nil {
			link.Error = result.Err.Error()

			var tooMany *links.TooManyPointsError
			if errors.As(result.Err, &tooMany) {
				link.MaxPoints = tooMany.Max
				link.Points = tooMany.Points
			}
		}

		response.Links = append(response.Links, link)
	}

	return c.JSON(response)
}
