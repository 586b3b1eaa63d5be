package web

import (
	"errors"

	"github.com/dukex/roadbook/pkg/services"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

const problemContentType = "application/problem+json"

func problem(c fiber.Ctx, status int, problemType, detail string) error {
	body := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(problemType).
		WithDetail(detail)

	return c.Status(status).JSON(body, problemContentType)
}

func badRequest(c fiber.Ctx, detail string) error {
	return problem(c, fiber.StatusBadRequest, "validation_error", detail)
}

func unauthorized(c fiber.Ctx) error {
	return problem(c, fiber.StatusUnauthorized, "unauthorized", UserIDHeader+" header is required")
}

func internalError(c fiber.Ctx, err error) error {
	body := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(body, problemContentType)
}

// handleServiceError maps the service error taxonomy onto HTTP statuses.
func handleServiceError(c fiber.Ctx, err error) error {
	switch {
	case services.IsNotFound(err):
		if errors.Is(err, services.ErrNoteNotFound) {
			return problem(c, fiber.StatusNotFound, "note_not_found", "note not found")
		}

		return problem(c, fiber.StatusNotFound, "itinerary_not_found", "itinerary not found")

	case services.IsBadRequest(err):
		return badRequest(c, err.Error())

	case services.IsPreconditionFailed(err):
		return problem(c, fiber.StatusPreconditionFailed, "precondition_failed", err.Error())

	case services.IsConflict(err):
		return problem(c, fiber.StatusConflict, "generation_in_progress", err.Error())

	case services.IsRateLimited(err):
		return problem(c, fiber.StatusTooManyRequests, "spend_cap_reached", err.Error())

	case services.IsDataQuality(err):
		return problem(c, fiber.StatusUnprocessableEntity, "data_quality", err.Error())

	case services.IsConversionError(err):
		return problem(c, fiber.StatusUnprocessableEntity, "conversion_error", err.Error())

	case services.IsValidationError(err):
		return problem(c, fiber.StatusUnprocessableEntity, "export_validation_error", err.Error())

	case services.IsTooManyPoints(err):
		return problem(c, fiber.StatusUnprocessableEntity, "too_many_points", err.Error())

	default:
		return internalError(c, err)
	}
}
