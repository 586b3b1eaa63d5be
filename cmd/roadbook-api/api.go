// Package main provides the Roadbook API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/roadbook/pkg/persistence"
	"github.com/dukex/roadbook/pkg/services"
	"github.com/dukex/roadbook/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	generation  *services.Generation
	validate    *validator.Validate
	app         *fiber.App
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	generation *services.Generation,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		generation:  generation,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	itinerariesService := services.NewItineraries(a.logger, a.persistence, nil)

	handlers := web.NewAPIHandlers(a.generation, itinerariesService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Roadbook API")
	})

	handlers.Register(app)

	return app
}

// Start serves until ctx is cancelled, then shuts the server down.
func (a *API) Start(ctx context.Context, port int) error {
	a.app = a.App()

	go func() {
		<-ctx.Done()

		err := a.app.Shutdown()
		if err != nil {
			a.logger.Error("Failed to shut down API", "error", err)
		}
	}()

	return a.app.Listen(":" + strconv.Itoa(port))
}
