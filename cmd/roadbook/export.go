package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dukex/roadbook/pkg/cmd"
	"github.com/dukex/roadbook/pkg/export"
	"github.com/dukex/roadbook/pkg/log"
	"github.com/dukex/roadbook/pkg/persistence"
	"github.com/dukex/roadbook/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func NewExportCommand() *cli.Command {
	return &cli.Command{
		Name:    "export",
		Aliases: []string{"e"},
		Usage:   "Write a completed itinerary as GPX, KML or GeoJSON",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "Owner of the itinerary",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "itinerary",
				Aliases:  []string{"i"},
				Usage:    "Itinerary ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Export format (gpx, kml, geojson)",
				Value:   string(export.FormatGPX),
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output file; - writes to stdout; defaults to a name derived from the title",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("roadbook-export")

			format, err := export.ParseFormat(command.String("format"))
			if err != nil {
				return err
			}

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			path, err := exportItinerary(ctx, store, command.String("user"), command.String("itinerary"), format,
				command.String("out"), command.Root().Writer)
			if err != nil {
				return err
			}

			if path != "-" {
				fmt.Fprintf(command.Root().ErrWriter, "wrote %s\n", path)
			}

			return nil
		},
	}
}

// exportItinerary writes the document to out, or to stdout when out is "-". It returns the path written.
func exportItinerary(
	ctx context.Context,
	store persistence.Persistence,
	userID, itineraryID string,
	format export.Format,
	out string,
	stdout io.Writer,
) (string, error) {
	itineraries := services.NewItineraries(log.WithModule("roadbook-export"), store, nil)

	download, err := itineraries.Download(ctx, userID, itineraryID, format)
	if err != nil {
		return "", err
	}

	if out == "-" {
		_, err = stdout.Write(download.Body)

		return out, err
	}

	if out == "" {
		out = download.Filename
	}

	err = os.WriteFile(out, download.Body, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", out, err)
	}

	return out, nil
}
