package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dukex/roadbook/pkg/export"
	"github.com/dukex/roadbook/pkg/validate"
	"github.com/fatih/color"
	cli "github.com/urfave/cli/v3"
)

var errInvalidDocuments = errors.New("one or more documents are invalid")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Check GPX, KML and GeoJSON files",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Format of every file (gpx, kml, geojson); detected from the extension when empty",
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			if command.NArg() == 0 {
				return errors.New("at least one file is required")
			}

			return validateFiles(command.Root().Writer, command.Args().Slice(), command.String("format"))
		},
	}
}

// validateFiles reports on every file and fails when any of them has an error.
func validateFiles(w io.Writer, paths []string, formatName string) error {
	failed := 0

	for _, path := range paths {
		ok, err := validateFile(w, path, formatName)
		if err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", color.New(color.FgRed).Sprint("ERROR"), path, err)
		}

		if !ok {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", errInvalidDocuments, failed, len(paths))
	}

	return nil
}

func validateFile(w io.Writer, path, formatName string) (bool, error) {
	if formatName == "" {
		formatName = filepath.Ext(path)
	}

	format, err := export.ParseFormat(formatName)
	if err != nil {
		return false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	result := validate.Document(format, data)

	status := color.New(color.FgGreen).Sprint("OK")
	if !result.Valid {
		status = color.New(color.FgRed).Sprint("INVALID")
	}

	fmt.Fprintf(w, "%s %s (%s)\n", status, path, format)

	for _, problem := range result.Errors {
		fmt.Fprintf(w, "  %s %s\n", color.New(color.FgRed).Sprint("error:"), problem)
	}

	for _, problem := range result.Warnings {
		fmt.Fprintf(w, "  %s %s\n", color.New(color.FgYellow).Sprint("warning:"), problem)
	}

	return result.Valid, nil
}
