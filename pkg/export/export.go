// Package export converts a canonical route into GPX, KML and GeoJSON documents.
package export

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dukex/roadbook/pkg/models"
)

// Format is a supported export format.
type Format string

const (
	FormatGPX     Format = "gpx"
	FormatKML     Format = "kml"
	FormatGeoJSON Format = "geojson"
)

// Formats lists every supported format in a stable order.
var Formats = []Format{FormatGPX, FormatKML, FormatGeoJSON}

// ErrUnknownFormat is returned for a format name that is not supported.
var ErrUnknownFormat = errors.New("unknown export format")

// ParseFormat resolves a format name or file extension (with or without the leading dot).
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "gpx":
		return FormatGPX, nil
	case "kml":
		return FormatKML, nil
	case "geojson", "json":
		return FormatGeoJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// ContentType returns the media type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatGPX:
		return "application/gpx+xml"
	case FormatKML:
		return "application/vnd.google-earth.kml+xml"
	case FormatGeoJSON:
		return "application/geo+json"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension, including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// ConversionError reports a route that cannot be expressed in a format. No output is produced.
type ConversionError struct {
	Format Format
	Reason string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert route to %s: %s", e.Format, e.Reason)
}

// Convert renders the route in the given format.
func Convert(format Format, route *models.Route) ([]byte, error) {
	if err := convertible(format, route); err != nil {
		return nil, err
	}

	switch format {
	case FormatGPX:
		return toGPX(route)
	case FormatKML:
		return toKML(route)
	case FormatGeoJSON:
		return toGeoJSON(route)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func convertible(format Format, route *models.Route) error {
	if route == nil || len(route.FullPath()) == 0 {
		return &ConversionError{Format: format, Reason: "route has no coordinates"}
	}

	for _, coordinate := range route.Coordinates() {
		if !coordinate.Valid() {
			return &ConversionError{Format: format, Reason: fmt.Sprintf("coordinate %s out of range", coordinate)}
		}
	}

	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9]+`)

// Filename builds a download filename from the route title.
func Filename(title string, format Format) string {
	slug := strings.Trim(unsafeFilenameChars.ReplaceAllString(strings.ToLower(title), "-"), "-")
	if slug == "" {
		slug = "route"
	}

	return slug + format.Extension()
}
