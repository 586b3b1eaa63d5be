// Package links builds preview URLs for external map services from a canonical route.
package links

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dukex/roadbook/pkg/models"
)

// Mode is a transport-mode hint forwarded to the map service.
type Mode string

const (
	ModeMotorcycle Mode = "motorcycle"
	ModeCar        Mode = "car"
	ModeBicycle    Mode = "bicycle"
)

// ParseMode resolves a mode name, defaulting to motorcycle when empty.
func ParseMode(name string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(name))) {
	case "", ModeMotorcycle:
		return ModeMotorcycle, nil
	case ModeCar:
		return ModeCar, nil
	case ModeBicycle:
		return ModeBicycle, nil
	default:
		return "", fmt.Errorf("unknown transport mode %q", name)
	}
}

// TooManyPointsError is returned when a route has more full-path points than a service accepts.
type TooManyPointsError struct {
	Service string
	Points  int
	Max     int
}

func (e *TooManyPointsError) Error() string {
	return fmt.Sprintf("%s accepts at most %d points, route has %d", e.Service, e.Max, e.Points)
}

// Builder produces a preview URL for one map service.
type Builder interface {
	Service() string
	MaxPoints() int
	Build(route *models.Route, mode Mode) (string, error)
}

// Default returns every supported builder.
func Default() []Builder {
	return []Builder{GoogleMaps{}, Kurviger{}}
}

func checkPoints(b Builder, route *models.Route) ([]models.Coordinate, error) {
	path := route.FullPath()

	if len(path) < 2 {
		return nil, fmt.Errorf("%s needs at least 2 points, route has %d", b.Service(), len(path))
	}

	if len(path) > b.MaxPoints() {
		return nil, &TooManyPointsError{Service: b.Service(), Points: len(path), Max: b.MaxPoints()}
	}

	return path, nil
}

func latLon(c models.Coordinate) string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lon, 'f', 6, 64)
}

// GoogleMaps builds a directions URL: origin, destination and up to 9 waypoints.
type GoogleMaps struct{}

const googleMapsMaxWaypoints = 9

func (GoogleMaps) Service() string { return "google_maps" }

func (GoogleMaps) MaxPoints() int { return googleMapsMaxWaypoints + 2 }

func (g GoogleMaps) Build(route *models.Route, mode Mode) (string, error) {
	path, err := checkPoints(g, route)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	query.Set("api", "1")
	query.Set("origin", latLon(path[0]))
	query.Set("destination", latLon(path[len(path)-1]))

	if len(path) > 2 {
		waypoints := make([]string, 0, len(path)-2)
		for _, coordinate := range path[1 : len(path)-1] {
			waypoints = append(waypoints, latLon(coordinate))
		}

		query.Set("waypoints", strings.Join(waypoints, "|"))
	}

	travelMode := "driving"
	if mode == ModeBicycle {
		travelMode = "bicycling"
	}

	query.Set("travelmode", travelMode)

	return "https://www.google.com/maps/dir/?" + query.Encode(), nil
}

// Kurviger builds a planner URL with one point parameter per full-path coordinate.
type Kurviger struct{}

func (Kurviger) Service() string { return "kurviger" }

func (Kurviger) MaxPoints() int { return 25 }

func (k Kurviger) Build(route *models.Route, mode Mode) (string, error) {
	path, err := checkPoints(k, route)
	if err != nil {
		return "", err
	}

	query := url.Values{}
	for _, coordinate := range path {
		query.Add("point", latLon(coordinate))
	}

	switch mode {
	case ModeCar:
		query.Set("vehicle", "car")
		query.Set("weighting", "fastest")
	case ModeBicycle:
		query.Set("vehicle", "bike")
		query.Set("weighting", "fastest")
	default:
		query.Set("vehicle", "motorcycle")
		query.Set("weighting", "curvaturefastest")
	}

	return "https://kurviger.de/en?" + query.Encode(), nil
}

// Result is the outcome of one builder. Err is a *TooManyPointsError when the route does not fit.
type Result struct {
	Service string `json:"service"`
	URL     string `json:"url,omitempty"`
	Err     error  `json:"-"`
}

// BuildAll runs every builder against the route.
func BuildAll(builders []Builder, route *models.Route, mode Mode) []Result {
	results := make([]Result, 0, len(builders))

	for _, builder := range builders {
		link, err := builder.Build(route, mode)
		results = append(results, Result{Service: builder.Service(), URL: link, Err: err})
	}

	return results
}
