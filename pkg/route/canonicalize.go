// Package route turns a sparse candidate plan into the canonical route representation.
package route

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/dukex/roadbook/pkg/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const (
	// maxIntermediatePoints caps densification on long segments.
	maxIntermediatePoints = 5

	// averageSpeedKMH estimates a segment duration when the plan omits it.
	averageSpeedKMH = 60.0

	// MaxSegmentDistanceKM and MaxSegmentDurationMin bound the figures a plan may state for one segment.
	// Larger values are ignored in favour of the computed estimates.
	MaxSegmentDistanceKM  = 20000.0
	MaxSegmentDurationMin = 43200.0

	defaultTitle = "Untitled route"
)

var (
	// ErrNoSegments indicates a plan without any segment.
	ErrNoSegments = errors.New("plan has no segments")

	// ErrIncompleteSegment indicates a segment whose endpoints still lack coordinates.
	ErrIncompleteSegment = errors.New("segment has incomplete coordinates")
)

// IntermediateCount returns how many interpolated points a segment of the given length receives.
// Enough points keep a navigation device on the intended corridor without flooding simple waypoint lists.
func IntermediateCount(distanceKM float64) int {
	switch {
	case distanceKM < 20:
		return 1
	case distanceKM < 50:
		return 2
	case distanceKM < 100:
		return 3
	case distanceKM >= 30*maxIntermediatePoints || math.IsNaN(distanceKM):
		return maxIntermediatePoints
	default:
		return int(math.Floor(distanceKM / 30))
	}
}

// Interpolate returns the point at fraction t along the straight line from start to end in coordinate space.
func Interpolate(start, end models.Coordinate, t float64) models.Coordinate {
	return models.Coordinate{
		Lat: start.Lat + (end.Lat-start.Lat)*t,
		Lon: start.Lon + (end.Lon-start.Lon)*t,
	}
}

// Densify returns start, n intermediate points at i/(n+1), and end.
func Densify(start, end models.Coordinate, n int) []models.Coordinate {
	coordinates := make([]models.Coordinate, 0, n+2)
	coordinates = append(coordinates, start)

	for i := 1; i <= n; i++ {
		coordinates = append(coordinates, Interpolate(start, end, float64(i)/float64(n+1)))
	}

	return append(coordinates, end)
}

// HaversineKM returns the great-circle distance between two coordinates in kilometres.
func HaversineKM(a, b models.Coordinate) float64 {
	return geo.DistanceHaversine(orb.Point{a.Lon, a.Lat}, orb.Point{b.Lon, b.Lat}) / 1000
}

// Canonicalize converts a plan whose segments all carry complete coordinates into a Route. Each segment
// yields one path feature and start, intermediate and end point features built from the same coordinate
// slice, so the named-waypoint and full-path views never drift apart.
func Canonicalize(plan *models.Plan) (*models.Route, error) {
	if plan == nil || plan.SegmentCount() == 0 {
		return nil, ErrNoSegments
	}

	route := &models.Route{
		Title:      strings.TrimSpace(plan.Title),
		Highlights: append([]string{}, plan.Highlights...),
	}

	if route.Title == "" {
		route.Title = defaultTitle
	}

	for dayIndex, day := range plan.Days {
		dayNumber := day.Day
		if dayNumber <= 0 {
			dayNumber = dayIndex + 1
		}

		for segmentIndex, segment := range day.Segments {
			if !segment.Start.Complete() || !segment.End.Complete() {
				return nil, fmt.Errorf("day %d segment %d: %w", dayNumber, segmentIndex, ErrIncompleteSegment)
			}

			path, points := canonicalSegment(dayNumber, segmentIndex, segment)

			route.Paths = append(route.Paths, path)
			route.Points = append(route.Points, points...)
			route.TotalDistanceKM += path.DistanceKM
			route.TotalDurationMin += path.DurationMin
		}
	}

	route.TotalDistanceKM = math.Round(route.TotalDistanceKM*10) / 10

	return route, nil
}

func canonicalSegment(day, index int, segment models.PlanSegment) (models.PathFeature, []models.PointFeature) {
	start := segment.Start.Coordinate()
	end := segment.End.Coordinate()

	distance := HaversineKM(start, end)
	if segment.DistanceKM != nil && *segment.DistanceKM > 0 && *segment.DistanceKM <= MaxSegmentDistanceKM {
		distance = *segment.DistanceKM
	}

	duration := int(math.Round(distance / averageSpeedKMH * 60))
	if segment.DurationMin != nil && *segment.DurationMin > 0 && *segment.DurationMin <= MaxSegmentDurationMin {
		duration = int(math.Round(*segment.DurationMin))
	}

	n := IntermediateCount(distance)
	coordinates := Densify(start, end, n)

	name := strings.TrimSpace(segment.Name)
	if name == "" {
		name = fmt.Sprintf("%s to %s", stopLabel(segment.Start, day, "start"), stopLabel(segment.End, day, "end"))
	}

	path := models.PathFeature{
		Coordinates:  coordinates,
		Day:          day,
		SegmentIndex: index,
		Name:         name,
		Description:  strings.TrimSpace(segment.Description),
		DistanceKM:   distance,
		DurationMin:  duration,
	}

	points := make([]models.PointFeature, 0, len(coordinates))
	for i, coordinate := range coordinates {
		point := models.PointFeature{
			Coordinate:   coordinate,
			Day:          day,
			SegmentIndex: index,
		}

		switch i {
		case 0:
			point.Role = models.PointRoleStart
			point.Label = stopLabel(segment.Start, day, "start")
		case len(coordinates) - 1:
			point.Role = models.PointRoleEnd
			point.Label = stopLabel(segment.End, day, "end")
		default:
			point.Role = models.PointRoleIntermediate
			point.Label = fmt.Sprintf("Day %d segment %d via %d", day, index+1, i)
		}

		points = append(points, point)
	}

	return path, points
}

func stopLabel(stop models.PlanStop, day int, fallback string) string {
	if name := strings.TrimSpace(stop.Name); name != "" {
		return name
	}

	return fmt.Sprintf("Day %d %s", day, fallback)
}
