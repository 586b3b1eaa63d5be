package route

import (
	"math"
	"testing"

	"github.com/dukex/roadbook/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func stop(name string, lat, lon float64) models.PlanStop {
	return models.PlanStop{Name: name, Lat: ptr(lat), Lon: ptr(lon)}
}

func TestIntermediateCount(t *testing.T) {
	tests := []struct {
		distance float64
		want     int
	}{
		{0, 1},
		{15, 1},
		{19.99, 1},
		{20, 2},
		{35, 2},
		{50, 3},
		{75, 3},
		{99.9, 3},
		{100, 3},
		{120, 4},
		{150, 5},
		{500, 5},
		{1e300, 5},
		{math.Inf(1), 5},
		{math.NaN(), 5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IntermediateCount(tt.distance), "distance %.2f", tt.distance)
	}
}

func TestInterpolate_Midpoint(t *testing.T) {
	got := Interpolate(models.Coordinate{Lat: 50.0, Lon: 20.0}, models.Coordinate{Lat: 49.0, Lon: 19.0}, 0.5)

	assert.Equal(t, models.Coordinate{Lat: 49.5, Lon: 19.5}, got)
}

func TestDensify(t *testing.T) {
	start := models.Coordinate{Lat: 0, Lon: 0}
	end := models.Coordinate{Lat: 4, Lon: 8}

	got := Densify(start, end, 3)

	require.Len(t, got, 5)
	assert.Equal(t, start, got[0])
	assert.Equal(t, models.Coordinate{Lat: 1, Lon: 2}, got[1])
	assert.Equal(t, models.Coordinate{Lat: 2, Lon: 4}, got[2])
	assert.Equal(t, models.Coordinate{Lat: 3, Lon: 6}, got[3])
	assert.Equal(t, end, got[4])
}

func TestCanonicalize(t *testing.T) {
	plan := &models.Plan{
		Title:      "Tatra loop",
		Highlights: []string{"Zakopane"},
		Days: []models.PlanDay{
			{
				Day: 1,
				Segments: []models.PlanSegment{
					{
						Name:        "Krakow to Nowy Targ",
						Start:       stop("Krakow", 50.06, 19.94),
						End:         stop("Nowy Targ", 49.48, 20.03),
						DistanceKM:  ptr(75.0),
						DurationMin: ptr(90.0),
					},
					{
						Start:      stop("Nowy Targ", 49.48, 20.03),
						End:        stop("Zakopane", 49.29, 19.95),
						DistanceKM: ptr(15.0),
					},
				},
			},
			{
				Day: 2,
				Segments: []models.PlanSegment{
					{
						Name:       "Back north",
						Start:      stop("Zakopane", 49.29, 19.95),
						End:        stop("Krakow", 50.06, 19.94),
						DistanceKM: ptr(150.0),
					},
				},
			},
		},
	}

	route, err := Canonicalize(plan)
	require.NoError(t, err)

	assert.Equal(t, "Tatra loop", route.Title)
	assert.Equal(t, []string{"Zakopane"}, route.Highlights)
	require.Len(t, route.Paths, 3)

	assert.Len(t, route.Paths[0].Coordinates, 3+2)
	assert.Len(t, route.Paths[1].Coordinates, 1+2)
	assert.Len(t, route.Paths[2].Coordinates, 5+2)

	assert.Equal(t, "Nowy Targ to Zakopane", route.Paths[1].Name)
	assert.Equal(t, 2, route.Paths[2].Day)
	assert.Equal(t, 90, route.Paths[0].DurationMin)
	assert.Equal(t, 15, route.Paths[1].DurationMin)
	assert.InDelta(t, 240.0, route.TotalDistanceKM, 0.001)
	assert.Equal(t, 90+15+150, route.TotalDurationMin)

	// Both views reference the same coordinates.
	pathSet := map[models.Coordinate]bool{}
	for _, c := range route.FullPath() {
		pathSet[c] = true
	}

	for _, point := range route.Points {
		assert.True(t, pathSet[point.Coordinate], "point %s not on the full path", point.Coordinate)
	}

	waypoints := route.Waypoints()
	labels := make([]string, 0, len(waypoints))

	for _, wp := range waypoints {
		labels = append(labels, wp.Label)
	}

	assert.Equal(t, []string{"Krakow", "Nowy Targ", "Zakopane", "Krakow"}, labels)
	assert.Len(t, route.FullPath(), 5+3+7-2)
}

func TestCanonicalize_DistanceFallsBackToHaversine(t *testing.T) {
	plan := &models.Plan{
		Days: []models.PlanDay{{Segments: []models.PlanSegment{{
			Start: stop("A", 0, 0),
			End:   stop("B", 0, 1),
		}}}},
	}

	route, err := Canonicalize(plan)
	require.NoError(t, err)

	assert.Equal(t, "Untitled route", route.Title)
	assert.Equal(t, 1, route.Paths[0].Day)
	assert.InDelta(t, 111.2, route.Paths[0].DistanceKM, 0.5)
	assert.Len(t, route.Paths[0].Coordinates, 3+2)
}

func TestCanonicalize_IgnoresOutOfBoundFigures(t *testing.T) {
	plan := &models.Plan{
		Days: []models.PlanDay{{Segments: []models.PlanSegment{{
			Start:       stop("Krakow", 50, 20),
			End:         stop("Tarnow", 49, 19),
			DistanceKM:  ptr(1e300),
			DurationMin: ptr(1e300),
		}}}},
	}

	var route *models.Route
	var err error
	require.NotPanics(t, func() { route, err = Canonicalize(plan) })
	require.NoError(t, err)

	path := route.Paths[0]
	assert.InDelta(t, 131.0, path.DistanceKM, 5)
	assert.Positive(t, path.DurationMin)
	assert.LessOrEqual(t, float64(path.DurationMin), MaxSegmentDurationMin)
	assert.Len(t, path.Coordinates, 4+2)
}

func TestCanonicalize_Errors(t *testing.T) {
	_, err := Canonicalize(nil)
	assert.ErrorIs(t, err, ErrNoSegments)

	_, err = Canonicalize(&models.Plan{Days: []models.PlanDay{{Day: 1}}})
	assert.ErrorIs(t, err, ErrNoSegments)

	_, err = Canonicalize(&models.Plan{Days: []models.PlanDay{{Segments: []models.PlanSegment{{
		Start: models.PlanStop{Name: "A"},
		End:   stop("B", 1, 1),
	}}}}})
	assert.ErrorIs(t, err, ErrIncompleteSegment)
}
