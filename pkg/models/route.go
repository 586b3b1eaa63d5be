package models

import (
	"errors"
	"fmt"
)

// ErrEmptyRoute indicates a route without any path or point feature.
var ErrEmptyRoute = errors.New("route has no features")

// Coordinate is a WGS84 position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate lies within latitude [-90,90] and longitude [-180,180].
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.6f,%.6f)", c.Lat, c.Lon)
}

// PointRole marks where a point feature sits within its segment.
type PointRole string

const (
	PointRoleStart        PointRole = "start"
	PointRoleIntermediate PointRole = "intermediate"
	PointRoleEnd          PointRole = "end"
)

// PathFeature is one densified segment of a day's ride.
type PathFeature struct {
	Coordinates  []Coordinate `json:"coordinates"`
	Day          int          `json:"day"`
	SegmentIndex int          `json:"segment_index"`
	Name         string       `json:"name"`
	Description  string       `json:"description,omitempty"`
	DistanceKM   float64      `json:"distance_km"`
	DurationMin  int          `json:"duration_min"`
}

// PointFeature is a single labelled position on the route.
type PointFeature struct {
	Coordinate   Coordinate `json:"coordinate"`
	Role         PointRole  `json:"role"`
	Label        string     `json:"label"`
	Day          int        `json:"day"`
	SegmentIndex int        `json:"segment_index"`
}

// Named reports whether the point belongs to the named-waypoint view.
func (p PointFeature) Named() bool {
	return p.Role == PointRoleStart || p.Role == PointRoleEnd
}

// Route is the canonical route representation every export and preview link derives from.
type Route struct {
	Title            string         `json:"title"`
	TotalDistanceKM  float64        `json:"total_distance_km"`
	TotalDurationMin int            `json:"total_duration_min"`
	Highlights       []string       `json:"highlights"`
	Paths            []PathFeature  `json:"paths"`
	Points           []PointFeature `json:"points"`
}

// FeatureCount returns the number of path and point features.
func (r *Route) FeatureCount() int {
	if r == nil {
		return 0
	}

	return len(r.Paths) + len(r.Points)
}

// Waypoints returns the named-waypoint view: segment start and end points in visiting order, with the
// shared point at a segment join kept once.
func (r *Route) Waypoints() []PointFeature {
	if r == nil {
		return nil
	}

	waypoints := make([]PointFeature, 0, len(r.Points))

	for _, point := range r.Points {
		if !point.Named() {
			continue
		}

		if n := len(waypoints); n > 0 && waypoints[n-1].Coordinate == point.Coordinate {
			continue
		}

		waypoints = append(waypoints, point)
	}

	return waypoints
}

// FullPath returns the full-path view: every coordinate of every path feature in visiting order, with the
// shared point at a segment join kept once.
func (r *Route) FullPath() []Coordinate {
	if r == nil {
		return nil
	}

	path := make([]Coordinate, 0)

	for _, feature := range r.Paths {
		for _, coordinate := range feature.Coordinates {
			if n := len(path); n > 0 && path[n-1] == coordinate {
				continue
			}

			path = append(path, coordinate)
		}
	}

	return path
}

// Coordinates returns every coordinate held by the route, paths first.
func (r *Route) Coordinates() []Coordinate {
	if r == nil {
		return nil
	}

	all := make([]Coordinate, 0, len(r.Points))
	for _, feature := range r.Paths {
		all = append(all, feature.Coordinates...)
	}

	for _, point := range r.Points {
		all = append(all, point.Coordinate)
	}

	return all
}

// Validate checks the invariants a route must satisfy before it can be committed as complete.
func (r *Route) Validate() error {
	if r.FeatureCount() == 0 {
		return ErrEmptyRoute
	}

	for _, coordinate := range r.Coordinates() {
		if !coordinate.Valid() {
			return fmt.Errorf("coordinate %s out of range", coordinate)
		}
	}

	return nil
}
