package models

// Plan is a candidate trip plan as produced by the plan-producing service. It is sparse: segments carry
// only their endpoints, and any coordinate may be missing.
type Plan struct {
	Title      string    `json:"title"`
	Summary    string    `json:"summary,omitempty"`
	Highlights []string  `json:"highlights,omitempty"`
	Days       []PlanDay `json:"days"`
}

// PlanDay groups the segments ridden on one day.
type PlanDay struct {
	Day      int           `json:"day"`
	Title    string        `json:"title,omitempty"`
	Segments []PlanSegment `json:"segments"`
}

// PlanSegment is one leg between two named stops.
type PlanSegment struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Start       PlanStop `json:"start"`
	End         PlanStop `json:"end"`
	DistanceKM  *float64 `json:"distance_km,omitempty"`
	DurationMin *float64 `json:"duration_min,omitempty"`
}

// PlanStop is a named location. Lat and Lon are nil when the service omitted them.
type PlanStop struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}

// Complete reports whether both coordinate fields are present.
func (s PlanStop) Complete() bool {
	return s.Lat != nil && s.Lon != nil
}

// Coordinate returns the stop position. Callers check Complete first.
func (s PlanStop) Coordinate() Coordinate {
	return Coordinate{Lat: *s.Lat, Lon: *s.Lon}
}

// SegmentCount returns the number of segments across all days.
func (p *Plan) SegmentCount() int {
	count := 0
	for _, day := range p.Days {
		count += len(day.Segments)
	}

	return count
}
