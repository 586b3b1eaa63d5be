package planner

import (
	"errors"
	"fmt"

	"github.com/dukex/roadbook/pkg/models"
)

// ErrDataQuality indicates a plan that cannot be trusted to produce a faithful route.
var ErrDataQuality = errors.New("plan data quality too low")

// Thresholds bound how many defective segments a plan may carry and still be repaired.
type Thresholds struct {
	MaxMissingFraction float64 `yaml:"max_missing_fraction" validate:"gte=0,lte=1"`
	MaxInvalidFraction float64 `yaml:"max_invalid_fraction" validate:"gte=0,lte=1"`
}

// DefaultThresholds rejects plans with more than half the segments missing coordinates or more than
// 30% carrying out-of-range ones.
var DefaultThresholds = Thresholds{
	MaxMissingFraction: 0.5,
	MaxInvalidFraction: 0.3,
}

// QualityReport counts defective segments in a plan.
type QualityReport struct {
	Segments int
	Missing  int // at least one coordinate field absent
	Invalid  int // all fields present, at least one out of range
}

// MissingFraction returns Missing / Segments.
func (r QualityReport) MissingFraction() float64 {
	if r.Segments == 0 {
		return 0
	}

	return float64(r.Missing) / float64(r.Segments)
}

// InvalidFraction returns Invalid / Segments.
func (r QualityReport) InvalidFraction() float64 {
	if r.Segments == 0 {
		return 0
	}

	return float64(r.Invalid) / float64(r.Segments)
}

// QualityError reports which threshold a plan exceeded.
type QualityError struct {
	Report QualityReport
	Reason string
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDataQuality, e.Reason)
}

func (e *QualityError) Is(target error) bool {
	return target == ErrDataQuality
}

// Assess counts missing and invalid segments.
func Assess(plan *models.Plan) QualityReport {
	var report QualityReport

	for _, day := range plan.Days {
		for _, segment := range day.Segments {
			report.Segments++

			switch {
			case !segment.Start.Complete() || !segment.End.Complete():
				report.Missing++
			case !segment.Start.Coordinate().Valid() || !segment.End.Coordinate().Valid():
				report.Invalid++
			}
		}
	}

	return report
}

// Check returns a *QualityError when the report exceeds a threshold.
func (r QualityReport) Check(thresholds Thresholds) error {
	if r.MissingFraction() > thresholds.MaxMissingFraction {
		return &QualityError{
			Report: r,
			Reason: fmt.Sprintf("%d of %d segments are missing coordinates", r.Missing, r.Segments),
		}
	}

	if r.InvalidFraction() > thresholds.MaxInvalidFraction {
		return &QualityError{
			Report: r,
			Reason: fmt.Sprintf("%d of %d segments have out-of-range coordinates", r.Invalid, r.Segments),
		}
	}

	return nil
}

// Repair returns a copy of plan where every missing or out-of-range stop is replaced by a placeholder:
// the adjoining stop of the neighbouring segment when that one is usable, otherwise the centroid of all
// usable stops. The input plan is not modified.
func Repair(plan *models.Plan) *models.Plan {
	repaired := *plan
	repaired.Days = make([]models.PlanDay, len(plan.Days))

	var flat []*models.PlanSegment

	for i, day := range plan.Days {
		repaired.Days[i] = day
		repaired.Days[i].Segments = append([]models.PlanSegment(nil), day.Segments...)

		for j := range repaired.Days[i].Segments {
			flat = append(flat, &repaired.Days[i].Segments[j])
		}
	}

	centroid := usableCentroid(flat)

	for i, segment := range flat {
		if !usable(segment.Start) {
			placeholder := centroid
			if i > 0 && usable(flat[i-1].End) {
				placeholder = flat[i-1].End.Coordinate()
			}

			segment.Start = withCoordinate(segment.Start, placeholder)
		}

		if !usable(segment.End) {
			placeholder := centroid
			if i+1 < len(flat) && usable(flat[i+1].Start) {
				placeholder = flat[i+1].Start.Coordinate()
			}

			segment.End = withCoordinate(segment.End, placeholder)
		}
	}

	return &repaired
}

func usable(stop models.PlanStop) bool {
	return stop.Complete() && stop.Coordinate().Valid()
}

func withCoordinate(stop models.PlanStop, coordinate models.Coordinate) models.PlanStop {
	lat, lon := coordinate.Lat, coordinate.Lon

	return models.PlanStop{Name: stop.Name, Lat: &lat, Lon: &lon}
}

func usableCentroid(segments []*models.PlanSegment) models.Coordinate {
	var (
		sum   models.Coordinate
		count int
	)

	for _, segment := range segments {
		for _, stop := range []models.PlanStop{segment.Start, segment.End} {
			if usable(stop) {
				sum.Lat += *stop.Lat
				sum.Lon += *stop.Lon
				count++
			}
		}
	}

	if count == 0 {
		return models.Coordinate{}
	}

	return models.Coordinate{Lat: sum.Lat / float64(count), Lon: sum.Lon / float64(count)}
}
