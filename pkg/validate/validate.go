// Package validate performs structural checks on exported route documents before they are stored or served.
package validate

import (
	"fmt"
	"strings"

	"github.com/dukex/roadbook/pkg/export"
)

// Result lists the problems found in a document. Errors make it unusable; warnings do not.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidationError is returned by Must for a document with at least one error.
type ValidationError struct {
	Format  export.Format
	Problem string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s document: %s", e.Format, e.Problem)
}

// Document checks data as a document of the given format and collects every problem found.
func Document(format export.Format, data []byte) Result {
	var result Result

	switch format {
	case export.FormatGPX:
		checkGPX(data, &result)
	case export.FormatKML:
		checkKML(data, &result)
	case export.FormatGeoJSON:
		checkGeoJSON(data, &result)
	default:
		result.errorf("unsupported format %q", format)
	}

	result.Valid = len(result.Errors) == 0

	return result
}

// Must returns a *ValidationError describing the first error in the document, or nil when it is valid.
func Must(format export.Format, data []byte) error {
	result := Document(format, data)
	if result.Valid {
		return nil
	}

	return &ValidationError{Format: format, Problem: result.Errors[0]}
}

// String renders the result as one line per problem.
func (r Result) String() string {
	var b strings.Builder

	for _, e := range r.Errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}

	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}

	return b.String()
}

func checkRange(result *Result, where string, lat, lon float64) {
	if lat < -90 || lat > 90 {
		result.errorf("%s: latitude %g out of range [-90,90]", where, lat)
	}

	if lon < -180 || lon > 180 {
		result.errorf("%s: longitude %g out of range [-180,180]", where, lon)
	}
}
