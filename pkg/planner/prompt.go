package planner

import (
	"fmt"
	"strings"
	"text/template"
)

const systemPrompt = `You are a motorcycle trip planner.
Turn the rider's trip note into a multi-day riding plan.

Output MUST be JSON only (no markdown), with this schema:
{
  "title": "short human readable title",
  "summary": "one or two sentences",
  "highlights": ["notable places or roads"],
  "days": [
    {
      "day": 1,
      "title": "optional day title",
      "segments": [
        {
          "name": "segment name",
          "description": "what makes this leg worth riding",
          "start": {"name": "place", "lat": 0.0, "lon": 0.0},
          "end": {"name": "place", "lat": 0.0, "lon": 0.0},
          "distance_km": 0,
          "duration_min": 0
        }
      ]
    }
  ]
}

Rules:
- Every segment MUST have decimal WGS84 lat/lon for start and end.
- The end of a segment is the start of the next one.
- Respect the rider's preferences and the structural limits below.
- Return only valid JSON.`

// SystemPrompt returns the instructions sent ahead of every trip note.
func SystemPrompt(constraints Constraints) string {
	return fmt.Sprintf("%s\n- At most %d segments per day.\n- At most %d days.",
		systemPrompt, constraints.MaxSegmentsPerDay, constraints.MaxDays)
}

var userPromptTemplate = template.Must(template.New("user_prompt").
	Funcs(template.FuncMap{"trim": strings.TrimSpace}).
	Parse(`{{with trim .NoteTitle}}Trip: {{.}}

{{end}}{{trim .NoteText}}

Rider preferences:
- terrain: {{.Preferences.Terrain}}
- road style: {{.Preferences.RoadStyle}}
{{if gt .Preferences.TargetDurationHours 0.0}}- target riding time: {{printf "%.1f" .Preferences.TargetDurationHours}} hours
{{end}}{{if gt .Preferences.TargetDistanceKM 0.0}}- target distance: {{printf "%.0f" .Preferences.TargetDistanceKM}} km
{{end}}`))

// UserPrompt renders the trip note and the resolved preferences.
func UserPrompt(request Request) string {
	var b strings.Builder

	// The template only reads plain fields of request, so execution cannot fail.
	_ = userPromptTemplate.Execute(&b, request)

	return b.String()
}
