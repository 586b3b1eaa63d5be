package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dukex/roadbook/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// planSchema describes the structure a plan must have. Coordinates may be missing or null: those are
// data-quality problems judged after parsing, not structural ones.
const planSchema = `{
  "type": "object",
  "required": ["days"],
  "properties": {
    "title": {"type": "string"},
    "summary": {"type": "string"},
    "highlights": {"type": "array", "items": {"type": "string"}},
    "days": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["segments"],
        "properties": {
          "day": {"type": "integer"},
          "title": {"type": "string"},
          "segments": {
            "type": "array",
            "minItems": 1,
            "items": {
              "type": "object",
              "required": ["start", "end"],
              "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "start": {"$ref": "#/definitions/stop"},
                "end": {"$ref": "#/definitions/stop"},
                "distance_km": {"type": ["number", "null"], "minimum": 0, "maximum": 20000},
                "duration_min": {"type": ["number", "null"], "minimum": 0, "maximum": 43200}
              }
            }
          }
        }
      }
    }
  },
  "definitions": {
    "stop": {
      "type": "object",
      "properties": {
        "name": {"type": "string"},
        "lat": {"type": ["number", "null"]},
        "lon": {"type": ["number", "null"]}
      }
    }
  }
}`

var planSchemaLoader = gojsonschema.NewStringLoader(planSchema)

// Outcome is the result of interpreting a service response. It is exactly one of WellFormed, Truncated
// or Malformed.
type Outcome interface {
	outcome()
}

// WellFormed carries a structurally valid plan. Its coordinates have not been quality checked yet.
type WellFormed struct {
	Plan *models.Plan
}

// Truncated means the service stopped before finishing its answer.
type Truncated struct {
	FinishReason string
}

// Malformed means the answer could not be read as a plan.
type Malformed struct {
	Reason string
}

func (WellFormed) outcome() {}
func (Truncated) outcome()  {}
func (Malformed) outcome()  {}

// Interpret classifies a response in one strict pass.
func Interpret(response *Response) Outcome {
	if response == nil {
		return Malformed{Reason: "empty response"}
	}

	if response.FinishReason != FinishReasonStop {
		return Truncated{FinishReason: response.FinishReason}
	}

	jsonText := ExtractJSONText(response.Content)
	if jsonText == "" {
		return Malformed{Reason: "response did not contain JSON"}
	}

	result, err := gojsonschema.Validate(planSchemaLoader, gojsonschema.NewStringLoader(jsonText))
	if err != nil {
		return Malformed{Reason: fmt.Sprintf("decode plan: %v", err)}
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, resultErr := range result.Errors() {
			messages = append(messages, resultErr.String())
		}

		return Malformed{Reason: "plan does not match schema: " + strings.Join(messages, "; ")}
	}

	var plan models.Plan
	if err := json.Unmarshal([]byte(jsonText), &plan); err != nil {
		return Malformed{Reason: fmt.Sprintf("decode plan: %v", err)}
	}

	if plan.SegmentCount() == 0 {
		return Malformed{Reason: "plan has no segments"}
	}

	return WellFormed{Plan: &plan}
}

// ExtractJSONText strips markdown fences and surrounding prose from a JSON object answer.
func ExtractJSONText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)

		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = strings.TrimSpace(s[:i])
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")

	if start < 0 || end < 0 || end <= start {
		return ""
	}

	return s[start : end+1]
}
