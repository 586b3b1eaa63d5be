package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wellFormedPlan = `{
  "title": "Alpine weekend",
  "highlights": ["Stelvio"],
  "days": [
    {
      "day": 1,
      "segments": [
        {
          "name": "Bormio to Stelvio",
          "start": {"name": "Bormio", "lat": 46.467, "lon": 10.370},
          "end": {"name": "Passo dello Stelvio", "lat": 46.528, "lon": 10.453},
          "distance_km": 21.5,
          "duration_min": 45.0
        }
      ]
    }
  ]
}`

func TestInterpret_WellFormed(t *testing.T) {
	outcome := Interpret(&Response{Content: wellFormedPlan, FinishReason: FinishReasonStop})

	wellFormed, ok := outcome.(WellFormed)
	require.True(t, ok, "got %T", outcome)
	assert.Equal(t, "Alpine weekend", wellFormed.Plan.Title)
	assert.Equal(t, 1, wellFormed.Plan.SegmentCount())

	segment := wellFormed.Plan.Days[0].Segments[0]
	require.NotNil(t, segment.DurationMin)
	assert.InDelta(t, 45.0, *segment.DurationMin, 0.001)
	assert.True(t, segment.Start.Complete())
}

func TestInterpret_FencedJSON(t *testing.T) {
	outcome := Interpret(&Response{
		Content:      "Here is your plan:\n```json\n" + wellFormedPlan + "\n```\nEnjoy!",
		FinishReason: FinishReasonStop,
	})

	assert.IsType(t, WellFormed{}, outcome)
}

func TestInterpret_Truncated(t *testing.T) {
	outcome := Interpret(&Response{Content: wellFormedPlan[:60], FinishReason: "length"})

	truncated, ok := outcome.(Truncated)
	require.True(t, ok, "got %T", outcome)
	assert.Equal(t, "length", truncated.FinishReason)
}

func TestInterpret_TruncatedWinsOverValidContent(t *testing.T) {
	outcome := Interpret(&Response{Content: wellFormedPlan, FinishReason: "content_filter"})

	assert.IsType(t, Truncated{}, outcome)
}

func TestInterpret_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"prose only", "I cannot help with that."},
		{"broken json", `{"days": [`},
		{"no days", `{"title": "x"}`},
		{"empty days", `{"days": []}`},
		{"day without segments", `{"days": [{"day": 1, "segments": []}]}`},
		{"segment missing end", `{"days": [{"segments": [{"start": {"name": "A", "lat": 1, "lon": 1}}]}]}`},
		{"string coordinate", `{"days": [{"segments": [{"start": {"lat": "1", "lon": 1}, "end": {"lat": 1, "lon": 1}}]}]}`},
		{"huge distance", `{"days": [{"segments": [{"start": {"lat": 50, "lon": 20}, "end": {"lat": 49, "lon": 19}, "distance_km": 1e300}]}]}`},
		{"huge duration", `{"days": [{"segments": [{"start": {"lat": 50, "lon": 20}, "end": {"lat": 49, "lon": 19}, "duration_min": 1e300}]}]}`},
		{"negative distance", `{"days": [{"segments": [{"start": {"lat": 50, "lon": 20}, "end": {"lat": 49, "lon": 19}, "distance_km": -5}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Interpret(&Response{Content: tt.content, FinishReason: FinishReasonStop})

			malformed, ok := outcome.(Malformed)
			require.True(t, ok, "got %T", outcome)
			assert.NotEmpty(t, malformed.Reason)
		})
	}
}

func TestInterpret_NilResponse(t *testing.T) {
	assert.IsType(t, Malformed{}, Interpret(nil))
}

func TestInterpret_NullCoordinatesAreNotStructural(t *testing.T) {
	outcome := Interpret(&Response{
		Content:      `{"days": [{"segments": [{"start": {"name": "A", "lat": null}, "end": {"name": "B", "lat": 1, "lon": 2}}]}]}`,
		FinishReason: FinishReasonStop,
	})

	wellFormed, ok := outcome.(WellFormed)
	require.True(t, ok, "got %T", outcome)
	assert.False(t, wellFormed.Plan.Days[0].Segments[0].Start.Complete())
}

func TestExtractJSONText(t *testing.T) {
	assert.Equal(t, `{"a":1}`, ExtractJSONText("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, ExtractJSONText("sure! {\"a\":1} done"))
	assert.Equal(t, "", ExtractJSONText("no json here"))
	assert.Equal(t, "", ExtractJSONText("   "))
}
