package planner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/roadbook/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClient_RequiresKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{APIKey: "  "})
	assert.Error(t, err)
}

func TestOpenAIClient_Produce(t *testing.T) {
	var received chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"choices": [{"message": {"content": "{\"days\": []}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 480}
		}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL + "/", APIKey: "secret", Model: "test-model"})
	require.NoError(t, err)

	response, err := client.Produce(context.Background(), Request{
		NoteTitle:   "Dolomites",
		NoteText:    "Three days of passes",
		Preferences: models.Preferences{Terrain: models.TerrainMountains, RoadStyle: models.RoadStyleTwisty},
		Constraints: Constraints{MaxSegmentsPerDay: 4, MaxDays: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"days": []}`, response.Content)
	assert.Equal(t, FinishReasonStop, response.FinishReason)
	assert.Equal(t, Usage{PromptTokens: 120, CompletionTokens: 480}, response.Usage)

	assert.Equal(t, "test-model", received.Model)
	require.Len(t, received.Messages, 2)
	assert.Contains(t, received.Messages[0].Content, "At most 4 segments per day.")
	assert.Contains(t, received.Messages[1].Content, "Trip: Dolomites")
	assert.Contains(t, received.Messages[1].Content, "terrain: mountains")
	assert.Equal(t, "json_object", received.ResponseFormat["type"])
}

func TestOpenAIClient_ProduceHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "secret"})
	require.NoError(t, err)

	_, err = client.Produce(context.Background(), Request{})

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.StatusCode)
	assert.Equal(t, "slow down", httpErr.Body)
}

func TestOpenAIClient_ProduceNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client, err := NewOpenAIClient(OpenAIConfig{BaseURL: server.URL, APIKey: "secret"})
	require.NoError(t, err)

	_, err = client.Produce(context.Background(), Request{})
	assert.EqualError(t, err, "planner returned no choices")
}

func TestUserPrompt_OmitsUnsetTargets(t *testing.T) {
	prompt := UserPrompt(Request{
		NoteText:    "coast ride",
		Preferences: models.Preferences{Terrain: models.TerrainCoast, RoadStyle: models.RoadStyleScenic, TargetDistanceKM: 300},
	})

	assert.NotContains(t, prompt, "Trip:")
	assert.NotContains(t, prompt, "target riding time")
	assert.Contains(t, prompt, "target distance: 300 km")
}

func TestUserPrompt_RendersNoteAndPreferences(t *testing.T) {
	prompt := UserPrompt(Request{
		NoteTitle:   "  Dolomites ",
		NoteText:    "Four passes in two days.\n",
		Preferences: models.Preferences{Terrain: models.TerrainMountains, RoadStyle: models.RoadStyleTwisty, TargetDurationHours: 6},
	})

	assert.Equal(t, "Trip: Dolomites\n\nFour passes in two days.\n\nRider preferences:\n"+
		"- terrain: mountains\n- road style: twisty\n- target riding time: 6.0 hours\n", prompt)
}
