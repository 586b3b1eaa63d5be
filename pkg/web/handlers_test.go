package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dukex/roadbook/pkg/config"
	"github.com/dukex/roadbook/pkg/mocks"
	"github.com/dukex/roadbook/pkg/models"
	"github.com/dukex/roadbook/pkg/persistence/sqlite"
	"github.com/dukex/roadbook/pkg/services"
	"github.com/dukex/roadbook/pkg/spend"
	"github.com/dukex/roadbook/pkg/testutil"
	"github.com/dukex/roadbook/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(context.Context, services.Job) error { return nil }

type testApp struct {
	app        *fiber.App
	client     *mocks.MockPlanner
	ledger     *spend.MemoryLedger
	generation *services.Generation
	note       *models.Note
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := sqlite.NewPersistence(t.Context(), logger, filepath.Join(t.TempDir(), "roadbook.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})

	ta := &testApp{
		client: &mocks.MockPlanner{},
		ledger: spend.NewMemoryLedger(),
		note:   testutil.CreateTestNote(testUser),
	}

	require.NoError(t, store.Notes().SaveNote(t.Context(), ta.note))

	ta.generation = services.NewGeneration(logger, store, ta.client, ta.ledger, config.Default())
	itineraries := services.NewItineraries(logger, store, nil)

	ta.app = fiber.New()
	web.NewAPIHandlers(ta.generation, itineraries, validator.New()).Register(ta.app)

	return ta
}

func (ta *testApp) answer(content string) {
	ta.client.On("Produce", mock.Anything, mock.Anything).Return(mocks.StopResponse(content, 1000, 500), nil).Once()
}

func (ta *testApp) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(web.UserIDHeader, testUser)

	resp, err := ta.app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func (ta *testApp) start(t *testing.T, requestID string) services.StatusView {
	t.Helper()

	resp, body := ta.do(t, http.MethodPost, "/notes/"+ta.note.ID+"/itineraries", web.StartGenerationRequest{
		RequestID:   requestID,
		Preferences: testutil.CreateTestPreferences(),
	})
	require.Less(t, resp.StatusCode, 300, string(body))

	var view services.StatusView
	require.NoError(t, json.Unmarshal(body, &view))

	return view
}

func problemType(t *testing.T, body []byte) string {
	t.Helper()

	var problem map[string]any
	require.NoError(t, json.Unmarshal(body, &problem))

	kind, _ := problem["type"].(string)

	return kind
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	ta := setupTestApp(t)

	resp, body := ta.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"healthy"`)
}

func TestAPIHandlers_RequireUser(t *testing.T) {
	ta := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/notes/"+ta.note.ID+"/itineraries", nil)

	resp, err := ta.app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
}

func TestAPIHandlers_StartGeneration(t *testing.T) {
	ta := setupTestApp(t)
	ta.answer(testutil.PlanJSON)

	resp, body := ta.do(t, http.MethodPost, "/notes/"+ta.note.ID+"/itineraries", web.StartGenerationRequest{
		RequestID:   "req-1",
		Preferences: testutil.CreateTestPreferences(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var view services.StatusView
	require.NoError(t, json.Unmarshal(body, &view))

	assert.Equal(t, models.ItineraryStatusCompleted, view.Status)
	assert.Equal(t, 1, view.Version)
	assert.Equal(t, "Dolomites long weekend", view.Title)
	assert.NotNil(t, view.Route)
	assert.Nil(t, view.Progress)

	replayed := ta.start(t, "req-1")
	assert.Equal(t, view.ID, replayed.ID)

	ta.client.AssertNumberOfCalls(t, "Produce", 1)
}

func TestAPIHandlers_StartGenerationAccepted(t *testing.T) {
	ta := setupTestApp(t)
	ta.generation.SetDispatcher(noopDispatcher{})

	resp, body := ta.do(t, http.MethodPost, "/notes/"+ta.note.ID+"/itineraries", web.StartGenerationRequest{
		RequestID:   "req-1",
		Preferences: testutil.CreateTestPreferences(),
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var view services.StatusView
	require.NoError(t, json.Unmarshal(body, &view))

	assert.Equal(t, models.ItineraryStatusRunning, view.Status)
	require.NotNil(t, view.Progress)
	assert.Equal(t, 10, *view.Progress)

	resp, body = ta.do(t, http.MethodPost, "/notes/"+ta.note.ID+"/itineraries", web.StartGenerationRequest{
		RequestID:   "req-2",
		Preferences: testutil.CreateTestPreferences(),
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "generation_in_progress", problemType(t, body))
	assert.Contains(t, string(body), "req-1")
}

func TestAPIHandlers_StartGenerationErrors(t *testing.T) {
	tests := []struct {
		name           string
		noteID         string
		body           any
		setup          func(ta *testApp)
		expectedStatus int
		expectedType   string
	}{
		{
			name:           "invalid json",
			body:           "not an object",
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "missing request id",
			body:           web.StartGenerationRequest{Preferences: testutil.CreateTestPreferences()},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "missing preferences",
			body:           web.StartGenerationRequest{RequestID: "req-1"},
			expectedStatus: http.StatusPreconditionFailed,
			expectedType:   "precondition_failed",
		},
		{
			name:           "unknown note",
			noteID:         "missing",
			body:           web.StartGenerationRequest{RequestID: "req-1", Preferences: testutil.CreateTestPreferences()},
			expectedStatus: http.StatusNotFound,
			expectedType:   "note_not_found",
		},
		{
			name: "spend cap reached",
			body: web.StartGenerationRequest{RequestID: "req-1", Preferences: testutil.CreateTestPreferences()},
			setup: func(ta *testApp) {
				_ = ta.ledger.Record(context.Background(), testUser, time.Now(), 10)
			},
			expectedStatus: http.StatusTooManyRequests,
			expectedType:   "spend_cap_reached",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := setupTestApp(t)

			if tt.setup != nil {
				tt.setup(ta)
			}

			noteID := tt.noteID
			if noteID == "" {
				noteID = ta.note.ID
			}

			resp, body := ta.do(t, http.MethodPost, "/notes/"+noteID+"/itineraries", tt.body)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode, string(body))
			assert.Equal(t, tt.expectedType, problemType(t, body))

			ta.client.AssertNotCalled(t, "Produce", mock.Anything, mock.Anything)
		})
	}
}

func TestAPIHandlers_ListAndGet(t *testing.T) {
	ta := setupTestApp(t)
	ta.answer(testutil.PlanJSON)
	ta.answer(testutil.PlanJSON)

	first := ta.start(t, "req-1")
	second := ta.start(t, "req-2")

	resp, body := ta.do(t, http.MethodGet, "/notes/"+ta.note.ID+"/itineraries", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list web.ListItinerariesResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Itineraries, 2)
	assert.Equal(t, second.ID, list.Itineraries[0].ID)
	assert.Equal(t, first.ID, list.Itineraries[1].ID)

	resp, body = ta.do(t, http.MethodGet, "/itineraries/"+first.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"completed"`)

	resp, body = ta.do(t, http.MethodGet, "/itineraries/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "itinerary_not_found", problemType(t, body))

	resp, _ = ta.do(t, http.MethodGet, "/notes/missing/itineraries", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_CancelAndDelete(t *testing.T) {
	ta := setupTestApp(t)
	ta.generation.SetDispatcher(noopDispatcher{})

	running := ta.start(t, "req-1")

	resp, body := ta.do(t, http.MethodDelete, "/itineraries/"+running.ID, nil)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode, string(body))

	resp, body = ta.do(t, http.MethodPost, "/itineraries/"+running.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"status":"cancelled"`)

	resp, _ = ta.do(t, http.MethodPost, "/itineraries/"+running.ID+"/cancel", nil)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodDelete, "/itineraries/"+running.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = ta.do(t, http.MethodGet, "/itineraries/"+running.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_ExportItinerary(t *testing.T) {
	ta := setupTestApp(t)
	ta.answer(testutil.PlanJSON)

	completed := ta.start(t, "req-1")

	tests := []struct {
		format      string
		contentType string
		filename    string
		contains    string
	}{
		{format: "gpx", contentType: "application/gpx+xml", filename: "dolomites-long-weekend.gpx", contains: "<gpx"},
		{format: "kml", contentType: "application/vnd.google-earth.kml+xml", filename: "dolomites-long-weekend.kml", contains: "<kml"},
		{format: "geojson", contentType: "application/geo+json", filename: "dolomites-long-weekend.geojson", contains: "FeatureCollection"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			resp, body := ta.do(t, http.MethodGet, "/itineraries/"+completed.ID+"/export/"+tt.format, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

			assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), tt.contentType))
			assert.Contains(t, resp.Header.Get("Content-Disposition"), tt.filename)
			assert.Contains(t, string(body), tt.contains)
		})
	}

	resp, body := ta.do(t, http.MethodGet, "/itineraries/"+completed.ID+"/export/shp", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", problemType(t, body))

	resp, _ = ta.do(t, http.MethodGet, "/itineraries/missing/export/gpx", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_PreviewLinks(t *testing.T) {
	ta := setupTestApp(t)
	ta.answer(testutil.PlanJSON)

	completed := ta.start(t, "req-1")

	resp, body := ta.do(t, http.MethodGet, "/itineraries/"+completed.ID+"/links?mode=car", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var links web.LinksResponse
	require.NoError(t, json.Unmarshal(body, &links))

	assert.Equal(t, "car", links.Mode)
	require.Len(t, links.Links, 2)
	assert.Equal(t, "google_maps", links.Links[0].Service)
	assert.Contains(t, links.Links[0].URL, "https://www.google.com/maps/dir/")
	assert.Equal(t, "kurviger", links.Links[1].Service)
	assert.Contains(t, links.Links[1].URL, "vehicle=car")

	resp, _ = ta.do(t, http.MethodGet, "/itineraries/"+completed.ID+"/links?mode=boat", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
