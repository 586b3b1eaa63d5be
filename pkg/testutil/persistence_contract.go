package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dukex/roadbook/pkg/models"
	"github.com/dukex/roadbook/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunPersistenceContract exercises the behaviour every persistence implementation must share. newStore
// returns an empty, migrated store.
func RunPersistenceContract(t *testing.T, newStore func(t *testing.T) persistence.Persistence) {
	t.Helper()

	ctx := context.Background()

	setup := func(t *testing.T) (persistence.Persistence, *models.Note) {
		t.Helper()

		store := newStore(t)
		note := CreateTestNote("user-1")
		require.NoError(t, store.Notes().SaveNote(ctx, note))

		return store, note
	}

	start := func(t *testing.T, repo persistence.ItineraryRepository, itinerary *models.Itinerary) error {
		t.Helper()

		now := time.Now().UTC()
		itinerary.Status = models.ItineraryStatusRunning
		itinerary.StartedAt = &now
		itinerary.Progress = 10

		return repo.Transition(ctx, itinerary, models.ItineraryStatusPending)
	}

	t.Run("notes are scoped to their owner", func(t *testing.T) {
		store, note := setup(t)

		found, err := store.Notes().NoteByID(ctx, note.UserID, note.ID)
		require.NoError(t, err)
		assert.Equal(t, note.Body, found.Body)

		_, err = store.Notes().NoteByID(ctx, "someone-else", note.ID)
		assert.ErrorIs(t, err, persistence.ErrNoteNotFound)

		deletedAt := time.Now().UTC()
		note.DeletedAt = &deletedAt
		require.NoError(t, store.Notes().SaveNote(ctx, note))

		_, err = store.Notes().NoteByID(ctx, note.UserID, note.ID)
		assert.ErrorIs(t, err, persistence.ErrNoteNotFound)
	})

	t.Run("create assigns increasing versions per note", func(t *testing.T) {
		store, note := setup(t)
		repo := store.Itineraries()

		first := CreateTestItinerary(note)
		second := CreateTestItinerary(note)

		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))

		assert.NotEmpty(t, first.ID)
		assert.Equal(t, 1, first.Version)
		assert.Equal(t, 2, second.Version)

		found, err := repo.GetByID(ctx, note.UserID, first.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ItineraryStatusPending, found.Status)
		assert.Equal(t, first.RequestID, found.RequestID)
		assert.Equal(t, CreateTestPreferences(), found.Preferences)
		assert.Nil(t, found.Route)

		listed, err := repo.ListByNote(ctx, note.UserID, note.ID)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, second.ID, listed[0].ID)
	})

	t.Run("request id is unique per user", func(t *testing.T) {
		store, note := setup(t)
		repo := store.Itineraries()

		require.NoError(t, repo.Create(ctx, CreateTestItinerary(note, WithRequestID("req-1"))))

		err := repo.Create(ctx, CreateTestItinerary(note, WithRequestID("req-1")))
		assert.ErrorIs(t, err, persistence.ErrDuplicateRequest)

		found, err := repo.GetByRequestID(ctx, note.UserID, "req-1")
		require.NoError(t, err)
		assert.Equal(t, 1, found.Version)

		_, err = repo.GetByRequestID(ctx, "user-2", "req-1")
		assert.ErrorIs(t, err, persistence.ErrItineraryNotFound)
	})

	t.Run("at most one running itinerary per user", func(t *testing.T) {
		store, note := setup(t)
		repo := store.Itineraries()

		first := CreateTestItinerary(note)
		second := CreateTestItinerary(note)
		require.NoError(t, repo.Create(ctx, first))
		require.NoError(t, repo.Create(ctx, second))

		require.NoError(t, start(t, repo, first))

		err := start(t, repo, second)
		assert.ErrorIs(t, err, persistence.ErrActiveGenerationExists)

		active, err := repo.ActiveForUser(ctx, note.UserID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, active.ID)
		assert.Equal(t, 10, active.Progress)
	})

	t.Run("concurrent starts leave exactly one running", func(t *testing.T) {
		store, note := setup(t)
		repo := store.Itineraries()

		const n = 8

		itineraries := make([]*models.Itinerary, n)
		for i := range itineraries {
			itineraries[i] = CreateTestItinerary(note)
			require.NoError(t, repo.Create(ctx, itineraries[i]))
		}

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			conflicts int
		)

		for _, itinerary := range itineraries {
			wg.Add(1)

			go func() {
				defer wg.Done()

				err := start(t, repo, itinerary)

				mu.Lock()
				defer mu.Unlock()

				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, persistence.ErrActiveGenerationExists):
					conflicts++
				}
			}()
		}

		wg.Wait()

		assert.Equal(t, 1, succeeded)
		assert.Equal(t, n-1, conflicts)
	})

	t.Run("transition is a compare-and-set", func(t *testing.T) {
		store, note := setup(t)
		repo := store.Itineraries()

		itinerary := CreateTestItinerary(note)
		require.NoError(t, repo.Create(ctx, itinerary))
		require.NoError(t, start(t, repo, itinerary))

		cancelledAt := time.Now().UTC()
		cancelled := *itinerary
		cancelled.Status = models.ItineraryStatusCancelled
		cancelled.CancelledAt = &cancelledAt
		require.NoError(t, repo.Transition(ctx, &cancelled, models.ItineraryStatusRunning))

		late := *itinerary
		late.Status = models.ItineraryStatusCompleted
		late.Route = CreateTestRoute()
		err := repo.Transition(ctx, &late, models.ItineraryStatusRunning)
		assert.ErrorIs(t, err, persistence.ErrStatusChanged)

		found, err := repo.GetByID(ctx, note.UserID, itinerary.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ItineraryStatusCancelled, found.Status)
		assert.Nil(t, found.Route)
		require.NotNil(t, found.CancelledAt)

		_, err = repo.ActiveForUser(ctx, note.UserID)
		assert.ErrorIs(t, err, persistence.ErrItineraryNotFound)
	})

	t.Run("transition rejects edges outside the lifecycle", func(t *testing.T) {
		store, note := setup(t)
		repo := store.Itineraries()

		itinerary := CreateTestItinerary(note)
		require.NoError(t, repo.Create(ctx, itinerary))

		itinerary.Status = models.ItineraryStatusCompleted
		itinerary.Route = CreateTestRoute()

		err := repo.Transition(ctx, itinerary, models.ItineraryStatusPending)
		assert.ErrorIs(t, err, persistence.ErrInvalidTransition)
	})

	t.Run("completed itinerary round-trips its route", func(t *testing.T) {
		store, note := setup(t)
		repo := store.Itineraries()

		itinerary := CreateTestItinerary(note)
		require.NoError(t, repo.Create(ctx, itinerary))
		require.NoError(t, start(t, repo, itinerary))
		require.NoError(t, repo.UpdateProgress(ctx, itinerary.ID, 50, "plan received"))

		finishedAt := time.Now().UTC()
		itinerary.Status = models.ItineraryStatusCompleted
		itinerary.Route = CreateTestRoute()
		itinerary.ApplySummary(itinerary.Route)
		itinerary.Progress = 100
		itinerary.FinishedAt = &finishedAt
		itinerary.Usage = models.Usage{PromptTokens: 100, CompletionTokens: 900, EstimatedCostUSD: 0.0012}
		require.NoError(t, repo.Transition(ctx, itinerary, models.ItineraryStatusRunning))

		found, err := repo.GetByID(ctx, note.UserID, itinerary.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ItineraryStatusCompleted, found.Status)
		assert.Equal(t, CreateTestRoute(), found.Route)
		assert.Equal(t, "Dolomites long weekend", found.Title)
		assert.InDelta(t, 95.5, found.TotalDistanceKM, 0.001)
		assert.Equal(t, 150, found.TotalDurationMin)
		assert.Equal(t, itinerary.Usage.PromptTokens, found.Usage.PromptTokens)
		assert.InDelta(t, 0.0012, found.Usage.EstimatedCostUSD, 1e-9)
		require.NotNil(t, found.FinishedAt)

		err = repo.UpdateProgress(ctx, itinerary.ID, 60, "late")
		assert.ErrorIs(t, err, persistence.ErrStatusChanged)
	})

	t.Run("soft delete only from terminal states", func(t *testing.T) {
		store, note := setup(t)
		repo := store.Itineraries()

		itinerary := CreateTestItinerary(note)
		require.NoError(t, repo.Create(ctx, itinerary))

		err := repo.SoftDelete(ctx, note.UserID, itinerary.ID)
		assert.ErrorIs(t, err, persistence.ErrInvalidTransition)

		cancelledAt := time.Now().UTC()
		itinerary.Status = models.ItineraryStatusCancelled
		itinerary.CancelledAt = &cancelledAt
		require.NoError(t, repo.Transition(ctx, itinerary, models.ItineraryStatusPending))
		require.NoError(t, repo.SoftDelete(ctx, note.UserID, itinerary.ID))

		_, err = repo.GetByID(ctx, note.UserID, itinerary.ID)
		assert.ErrorIs(t, err, persistence.ErrItineraryNotFound)

		listed, err := repo.ListByNote(ctx, note.UserID, note.ID)
		require.NoError(t, err)
		assert.Empty(t, listed)

		err = repo.SoftDelete(ctx, note.UserID, itinerary.ID)
		assert.ErrorIs(t, err, persistence.ErrItineraryNotFound)
	})

	t.Run("delete pending releases the request id", func(t *testing.T) {
		store, note := setup(t)
		repo := store.Itineraries()

		running := CreateTestItinerary(note)
		require.NoError(t, repo.Create(ctx, running))
		require.NoError(t, start(t, repo, running))

		err := repo.DeletePending(ctx, note.UserID, running.ID)
		assert.ErrorIs(t, err, persistence.ErrStatusChanged)

		pending := CreateTestItinerary(note, WithRequestID("req-loser"))
		require.NoError(t, repo.Create(ctx, pending))
		assert.Equal(t, 2, pending.Version)

		require.NoError(t, repo.DeletePending(ctx, note.UserID, pending.ID))

		_, err = repo.GetByRequestID(ctx, note.UserID, "req-loser")
		assert.ErrorIs(t, err, persistence.ErrItineraryNotFound)

		err = repo.DeletePending(ctx, note.UserID, pending.ID)
		assert.ErrorIs(t, err, persistence.ErrItineraryNotFound)

		retry := CreateTestItinerary(note, WithRequestID("req-loser"))
		require.NoError(t, repo.Create(ctx, retry))
		assert.Equal(t, 2, retry.Version)
	})

	t.Run("stale running itineraries are listed", func(t *testing.T) {
		store, note := setup(t)
		repo := store.Itineraries()

		itinerary := CreateTestItinerary(note)
		require.NoError(t, repo.Create(ctx, itinerary))

		startedAt := time.Now().UTC().Add(-time.Hour)
		itinerary.Status = models.ItineraryStatusRunning
		itinerary.StartedAt = &startedAt
		require.NoError(t, repo.Transition(ctx, itinerary, models.ItineraryStatusPending))

		stale, err := repo.ListStaleRunning(ctx, time.Now().Add(-10*time.Minute))
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, itinerary.ID, stale[0].ID)

		stale, err = repo.ListStaleRunning(ctx, time.Now().Add(-2*time.Hour))
		require.NoError(t, err)
		assert.Empty(t, stale)
	})

	t.Run("unknown ids are not found", func(t *testing.T) {
		store, note := setup(t)

		_, err := store.Itineraries().GetByID(ctx, note.UserID, "does-not-exist")
		assert.ErrorIs(t, err, persistence.ErrItineraryNotFound)

		err = store.Itineraries().UpdateProgress(ctx, "does-not-exist", 10, "")
		assert.ErrorIs(t, err, persistence.ErrItineraryNotFound)

		assert.NoError(t, store.HealthCheck(ctx))
	})
}
