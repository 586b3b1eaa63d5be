package eventbus_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/roadbook/pkg/channels/gochannel"
	"github.com/dukex/roadbook/pkg/eventbus"
	"github.com/dukex/roadbook/pkg/events"
	"github.com/dukex/roadbook/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(logger, pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func requested(id string) *events.GenerationRequested {
	itinerary := &models.Itinerary{ID: id, UserID: "user-1", NoteID: "note-1", Version: 1, RequestID: "req-" + id}

	return &events.GenerationRequested{
		BaseEvent: events.NewBaseEvent(events.GenerationRequestedEvent, itinerary),
		RequestID: itinerary.RequestID,
		Version:   itinerary.Version,
	}
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan *events.GenerationRequested, 1)

	require.NoError(t, bus.Handle(events.GenerationRequestedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.GenerationRequested)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "it-1", requested("it-1")))

	select {
	case event := <-received:
		assert.Equal(t, "it-1", event.ItineraryID)
		assert.Equal(t, "req-it-1", event.RequestID)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_IgnoresUnhandledTypes(t *testing.T) {
	bus := newBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var startedCalls atomic.Int32

	received := make(chan struct{}, 1)

	require.NoError(t, bus.Handle(events.GenerationStartedEvent, func(context.Context, any) error {
		startedCalls.Add(1)

		return nil
	}))
	require.NoError(t, bus.Handle(events.GenerationRequestedEvent, func(context.Context, any) error {
		received <- struct{}{}

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	cancelled := &events.GenerationCancelled{
		BaseEvent:      events.NewBaseEvent(events.GenerationCancelledEvent, &models.Itinerary{ID: "it-2"}),
		PreviousStatus: models.ItineraryStatusRunning,
	}

	require.NoError(t, bus.Publish(ctx, "it-2", cancelled))
	require.NoError(t, bus.Publish(ctx, "it-3", requested("it-3")))

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}

	assert.Zero(t, startedCalls.Load())
}

func TestWatermillEventBus_RedeliversOnHandlerError(t *testing.T) {
	bus := newBus(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts atomic.Int32

	done := make(chan struct{})

	require.NoError(t, bus.Handle(events.GenerationRequestedEvent, func(context.Context, any) error {
		if attempts.Add(1) == 1 {
			return errors.New("worker busy")
		}

		close(done)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "it-4", requested("it-4")))

	select {
	case <-done:
		assert.Equal(t, int32(2), attempts.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("event was not redelivered")
	}
}
