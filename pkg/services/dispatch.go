package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dukex/roadbook/pkg/eventbus"
	"github.com/dukex/roadbook/pkg/events"
	"github.com/dukex/roadbook/pkg/models"
)

// Job identifies a reserved generation to execute.
type Job struct {
	ItineraryID string
	UserID      string
	NoteID      string
	RequestID   string
	Version     int
}

// JobFor builds the job for a running itinerary.
func JobFor(itinerary *models.Itinerary) Job {
	return Job{
		ItineraryID: itinerary.ID,
		UserID:      itinerary.UserID,
		NoteID:      itinerary.NoteID,
		RequestID:   itinerary.RequestID,
		Version:     itinerary.Version,
	}
}

// Executor runs a reserved generation to a terminal state.
type Executor interface {
	Execute(ctx context.Context, job Job) error
}

// Dispatcher hands a reserved generation to whatever will execute it.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// InlineDispatcher executes on the caller's goroutine. StartGeneration then returns a terminal itinerary.
type InlineDispatcher struct {
	executor Executor
}

func NewInlineDispatcher(executor Executor) *InlineDispatcher {
	return &InlineDispatcher{executor: executor}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, job Job) error {
	return d.executor.Execute(ctx, job)
}

// AsyncDispatcher executes each job on its own goroutine, detached from the request context.
type AsyncDispatcher struct {
	executor Executor
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewAsyncDispatcher(logger *slog.Logger, executor Executor) *AsyncDispatcher {
	return &AsyncDispatcher{
		executor: executor,
		logger:   logger.With("module", "async_dispatcher"),
	}
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, job Job) error {
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		err := d.executor.Execute(ctx, job)
		if err != nil {
			d.logger.ErrorContext(ctx, "Generation execution failed", "itinerary_id", job.ItineraryID, "error", err)
		}
	}()

	return nil
}

// Wait blocks until every dispatched job has returned.
func (d *AsyncDispatcher) Wait() {
	d.wg.Wait()
}

// EventBusDispatcher publishes a generation.requested event for a worker to pick up.
type EventBusDispatcher struct {
	publisher eventbus.EventPublisher
}

func NewEventBusDispatcher(publisher eventbus.EventPublisher) *EventBusDispatcher {
	return &EventBusDispatcher{publisher: publisher}
}

func (d *EventBusDispatcher) Dispatch(ctx context.Context, job Job) error {
	itinerary := &models.Itinerary{ID: job.ItineraryID, UserID: job.UserID, NoteID: job.NoteID}

	return d.publisher.Publish(ctx, job.ItineraryID, &events.GenerationRequested{
		BaseEvent: events.NewBaseEvent(events.GenerationRequestedEvent, itinerary),
		RequestID: job.RequestID,
		Version:   job.Version,
	})
}

// RegisterWorker makes subscriber execute every generation.requested event it receives. A returned error
// leaves the event for redelivery.
func RegisterWorker(logger *slog.Logger, subscriber eventbus.EventSubscriber, executor Executor, workerID string) error {
	logger = logger.With("module", "generation_worker", "worker_id", workerID)

	return subscriber.Handle(events.GenerationRequestedEvent, func(ctx context.Context, event any) error {
		requested, ok := event.(*events.GenerationRequested)
		if !ok {
			logger.ErrorContext(ctx, "Unexpected event payload", "event", event)

			return nil
		}

		logger.InfoContext(ctx, "Executing generation", "itinerary_id", requested.ItineraryID)

		return executor.Execute(ctx, Job{
			ItineraryID: requested.ItineraryID,
			UserID:      requested.UserID,
			NoteID:      requested.NoteID,
			RequestID:   requested.RequestID,
			Version:     requested.Version,
		})
	})
}
