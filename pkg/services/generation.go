package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/roadbook/pkg/config"
	"github.com/dukex/roadbook/pkg/eventbus"
	"github.com/dukex/roadbook/pkg/events"
	"github.com/dukex/roadbook/pkg/export"
	"github.com/dukex/roadbook/pkg/models"
	"github.com/dukex/roadbook/pkg/otelhelper"
	"github.com/dukex/roadbook/pkg/persistence"
	"github.com/dukex/roadbook/pkg/planner"
	"github.com/dukex/roadbook/pkg/route"
	"github.com/dukex/roadbook/pkg/spend"
	"github.com/dukex/roadbook/pkg/validate"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	progressReserved      = 10
	progressPlanReceived  = 50
	progressCanonicalized = 80
	progressValidated     = 90
	progressDone          = 100
)

const (
	messageQueued          = "Waiting to start"
	messageReserved        = "Planning your route"
	messagePlanReceived    = "Plan received, checking coordinates"
	messageCanonicalized   = "Route built, preparing exports"
	messageValidated       = "Exports validated"
	messageCompleted       = "Route ready"
	messageCancelled       = "Cancelled"
	messagePlanService     = "The route planner is unavailable right now. Please try again in a few minutes."
	messageTruncated       = "The plan was cut off before it was finished. Try a shorter trip or fewer days."
	messageMalformed       = "The planner returned a plan that could not be read. Please try again."
	messageDataQuality     = "Too many stops in the plan have no usable location. Add more detail to the note and try again."
	messageValidation      = "The generated route did not pass validation. Please try again."
	messageNoteUnavailable = "The trip note is no longer available."
	messageStale           = "The generation took too long and was stopped. Please try again."
)

// errStopped aborts an execution whose itinerary left the running state.
var errStopped = errors.New("itinerary is no longer running")

// StartRequest asks for a new generation attempt. RequestID is the caller's idempotency key.
type StartRequest struct {
	UserID      string
	NoteID      string
	RequestID   string
	Preferences *models.Preferences
}

// Generation orchestrates generation attempts: admission, reservation of the user's running slot,
// dispatch, and the execution pipeline from plan to validated route.
type Generation struct {
	persistence persistence.Persistence
	planner     planner.Client
	ledger      spend.Ledger
	publisher   eventbus.EventPublisher
	dispatcher  Dispatcher
	config      config.Generation
	validate    *validator.Validate
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// GenerationOption customizes a Generation.
type GenerationOption func(*Generation)

// WithPublisher publishes lifecycle events on the given publisher.
func WithPublisher(publisher eventbus.EventPublisher) GenerationOption {
	return func(g *Generation) {
		g.publisher = publisher
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) GenerationOption {
	return func(g *Generation) {
		g.now = now
	}
}

// NewGeneration creates the orchestrator. Executions run inline until SetDispatcher installs another dispatcher.
func NewGeneration(
	logger *slog.Logger,
	persistence persistence.Persistence,
	client planner.Client,
	ledger spend.Ledger,
	cfg config.Generation,
	opts ...GenerationOption,
) *Generation {
	g := &Generation{
		persistence: persistence,
		planner:     client,
		ledger:      ledger,
		config:      cfg,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "generation"),
		tracer:      otelhelper.Tracer("roadbook.generation"),
		now:         func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(g)
	}

	g.dispatcher = NewInlineDispatcher(g)

	return g
}

// SetDispatcher decides how reserved generations are executed.
func (g *Generation) SetDispatcher(dispatcher Dispatcher) {
	g.dispatcher = dispatcher
}

// StartGeneration admits a generation attempt, reserves the user's running slot and dispatches the
// execution. Replays of a known request id return the stored itinerary unchanged.
func (g *Generation) StartGeneration(ctx context.Context, req StartRequest) (*models.Itinerary, error) {
	ctx, span := otelhelper.StartSpan(ctx, g.tracer, "generation.start",
		attribute.String(otelhelper.UserIDKey, req.UserID),
		attribute.String(otelhelper.NoteIDKey, req.NoteID),
		attribute.String(otelhelper.RequestIDKey, req.RequestID),
	)
	defer span.End()

	itinerary, err := g.start(ctx, req)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.ItineraryIDKey, itinerary.ID),
		attribute.String(otelhelper.StatusKey, string(itinerary.Status)),
	)

	return itinerary, nil
}

func (g *Generation) start(ctx context.Context, req StartRequest) (*models.Itinerary, error) {
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.RequestID) == "" {
		return nil, newServiceError("StartGeneration", "invalid_request", "user id and request id are required", ErrInvalidRequest)
	}

	note, err := g.persistence.Notes().NoteByID(ctx, req.UserID, req.NoteID)
	if err != nil {
		if persistence.IsNoteNotFound(err) {
			return nil, ErrNoteNotFound
		}

		return nil, fmt.Errorf("failed to load note: %w", err)
	}

	if req.Preferences == nil {
		return nil, ErrPreferencesMissing
	}

	err = g.validate.Struct(req.Preferences)
	if err != nil {
		return nil, newServiceError("StartGeneration", "invalid_preferences", err.Error(), ErrPreferencesMissing)
	}

	itineraries := g.persistence.Itineraries()

	existing, err := itineraries.GetByRequestID(ctx, req.UserID, req.RequestID)
	if err == nil {
		g.logger.DebugContext(ctx, "Replayed generation request", "itinerary_id", existing.ID, "request_id", req.RequestID)

		return existing, nil
	}

	if !persistence.IsItineraryNotFound(err) {
		return nil, fmt.Errorf("failed to look up request: %w", err)
	}

	// Fast path only. The storage constraint decides when two starts race past this check.
	active, err := itineraries.ActiveForUser(ctx, req.UserID)
	if err == nil {
		return nil, &GenerationInProgressError{ActiveItineraryID: active.ID, ActiveRequestID: active.RequestID}
	}

	if !persistence.IsItineraryNotFound(err) {
		return nil, fmt.Errorf("failed to look up active generation: %w", err)
	}

	now := g.now()

	spent, err := g.ledger.MonthToDate(ctx, req.UserID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to read spend: %w", err)
	}

	if spent > g.config.MonthlySpendCapUSD {
		return nil, &SpendCapError{SpentUSD: spent, CapUSD: g.config.MonthlySpendCapUSD}
	}

	preferences := *req.Preferences

	pending := &models.Itinerary{
		UserID:      req.UserID,
		NoteID:      note.ID,
		RequestID:   req.RequestID,
		Status:      models.ItineraryStatusPending,
		Preferences: &preferences,
		Message:     messageQueued,
	}

	err = itineraries.Create(ctx, pending)
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicateRequest) {
			return itineraries.GetByRequestID(ctx, req.UserID, req.RequestID)
		}

		return nil, fmt.Errorf("failed to create itinerary: %w", err)
	}

	running, err := g.reserve(ctx, pending)
	if err != nil {
		return nil, err
	}

	g.logger.InfoContext(ctx, "Generation reserved",
		"itinerary_id", running.ID, "user_id", running.UserID, "note_id", running.NoteID, "version", running.Version)

	g.publish(ctx, running.ID, &events.GenerationStarted{
		BaseEvent: events.NewBaseEvent(events.GenerationStartedEvent, running),
		Version:   running.Version,
	})

	err = g.dispatcher.Dispatch(ctx, JobFor(running))
	if err != nil {
		g.logger.ErrorContext(ctx, "Failed to dispatch generation", "itinerary_id", running.ID, "error", err)

		_, _ = g.commit(ctx, running, models.FailureKindPlanService, messagePlanService, nil)

		return nil, fmt.Errorf("failed to dispatch generation: %w", err)
	}

	latest, err := itineraries.GetByID(ctx, running.UserID, running.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload itinerary: %w", err)
	}

	return latest, nil
}

// reserve moves a pending itinerary to running. Losing the race for the user's running slot removes the
// unstarted pending row, so the request id stays free for a retry, and reports the generation that won.
func (g *Generation) reserve(ctx context.Context, pending *models.Itinerary) (*models.Itinerary, error) {
	now := g.now()

	running := *pending
	running.Status = models.ItineraryStatusRunning
	running.Progress = progressReserved
	running.Message = messageReserved
	running.StartedAt = &now

	err := g.persistence.Itineraries().Transition(ctx, &running, models.ItineraryStatusPending)
	if err == nil {
		return &running, nil
	}

	if !errors.Is(err, persistence.ErrActiveGenerationExists) {
		return nil, fmt.Errorf("failed to reserve generation: %w", err)
	}

	deleteErr := g.persistence.Itineraries().DeletePending(ctx, pending.UserID, pending.ID)
	if deleteErr != nil {
		g.logger.ErrorContext(ctx, "Failed to remove pending itinerary after losing the running slot",
			"itinerary_id", pending.ID, "error", deleteErr)
	}

	inProgress := &GenerationInProgressError{}

	active, activeErr := g.persistence.Itineraries().ActiveForUser(ctx, pending.UserID)
	if activeErr == nil {
		inProgress.ActiveItineraryID = active.ID
		inProgress.ActiveRequestID = active.RequestID
	}

	return nil, inProgress
}

// Execute runs the pipeline for a reserved itinerary: plan request, parse, quality gate, repair,
// canonicalization, conversion to every export format and validation. Outcomes are recorded on the
// itinerary; the returned error reports infrastructure failures only.
func (g *Generation) Execute(ctx context.Context, job Job) error {
	ctx, span := otelhelper.StartSpan(ctx, g.tracer, "generation.execute",
		attribute.String(otelhelper.ItineraryIDKey, job.ItineraryID),
		attribute.String(otelhelper.UserIDKey, job.UserID),
	)
	defer span.End()

	logger := g.logger.With("itinerary_id", job.ItineraryID, "user_id", job.UserID)

	itinerary, err := g.persistence.Itineraries().GetByID(ctx, job.UserID, job.ItineraryID)
	if err != nil {
		if persistence.IsItineraryNotFound(err) {
			logger.WarnContext(ctx, "Skipping generation for unknown itinerary")

			return nil
		}

		otelhelper.SetError(span, err)

		return fmt.Errorf("failed to load itinerary: %w", err)
	}

	if itinerary.Status != models.ItineraryStatusRunning {
		logger.InfoContext(ctx, "Skipping generation, itinerary is not running", "status", itinerary.Status)

		return nil
	}

	err = g.execute(ctx, logger, itinerary)
	if errors.Is(err, errStopped) {
		logger.InfoContext(ctx, "Generation stopped, itinerary left the running state")

		return nil
	}

	if err != nil {
		otelhelper.SetError(span, err)

		return err
	}

	span.SetAttributes(attribute.String(otelhelper.StatusKey, string(itinerary.Status)))

	return nil
}

func (g *Generation) execute(ctx context.Context, logger *slog.Logger, itinerary *models.Itinerary) error {
	note, err := g.persistence.Notes().NoteByID(ctx, itinerary.UserID, itinerary.NoteID)
	if err != nil {
		if persistence.IsNoteNotFound(err) {
			return g.fail(ctx, itinerary, models.FailureKindValidation, messageNoteUnavailable, err)
		}

		return fmt.Errorf("failed to load note: %w", err)
	}

	var preferences models.Preferences
	if itinerary.Preferences != nil {
		preferences = *itinerary.Preferences
	}

	response, err := g.produce(ctx, planner.Request{
		NoteTitle:   note.Title,
		NoteText:    note.Body,
		Preferences: preferences,
		Constraints: g.config.Constraints,
	})
	if err != nil {
		return g.fail(ctx, itinerary, models.FailureKindPlanService, messagePlanService, err)
	}

	itinerary.Usage = g.config.Pricing.Usage(response.Usage.PromptTokens, response.Usage.CompletionTokens)
	g.recordSpend(ctx, itinerary)

	err = g.progress(ctx, itinerary, progressPlanReceived, messagePlanReceived)
	if err != nil {
		return err
	}

	var plan *models.Plan

	switch outcome := planner.Interpret(response).(type) {
	case planner.Truncated:
		return g.fail(ctx, itinerary, models.FailureKindTruncated, messageTruncated,
			fmt.Errorf("finish reason %q", outcome.FinishReason))
	case planner.Malformed:
		return g.fail(ctx, itinerary, models.FailureKindDataQuality, messageMalformed, errors.New(outcome.Reason))
	case planner.WellFormed:
		plan = outcome.Plan
	}

	report := planner.Assess(plan)

	err = report.Check(g.config.Thresholds)
	if err != nil {
		return g.fail(ctx, itinerary, models.FailureKindDataQuality, messageDataQuality, err)
	}

	if report.Missing > 0 || report.Invalid > 0 {
		logger.InfoContext(ctx, "Repairing plan coordinates",
			"segments", report.Segments, "missing", report.Missing, "invalid", report.Invalid)

		plan = planner.Repair(plan)
	}

	canonical, err := route.Canonicalize(plan)
	if err == nil {
		err = canonical.Validate()
	}

	if err != nil {
		return g.fail(ctx, itinerary, models.FailureKindValidation, messageValidation, err)
	}

	err = g.progress(ctx, itinerary, progressCanonicalized, messageCanonicalized)
	if err != nil {
		return err
	}

	err = g.checkExports(ctx, canonical)
	if err != nil {
		return g.fail(ctx, itinerary, models.FailureKindValidation, messageValidation, err)
	}

	err = g.progress(ctx, itinerary, progressValidated, messageValidated)
	if err != nil {
		return err
	}

	committed, err := g.commit(ctx, itinerary, "", messageCompleted, canonical)
	if err != nil || !committed {
		return err
	}

	logger.InfoContext(ctx, "Generation completed",
		"title", canonical.Title, "distance_km", canonical.TotalDistanceKM, "features", canonical.FeatureCount())

	g.publish(ctx, itinerary.ID, &events.GenerationCompleted{
		BaseEvent:        events.NewBaseEvent(events.GenerationCompletedEvent, itinerary),
		Title:            itinerary.Title,
		TotalDistanceKM:  itinerary.TotalDistanceKM,
		TotalDurationMin: itinerary.TotalDurationMin,
		Usage:            itinerary.Usage,
		Duration:         elapsed(itinerary),
	})

	return nil
}

func (g *Generation) produce(ctx context.Context, request planner.Request) (*planner.Response, error) {
	ctx, span := otelhelper.StartSpan(ctx, g.tracer, "generation.produce")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.config.PlannerTimeout)
	defer cancel()

	response, err := g.planner.Produce(ctx, request)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String("planner.finish_reason", response.FinishReason),
		attribute.Int("planner.prompt_tokens", response.Usage.PromptTokens),
		attribute.Int("planner.completion_tokens", response.Usage.CompletionTokens),
	)

	return response, nil
}

func (g *Generation) checkExports(ctx context.Context, canonical *models.Route) error {
	for _, format := range export.Formats {
		_, span := otelhelper.StartSpan(ctx, g.tracer, "generation.export",
			attribute.String(otelhelper.FormatKey, string(format)))

		data, err := export.Convert(format, canonical)
		if err == nil {
			err = validate.Must(format, data)
		}

		if err != nil {
			otelhelper.SetError(span, err)
			span.End()

			return err
		}

		span.End()
	}

	return nil
}

func (g *Generation) recordSpend(ctx context.Context, itinerary *models.Itinerary) {
	err := g.ledger.Record(ctx, itinerary.UserID, g.now(), itinerary.Usage.EstimatedCostUSD)
	if err != nil {
		g.logger.ErrorContext(ctx, "Failed to record spend",
			"itinerary_id", itinerary.ID, "amount_usd", itinerary.Usage.EstimatedCostUSD, "error", err)
	}
}

// progress records a checkpoint. It returns errStopped once the itinerary is no longer running.
func (g *Generation) progress(ctx context.Context, itinerary *models.Itinerary, progress int, message string) error {
	err := g.persistence.Itineraries().UpdateProgress(ctx, itinerary.ID, progress, message)
	if err != nil {
		if errors.Is(err, persistence.ErrStatusChanged) {
			return errStopped
		}

		return fmt.Errorf("failed to record progress: %w", err)
	}

	itinerary.Progress = progress
	itinerary.Message = message

	return nil
}

// fail commits a failed outcome. The cause is logged; the itinerary only carries the user-facing message.
func (g *Generation) fail(ctx context.Context, itinerary *models.Itinerary, kind models.FailureKind, message string, cause error) error {
	g.logger.WarnContext(ctx, "Generation failed",
		"itinerary_id", itinerary.ID, "failure_kind", kind, "error", cause)

	committed, err := g.commit(ctx, itinerary, kind, message, nil)
	if err != nil || !committed {
		return err
	}

	errMessage := message
	if cause != nil {
		errMessage = cause.Error()
	}

	g.publish(ctx, itinerary.ID, &events.GenerationFailed{
		BaseEvent:   events.NewBaseEvent(events.GenerationFailedEvent, itinerary),
		FailureKind: kind,
		Error:       errMessage,
		Duration:    elapsed(itinerary),
	})

	return nil
}

// commit writes a terminal outcome with a compare-and-set on the running status: completed when canonical
// is set, failed with kind otherwise. It reports false, without error, when the itinerary had already left
// the running state and the outcome was discarded.
func (g *Generation) commit(
	ctx context.Context,
	itinerary *models.Itinerary,
	kind models.FailureKind,
	message string,
	canonical *models.Route,
) (bool, error) {
	current, err := g.persistence.Itineraries().GetByID(ctx, itinerary.UserID, itinerary.ID)
	if err != nil {
		return false, fmt.Errorf("failed to reload itinerary: %w", err)
	}

	if current.Status != models.ItineraryStatusRunning {
		g.logger.InfoContext(ctx, "Discarding generation outcome",
			"itinerary_id", itinerary.ID, "status", current.Status)

		return false, nil
	}

	now := g.now()

	next := *current
	next.Usage = itinerary.Usage
	next.Message = message
	next.FinishedAt = &now

	if canonical != nil {
		next.Status = models.ItineraryStatusCompleted
		next.Progress = progressDone
		next.Route = canonical
		next.ApplySummary(canonical)
	} else {
		next.Status = models.ItineraryStatusFailed
		next.FailureKind = kind
	}

	err = g.persistence.Itineraries().Transition(ctx, &next, models.ItineraryStatusRunning)
	if err != nil {
		if errors.Is(err, persistence.ErrStatusChanged) {
			g.logger.InfoContext(ctx, "Discarding generation outcome, status changed during commit",
				"itinerary_id", itinerary.ID)

			return false, nil
		}

		return false, fmt.Errorf("failed to commit itinerary: %w", err)
	}

	*itinerary = next

	return true, nil
}

// CancelGeneration moves a pending or running itinerary to cancelled. An in-flight plan request is not
// interrupted; its outcome is discarded when it returns.
func (g *Generation) CancelGeneration(ctx context.Context, userID, itineraryID string) (*models.Itinerary, error) {
	ctx, span := otelhelper.StartSpan(ctx, g.tracer, "generation.cancel",
		attribute.String(otelhelper.ItineraryIDKey, itineraryID),
		attribute.String(otelhelper.UserIDKey, userID),
	)
	defer span.End()

	itineraries := g.persistence.Itineraries()

	for {
		current, err := itineraries.GetByID(ctx, userID, itineraryID)
		if err != nil {
			if persistence.IsItineraryNotFound(err) {
				return nil, ErrItineraryNotFound
			}

			return nil, fmt.Errorf("failed to load itinerary: %w", err)
		}

		if !current.Status.CanTransition(models.ItineraryStatusCancelled) {
			return nil, newServiceError("CancelGeneration", "cannot_cancel",
				"itinerary is "+string(current.Status), ErrCannotCancel)
		}

		now := g.now()

		cancelled := *current
		cancelled.Status = models.ItineraryStatusCancelled
		cancelled.Message = messageCancelled
		cancelled.CancelledAt = &now
		cancelled.FinishedAt = &now

		err = itineraries.Transition(ctx, &cancelled, current.Status)
		if errors.Is(err, persistence.ErrStatusChanged) {
			// pending moved to running underneath us, or the run finished; re-evaluate.
			continue
		}

		if persistence.IsItineraryNotFound(err) {
			return nil, ErrItineraryNotFound
		}

		if err != nil {
			otelhelper.SetError(span, err)

			return nil, fmt.Errorf("failed to cancel itinerary: %w", err)
		}

		g.logger.InfoContext(ctx, "Generation cancelled", "itinerary_id", itineraryID, "previous_status", current.Status)

		g.publish(ctx, cancelled.ID, &events.GenerationCancelled{
			BaseEvent:      events.NewBaseEvent(events.GenerationCancelledEvent, &cancelled),
			PreviousStatus: current.Status,
		})

		return &cancelled, nil
	}
}

// GetStatus returns the caller-facing projection of an itinerary.
func (g *Generation) GetStatus(ctx context.Context, userID, itineraryID string) (*StatusView, error) {
	itinerary, err := g.persistence.Itineraries().GetByID(ctx, userID, itineraryID)
	if err != nil {
		if persistence.IsItineraryNotFound(err) {
			return nil, ErrItineraryNotFound
		}

		return nil, fmt.Errorf("failed to load itinerary: %w", err)
	}

	view := NewStatusView(itinerary)

	return &view, nil
}

// ReapStale fails running itineraries whose start is older than the configured stale timeout, releasing
// the running slot held by a crashed worker. It returns how many itineraries were failed.
func (g *Generation) ReapStale(ctx context.Context) (int, error) {
	cutoff := g.now().Add(-g.config.StaleAfter)

	stale, err := g.persistence.Itineraries().ListStaleRunning(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale itineraries: %w", err)
	}

	reaped := 0

	for _, itinerary := range stale {
		before := itinerary.Status

		err = g.fail(ctx, itinerary, models.FailureKindStaleRunning, messageStale,
			fmt.Errorf("running since %s", itinerary.StartedAt))
		if err != nil {
			return reaped, err
		}

		if before != itinerary.Status {
			reaped++
		}
	}

	return reaped, nil
}

func (g *Generation) publish(ctx context.Context, key string, event eventbus.Event) {
	if g.publisher == nil {
		return
	}

	err := g.publisher.Publish(ctx, key, event)
	if err != nil {
		g.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "key", key, "error", err)
	}
}

func elapsed(itinerary *models.Itinerary) time.Duration {
	if itinerary.StartedAt == nil || itinerary.FinishedAt == nil {
		return 0
	}

	return itinerary.FinishedAt.Sub(*itinerary.StartedAt)
}
