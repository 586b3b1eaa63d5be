package sqlbase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/roadbook/pkg/models"
	"github.com/dukex/roadbook/pkg/persistence"
	"github.com/google/uuid"
)

// createAttempts bounds retries when two attempts for the same note race for the next version.
const createAttempts = 3

const itineraryColumns = `
			id
		  , user_id
		  , note_id
		  , version
		  , status
		  , request_id
		  , preferences
		  , route
		  , title
		  , total_distance_km
		  , total_duration_min
		  , progress
		  , message
		  , failure_kind
		  , prompt_tokens
		  , completion_tokens
		  , estimated_cost_usd
		  , created_at
		  , updated_at
		  , started_at
		  , finished_at
		  , cancelled_at
		  , deleted_at`

// ItineraryRepository handles itinerary-related database operations.
type ItineraryRepository struct {
	db      *sql.DB
	logger  *slog.Logger
	dialect Dialect
	now     func() time.Time
}

// NewItineraryRepository creates a new itinerary repository.
func NewItineraryRepository(db *sql.DB, logger *slog.Logger, dialect Dialect) *ItineraryRepository {
	return &ItineraryRepository{
		db:      db,
		logger:  logger,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts itinerary with the next version of its note.
func (r *ItineraryRepository) Create(ctx context.Context, itinerary *models.Itinerary) error {
	if itinerary.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate itinerary ID: %w", err)
		}

		itinerary.ID = id.String()
	}

	now := r.now()
	itinerary.CreatedAt = now
	itinerary.UpdatedAt = now

	if itinerary.Status == "" {
		itinerary.Status = models.ItineraryStatusPending
	}

	var err error

	for attempt := 1; attempt <= createAttempts; attempt++ {
		err = r.insert(ctx, itinerary)
		if !errors.Is(err, persistence.ErrVersionConflict) {
			break
		}

		r.logger.DebugContext(ctx, "version conflict, retrying", "note_id", itinerary.NoteID, "attempt", attempt)
	}

	if err != nil {
		return persistence.NewItineraryError("Create", itinerary.ID, err)
	}

	return nil
}

func (r *ItineraryRepository) insert(ctx context.Context, itinerary *models.Itinerary) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var version int

	err = tx.QueryRowContext(ctx,
		r.dialect.Rebind("SELECT COALESCE(MAX(version), 0) + 1 FROM itineraries WHERE note_id = ?"),
		itinerary.NoteID,
	).Scan(&version)
	if err != nil {
		return fmt.Errorf("failed to compute next version: %w", err)
	}

	values, err := itineraryValues(itinerary)
	if err != nil {
		return err
	}

	values[3] = version

	query := "INSERT INTO itineraries (" + itineraryColumns + ") VALUES (" +
		strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", ") + ")"

	_, err = tx.ExecContext(ctx, r.dialect.Rebind(query), values...)
	if err != nil {
		return r.dialect.TranslateError(err)
	}

	err = tx.Commit()
	if err != nil {
		return r.dialect.TranslateError(err)
	}

	itinerary.Version = version

	return nil
}

// GetByID returns a non-deleted itinerary owned by userID.
func (r *ItineraryRepository) GetByID(ctx context.Context, userID, id string) (*models.Itinerary, error) {
	return r.queryOne(ctx, "GetByID", id,
		"WHERE id = ? AND user_id = ? AND deleted_at IS NULL", id, userID)
}

// GetByRequestID returns the itinerary created for the idempotency key, deleted or not.
func (r *ItineraryRepository) GetByRequestID(ctx context.Context, userID, requestID string) (*models.Itinerary, error) {
	return r.queryOne(ctx, "GetByRequestID", requestID,
		"WHERE user_id = ? AND request_id = ?", userID, requestID)
}

// ActiveForUser returns the user's running itinerary.
func (r *ItineraryRepository) ActiveForUser(ctx context.Context, userID string) (*models.Itinerary, error) {
	return r.queryOne(ctx, "ActiveForUser", userID,
		"WHERE user_id = ? AND status = ?", userID, models.ItineraryStatusRunning)
}

func (r *ItineraryRepository) queryOne(ctx context.Context, op, key, where string, args ...any) (*models.Itinerary, error) {
	query := "SELECT " + itineraryColumns + " FROM itineraries " + where

	itinerary, err := scanItinerary(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewItineraryError(op, key, persistence.ErrItineraryNotFound)
		}

		return nil, fmt.Errorf("failed to scan itinerary: %w", err)
	}

	return itinerary, nil
}

// Transition writes the itinerary when its stored status still equals from.
func (r *ItineraryRepository) Transition(ctx context.Context, itinerary *models.Itinerary, from models.ItineraryStatus) error {
	if !from.CanTransition(itinerary.Status) {
		return &persistence.ItineraryError{
			Op:          "Transition",
			ItineraryID: itinerary.ID,
			Err:         persistence.ErrInvalidTransition,
			Message:     fmt.Sprintf("%s -> %s", from, itinerary.Status),
		}
	}

	itinerary.UpdatedAt = r.now()

	routeJSON, err := marshalNullable(itinerary.Route)
	if err != nil {
		return fmt.Errorf("failed to marshal route: %w", err)
	}

	query := `
		UPDATE itineraries SET
			status = ?
		  , route = ?
		  , title = ?
		  , total_distance_km = ?
		  , total_duration_min = ?
		  , progress = ?
		  , message = ?
		  , failure_kind = ?
		  , prompt_tokens = ?
		  , completion_tokens = ?
		  , estimated_cost_usd = ?
		  , updated_at = ?
		  , started_at = ?
		  , finished_at = ?
		  , cancelled_at = ?
		WHERE id = ? AND status = ? AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		itinerary.Status,
		routeJSON,
		itinerary.Title,
		itinerary.TotalDistanceKM,
		itinerary.TotalDurationMin,
		itinerary.Progress,
		itinerary.Message,
		string(itinerary.FailureKind),
		itinerary.Usage.PromptTokens,
		itinerary.Usage.CompletionTokens,
		itinerary.Usage.EstimatedCostUSD,
		itinerary.UpdatedAt,
		itinerary.StartedAt,
		itinerary.FinishedAt,
		itinerary.CancelledAt,
		itinerary.ID,
		from,
	)
	if err != nil {
		return persistence.NewItineraryError("Transition", itinerary.ID, r.dialect.TranslateError(err))
	}

	return r.expectOneRow(ctx, "Transition", itinerary.ID, result)
}

// UpdateProgress records progress on a running itinerary.
func (r *ItineraryRepository) UpdateProgress(ctx context.Context, id string, progress int, message string) error {
	result, err := r.db.ExecContext(ctx,
		r.dialect.Rebind("UPDATE itineraries SET progress = ?, message = ?, updated_at = ? WHERE id = ? AND status = ?"),
		progress, message, r.now(), id, models.ItineraryStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	return r.expectOneRow(ctx, "UpdateProgress", id, result)
}

// expectOneRow distinguishes a lost compare-and-set from a missing row.
func (r *ItineraryRepository) expectOneRow(ctx context.Context, op, id string, result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 1 {
		return nil
	}

	var exists int

	err = r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT COUNT(*) FROM itineraries WHERE id = ? AND deleted_at IS NULL"), id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check itinerary existence: %w", err)
	}

	if exists == 0 {
		return persistence.NewItineraryError(op, id, persistence.ErrItineraryNotFound)
	}

	return persistence.NewItineraryError(op, id, persistence.ErrStatusChanged)
}

// ListByNote returns the non-deleted versions of a note, newest first.
func (r *ItineraryRepository) ListByNote(ctx context.Context, userID, noteID string) ([]*models.Itinerary, error) {
	return r.queryMany(ctx,
		"WHERE user_id = ? AND note_id = ? AND deleted_at IS NULL ORDER BY version DESC", userID, noteID)
}

// ListStaleRunning returns running itineraries started before the given instant.
func (r *ItineraryRepository) ListStaleRunning(ctx context.Context, startedBefore time.Time) ([]*models.Itinerary, error) {
	return r.queryMany(ctx,
		"WHERE status = ? AND started_at < ? ORDER BY started_at", models.ItineraryStatusRunning, startedBefore.UTC())
}

func (r *ItineraryRepository) queryMany(ctx context.Context, where string, args ...any) ([]*models.Itinerary, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind("SELECT "+itineraryColumns+" FROM itineraries "+where), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query itineraries: %w", err)
	}

	defer func(ctx context.Context, r *ItineraryRepository) {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}(ctx, r)

	itineraries := make([]*models.Itinerary, 0)

	for rows.Next() {
		itinerary, err := scanItinerary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan itinerary: %w", err)
		}

		itineraries = append(itineraries, itinerary)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating itineraries: %w", err)
	}

	return itineraries, nil
}

// DeletePending removes a pending itinerary that never started.
func (r *ItineraryRepository) DeletePending(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx,
		r.dialect.Rebind("DELETE FROM itineraries WHERE id = ? AND user_id = ? AND status = ?"),
		id, userID, models.ItineraryStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to delete pending itinerary: %w", err)
	}

	return r.expectOneRow(ctx, "DeletePending", id, result)
}

// SoftDelete marks a terminal itinerary deleted.
func (r *ItineraryRepository) SoftDelete(ctx context.Context, userID, id string) error {
	itinerary, err := r.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}

	if !itinerary.Status.IsTerminal() {
		return &persistence.ItineraryError{
			Op:          "SoftDelete",
			ItineraryID: id,
			Err:         persistence.ErrInvalidTransition,
			Message:     "itinerary is " + string(itinerary.Status),
		}
	}

	now := r.now()

	result, err := r.db.ExecContext(ctx,
		r.dialect.Rebind(`UPDATE itineraries SET deleted_at = ?, updated_at = ?
			WHERE id = ? AND user_id = ? AND status = ? AND deleted_at IS NULL`),
		now, now, id, userID, itinerary.Status,
	)
	if err != nil {
		return fmt.Errorf("failed to delete itinerary: %w", err)
	}

	return r.expectOneRow(ctx, "SoftDelete", id, result)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItinerary(row scanner) (*models.Itinerary, error) {
	var (
		itinerary       models.Itinerary
		preferencesJSON sql.NullString
		routeJSON       sql.NullString
		failureKind     string
		startedAt       sql.NullTime
		finishedAt      sql.NullTime
		cancelledAt     sql.NullTime
		deletedAt       sql.NullTime
	)

	err := row.Scan(
		&itinerary.ID,
		&itinerary.UserID,
		&itinerary.NoteID,
		&itinerary.Version,
		&itinerary.Status,
		&itinerary.RequestID,
		&preferencesJSON,
		&routeJSON,
		&itinerary.Title,
		&itinerary.TotalDistanceKM,
		&itinerary.TotalDurationMin,
		&itinerary.Progress,
		&itinerary.Message,
		&failureKind,
		&itinerary.Usage.PromptTokens,
		&itinerary.Usage.CompletionTokens,
		&itinerary.Usage.EstimatedCostUSD,
		&itinerary.CreatedAt,
		&itinerary.UpdatedAt,
		&startedAt,
		&finishedAt,
		&cancelledAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	itinerary.FailureKind = models.FailureKind(failureKind)
	itinerary.StartedAt = nullTime(startedAt)
	itinerary.FinishedAt = nullTime(finishedAt)
	itinerary.CancelledAt = nullTime(cancelledAt)
	itinerary.DeletedAt = nullTime(deletedAt)

	if preferencesJSON.Valid && preferencesJSON.String != "" {
		itinerary.Preferences = &models.Preferences{}
		if err := json.Unmarshal([]byte(preferencesJSON.String), itinerary.Preferences); err != nil {
			return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
		}
	}

	if routeJSON.Valid && routeJSON.String != "" {
		itinerary.Route = &models.Route{}
		if err := json.Unmarshal([]byte(routeJSON.String), itinerary.Route); err != nil {
			return nil, fmt.Errorf("failed to unmarshal route: %w", err)
		}
	}

	return &itinerary, nil
}

// itineraryValues returns the insert arguments in itineraryColumns order.
func itineraryValues(itinerary *models.Itinerary) ([]any, error) {
	preferencesJSON, err := marshalNullable(itinerary.Preferences)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preferences: %w", err)
	}

	routeJSON, err := marshalNullable(itinerary.Route)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal route: %w", err)
	}

	return []any{
		itinerary.ID,
		itinerary.UserID,
		itinerary.NoteID,
		itinerary.Version,
		itinerary.Status,
		itinerary.RequestID,
		preferencesJSON,
		routeJSON,
		itinerary.Title,
		itinerary.TotalDistanceKM,
		itinerary.TotalDurationMin,
		itinerary.Progress,
		itinerary.Message,
		string(itinerary.FailureKind),
		itinerary.Usage.PromptTokens,
		itinerary.Usage.CompletionTokens,
		itinerary.Usage.EstimatedCostUSD,
		itinerary.CreatedAt,
		itinerary.UpdatedAt,
		itinerary.StartedAt,
		itinerary.FinishedAt,
		itinerary.CancelledAt,
		itinerary.DeletedAt,
	}, nil
}

// marshalNullable encodes v as a JSON string, or SQL NULL for a nil pointer.
func marshalNullable[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}

	return sql.NullString{String: string(raw), Valid: true}, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	v := t.Time.UTC()

	return &v
}
