package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/roadbook/pkg/models"
	"github.com/dukex/roadbook/pkg/persistence"
	"github.com/google/uuid"
)

// NoteRepository reads trip notes.
type NoteRepository struct {
	db      *sql.DB
	logger  *slog.Logger
	dialect Dialect
}

// NewNoteRepository creates a new note repository.
func NewNoteRepository(db *sql.DB, logger *slog.Logger, dialect Dialect) *NoteRepository {
	return &NoteRepository{db: db, logger: logger, dialect: dialect}
}

// NoteByID returns a live note owned by userID.
func (r *NoteRepository) NoteByID(ctx context.Context, userID, noteID string) (*models.Note, error) {
	query := `
		SELECT
			id
		  , user_id
		  , title
		  , body
		  , created_at
		FROM notes
		WHERE id = ? AND user_id = ? AND deleted_at IS NULL
	`

	var note models.Note

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), noteID, userID).
		Scan(&note.ID, &note.UserID, &note.Title, &note.Body, &note.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("note %s: %w", noteID, persistence.ErrNoteNotFound)
		}

		return nil, fmt.Errorf("failed to scan note: %w", err)
	}

	return &note, nil
}

// SaveNote inserts or updates a note.
func (r *NoteRepository) SaveNote(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate note ID: %w", err)
		}

		note.ID = id.String()
	}

	if note.CreatedAt.IsZero() {
		note.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO notes (id, user_id, title, body, created_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		note.ID, note.UserID, note.Title, note.Body, note.CreatedAt, note.DeletedAt)
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}

	return nil
}
