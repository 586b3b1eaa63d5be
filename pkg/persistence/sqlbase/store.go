package sqlbase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/roadbook/pkg/persistence"
)

// Store implements persistence.Persistence on top of any database/sql engine with a Dialect.
type Store struct {
	db          *sql.DB
	logger      *slog.Logger
	itineraries *ItineraryRepository
	notes       *NoteRepository
}

// NewStore runs the migrations and wires the repositories.
func NewStore(ctx context.Context, logger *slog.Logger, db *sql.DB, dialect Dialect, migrations map[int]string) (*Store, error) {
	err := NewMigrationManager(logger, db, dialect, migrations).RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{
		db:          db,
		logger:      logger,
		itineraries: NewItineraryRepository(db, logger, dialect),
		notes:       NewNoteRepository(db, logger, dialect),
	}, nil
}

func (s *Store) Itineraries() persistence.ItineraryRepository {
	return s.itineraries
}

func (s *Store) Notes() persistence.NoteRepository {
	return s.notes
}

// DB exposes the underlying handle for tests and health probes.
func (s *Store) DB() *sql.DB {
	return s.db
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close(ctx context.Context) error {
	if s.db != nil {
		err := s.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
