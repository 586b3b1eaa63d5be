package postgresql

import (
	"errors"
	"fmt"

	"github.com/dukex/roadbook/pkg/persistence"
	"github.com/dukex/roadbook/pkg/persistence/sqlbase"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// Dialect adapts the shared SQL repositories to PostgreSQL.
type Dialect struct{}

func (Dialect) Name() string { return "postgres" }

func (Dialect) Rebind(query string) string { return sqlbase.RebindDollar(query) }

func (Dialect) MigrationsTableDDL() string {
	return `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`
}

// TranslateError classifies unique violations by the index that raised them.
func (Dialect) TranslateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}

	switch pqErr.Constraint {
	case indexUserRunning:
		return fmt.Errorf("%w: %s", persistence.ErrActiveGenerationExists, pqErr.Message)
	case indexUserRequest:
		return fmt.Errorf("%w: %s", persistence.ErrDuplicateRequest, pqErr.Message)
	case indexNoteVersion:
		return fmt.Errorf("%w: %s", persistence.ErrVersionConflict, pqErr.Message)
	default:
		return err
	}
}
