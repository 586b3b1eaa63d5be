package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/roadbook/pkg/persistence"
	"github.com/mattn/go-sqlite3"
)

// Dialect adapts the shared SQL repositories to SQLite.
type Dialect struct{}

func (Dialect) Name() string { return "sqlite" }

func (Dialect) Rebind(query string) string { return query }

func (Dialect) MigrationsTableDDL() string {
	return `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`
}

// TranslateError classifies unique violations by the columns SQLite reports, since it does not name the
// violated index.
func (Dialect) TranslateError(err error) error {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) || sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique {
		return err
	}

	message := sqliteErr.Error()

	switch {
	case strings.Contains(message, "itineraries.note_id, itineraries.version"):
		return fmt.Errorf("%w: %s", persistence.ErrVersionConflict, message)
	case strings.Contains(message, "itineraries.user_id, itineraries.request_id"):
		return fmt.Errorf("%w: %s", persistence.ErrDuplicateRequest, message)
	case strings.HasSuffix(message, "itineraries.user_id"):
		return fmt.Errorf("%w: %s", persistence.ErrActiveGenerationExists, message)
	default:
		return err
	}
}
