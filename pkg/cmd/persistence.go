package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dukex/roadbook/pkg/persistence"
	"github.com/dukex/roadbook/pkg/persistence/postgresql"
	"github.com/dukex/roadbook/pkg/persistence/sqlite"
)

// NewPersistence opens the store named by databaseURL. postgres:// and postgresql:// URLs select
// PostgreSQL; sqlite:// URLs and plain paths select SQLite.
//
// nolint:ireturn // callers only need the persistence interface
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	if parsePersistenceProvider(databaseURL) == "postgresql" {
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	}

	store, err := sqlite.NewPersistence(ctx, logger, strings.TrimPrefix(databaseURL, "sqlite://"))
	if err != nil {
		return nil, err
	}

	return store, nil
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "sqlite"
	}

	switch provider {
	case "postgres", "postgresql":
		return "postgresql"
	default:
		return "sqlite"
	}
}
