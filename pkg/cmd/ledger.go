package cmd

import (
	"context"
	"log/slog"

	"github.com/dukex/roadbook/pkg/spend"
)

// NewLedger returns a Redis ledger when redisURL is set, otherwise an in-memory one that resets on restart.
//
// nolint:ireturn // callers only need the ledger interface
func NewLedger(ctx context.Context, logger *slog.Logger, redisURL string) (spend.Ledger, error) {
	if redisURL == "" {
		logger.Warn("REDIS_URL not set, spend is tracked in memory")

		return spend.NewMemoryLedger(), nil
	}

	ledger, err := spend.NewRedisLedger(ctx, logger, redisURL)
	if err != nil {
		return nil, err
	}

	return ledger, nil
}
