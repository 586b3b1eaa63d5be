package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Reaper periodically fails generations stuck in running.
type Reaper struct {
	generation *Generation
	schedule   string
	logger     *slog.Logger
	cron       *cron.Cron
}

func NewReaper(logger *slog.Logger, generation *Generation, schedule string) (*Reaper, error) {
	_, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("invalid reaper schedule: %w", err)
	}

	return &Reaper{
		generation: generation,
		schedule:   schedule,
		logger:     logger.With("module", "reaper", "schedule", schedule),
	}, nil
}

// Start schedules the sweep. Sweeps never overlap.
func (r *Reaper) Start(ctx context.Context) error {
	r.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := r.cron.AddFunc(r.schedule, func() { r.Sweep(ctx) })
	if err != nil {
		return fmt.Errorf("failed to add reaper job: %w", err)
	}

	r.logger.InfoContext(ctx, "Starting reaper")
	r.cron.Start()

	return nil
}

// Sweep runs one pass.
func (r *Reaper) Sweep(ctx context.Context) {
	reaped, err := r.generation.ReapStale(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Reaper sweep failed", "reaped", reaped, "error", err)

		return
	}

	if reaped > 0 {
		r.logger.InfoContext(ctx, "Failed stale generations", "count", reaped)
	}
}

// Stop halts scheduling and waits for a running sweep.
func (r *Reaper) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}
