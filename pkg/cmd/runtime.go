package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/roadbook/pkg/config"
	"github.com/dukex/roadbook/pkg/eventbus"
	"github.com/dukex/roadbook/pkg/otelhelper"
	"github.com/dukex/roadbook/pkg/persistence"
	"github.com/dukex/roadbook/pkg/services"
	"github.com/dukex/roadbook/pkg/spend"
	cli "github.com/urfave/cli/v3"
)

// Runtime holds what a long-running binary builds from CommonFlags.
type Runtime struct {
	Config      config.Generation
	Persistence persistence.Persistence
	EventBus    *eventbus.WatermillEventBus
	Ledger      spend.Ledger
	Generation  *services.Generation

	closers []func(context.Context) error
}

// NewRuntime opens every backend named by the command's flags. On error, whatever was opened is closed.
func NewRuntime(ctx context.Context, command *cli.Command, logger *slog.Logger, serviceName string) (*Runtime, error) {
	rt := &Runtime{}

	err := rt.open(ctx, command, logger, serviceName)
	if err != nil {
		_ = rt.Close(ctx)

		return nil, err
	}

	return rt, nil
}

func (rt *Runtime) open(ctx context.Context, command *cli.Command, logger *slog.Logger, serviceName string) error {
	cfg, err := config.Load(command.String("config"))
	if err != nil {
		return err
	}

	rt.Config = cfg

	if command.Bool("tracing") {
		shutdown, err := otelhelper.Setup(ctx, serviceName)
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}

		rt.closers = append(rt.closers, shutdown)
	}

	store, err := NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return fmt.Errorf("failed to open persistence: %w", err)
	}

	rt.Persistence = store
	rt.closers = append(rt.closers, store.Close)

	bus, err := NewEventBus(command.String("event-bus"), command.StringSlice("kafka-brokers"), serviceName, logger)
	if err != nil {
		return err
	}

	rt.EventBus = bus
	rt.closers = append(rt.closers, func(context.Context) error { return bus.Close() })

	ledger, err := NewLedger(ctx, logger, command.String("redis-url"))
	if err != nil {
		return fmt.Errorf("failed to open spend ledger: %w", err)
	}

	rt.Ledger = ledger

	if closer, ok := ledger.(interface{ Close() error }); ok {
		rt.closers = append(rt.closers, func(context.Context) error { return closer.Close() })
	}

	client, err := NewPlanner(command.String("planner-api-key"), command.String("planner-base-url"), cfg)
	if err != nil {
		return fmt.Errorf("failed to create planner client: %w", err)
	}

	rt.Generation = services.NewGeneration(logger, store, client, ledger, cfg, services.WithPublisher(bus))

	return nil
}

// Close releases backends in reverse opening order.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error

	for i := len(rt.closers) - 1; i >= 0; i-- {
		err := rt.closers[i](ctx)
		if err != nil {
			errs = append(errs, err)
		}
	}

	rt.closers = nil

	return errors.Join(errs...)
}
