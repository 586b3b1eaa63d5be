package main

import (
	"context"
	"fmt"

	"github.com/dukex/roadbook/pkg/cmd"
	"github.com/dukex/roadbook/pkg/log"
	"github.com/dukex/roadbook/pkg/services"
	cli "github.com/urfave/cli/v3"
)

const (
	dispatchAsync    = "async"
	dispatchEventBus = "eventbus"
)

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	logger := log.WithModule("api")

	logger.InfoContext(ctx, "Initializing Roadbook API")

	runtime, err := cmd.NewRuntime(ctx, command, logger, "roadbook-api")
	if err != nil {
		return err
	}

	defer func() {
		err := runtime.Close(context.WithoutCancel(ctx))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
		}
	}()

	var async *services.AsyncDispatcher

	switch command.String("dispatch") {
	case dispatchAsync:
		async = services.NewAsyncDispatcher(logger, runtime.Generation)
		runtime.Generation.SetDispatcher(async)
	case dispatchEventBus:
		if command.String("event-bus") != "kafka" {
			return fmt.Errorf("dispatch mode %s needs a shared event bus, got %q", dispatchEventBus, command.String("event-bus"))
		}

		runtime.Generation.SetDispatcher(services.NewEventBusDispatcher(runtime.EventBus))
	default:
		return fmt.Errorf("unsupported dispatch mode: %s", command.String("dispatch"))
	}

	if command.Bool("reaper") {
		reaper, err := services.NewReaper(logger, runtime.Generation, runtime.Config.ReaperSchedule)
		if err != nil {
			return err
		}

		err = reaper.Start(ctx)
		if err != nil {
			return err
		}

		defer reaper.Stop()
	}

	api := NewAPI(logger, runtime.Persistence, runtime.Generation)

	err = api.Start(ctx, command.Int("port"))
	if err != nil {
		logger.ErrorContext(ctx, "API server stopped", "error", err)
	}

	if async != nil {
		logger.InfoContext(ctx, "Waiting for running generations")
		async.Wait()
	}

	return err
}
