package main

import (
	"context"

	"github.com/dukex/roadbook/pkg/cmd"
	"github.com/dukex/roadbook/pkg/log"
	"github.com/dukex/roadbook/pkg/services"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func run(ctx context.Context, command *cli.Command) error {
	log.Setup(command.String("log-level"))

	workerID := command.String("worker-id")
	if workerID == "" {
		workerID = "worker-" + uuid.New().String()[:8]
	}

	logger := log.WithModule("roadbook-worker").With("worker_id", workerID)

	logger.InfoContext(ctx, "Initializing Roadbook Worker")

	runtime, err := cmd.NewRuntime(ctx, command, logger, "roadbook-worker")
	if err != nil {
		return err
	}

	defer func() {
		err := runtime.Close(context.WithoutCancel(ctx))
		if err != nil {
			logger.ErrorContext(ctx, "Failed to close runtime", "error", err)
		}
	}()

	reaper, err := services.NewReaper(logger, runtime.Generation, runtime.Config.ReaperSchedule)
	if err != nil {
		return err
	}

	err = services.RegisterWorker(logger, runtime.EventBus, runtime.Generation, workerID)
	if err != nil {
		return err
	}

	err = runtime.EventBus.Subscribe(ctx)
	if err != nil {
		return err
	}

	err = reaper.Start(ctx)
	if err != nil {
		return err
	}

	defer reaper.Stop()

	logger.InfoContext(ctx, "Worker started")

	<-ctx.Done()

	logger.InfoContext(ctx, "Shutting down worker")

	return nil
}
