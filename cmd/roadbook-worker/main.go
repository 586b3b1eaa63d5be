// Package main provides the Roadbook worker, which executes generations published on the event bus.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/roadbook/pkg/cmd"
	cli "github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := &cli.Command{
		Name:                  "roadbook-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to execute itinerary generations",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
		}, cmd.CommonFlags()...),
		Action: run,
	}

	err := command.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}
