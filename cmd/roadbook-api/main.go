package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/roadbook/pkg/cmd"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := &cli.Command{
		Name:                  "roadbook-api",
		Usage:                 "Serve itinerary generation, history, exports and preview links",
		EnableShellCompletion: true,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "dispatch",
				Usage:   "Where generations run: async (in this process) or eventbus (roadbook-worker)",
				Value:   dispatchAsync,
				Sources: cli.EnvVars("GENERATION_DISPATCH"),
			},
			&cli.BoolFlag{
				Name:    "reaper",
				Usage:   "Fail generations stuck in running from this process",
				Value:   true,
				Sources: cli.EnvVars("REAPER_ENABLED"),
			},
		}, cmd.CommonFlags()...),
		Action: run,
	}

	err := command.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}
