package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:  "levelhub",
		Usage: "index, deduplicate and merge community levels from multiple sources",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "path to a dotenv file",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "index",
				Usage: "run one or all source indexers",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "source",
						Usage: "archive | chat-community | chat-archive-channel | release-feed | all",
						Value: "all",
					},
					&cli.StringFlag{
						Name:  "output",
						Usage: "output directory (overrides config)",
					},
					&cli.IntFlag{
						Name:  "max",
						Usage: "maximum items per source (0 = unlimited)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "download workers per run",
					},
				},
				Action: indexAction,
			},
			{
				Name:  "analyze",
				Usage: "analyze the catalog for duplicate uploads",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "output",
						Usage: "output directory (overrides config)",
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "console | json | html | all",
						Value: "console",
					},
					&cli.StringFlag{
						Name:  "sources",
						Usage: "comma-separated source filter",
					},
					&cli.BoolFlag{
						Name:  "details",
						Usage: "print every duplicate group",
					},
				},
				Action: analyzeAction,
			},
			{
				Name:  "merge",
				Usage: "merge duplicate levels into a canonical tree",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "output",
						Usage: "output directory (overrides config)",
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "debug logging",
					},
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "compute the merge without writing files",
					},
				},
				Action: mergeAction,
			},
			{
				Name:  "watch",
				Usage: "follow live progress events from a running api-server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "api-server address",
						Value: "127.0.0.1:8080",
					},
				},
				Action: watchAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "levelhub: %v\n", err)
		os.Exit(1)
	}
}
