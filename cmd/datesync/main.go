package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"media-datesync/internal/config"
)

// Version is populated at build time
var Version = "dev"

var globalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "config",
		Usage: "Path to the config file",
		Value: config.Path(),
	},
	&cli.StringFlag{
		Name:  "mediainfo",
		Usage: "Path to the mediainfo binary (overrides config)",
	},
	&cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn, error (overrides config)",
	},
	&cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format: console or json (overrides config)",
	},
	&cli.BoolFlag{
		Name:  "no-cache",
		Usage: "Do not read or write the encoded date cache",
	},
}

func newCLI() *cli.App {
	return &cli.App{
		Name:    "datesync",
		Usage:   "Align file timestamps with the dates encoded in media metadata",
		Version: Version,
		Description: "datesync reads the encoded date of videos, audio and images, finds files whose\n" +
			"creation or modified time has drifted from it, and rewrites those timestamps.\n\n" +
			"Run without a subcommand to open the interactive view.",
		Flags: globalFlags,
		Before: func(c *cli.Context) error {
			// init writes the config and must not require one
			if c.Args().First() == "init" {
				return nil
			}
			// Log lines would corrupt the interactive screen
			interactive := c.Args().Len() == 0 || c.Args().First() == "tui"
			a, err := newApp(c, interactive)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			c.App.Metadata = map[string]interface{}{"app": a}
			return nil
		},
		After: func(c *cli.Context) error {
			if a, ok := c.App.Metadata["app"].(*app); ok {
				return a.close()
			}
			return nil
		},
		Commands: []*cli.Command{
			listCommand(),
			selectCommand(),
			syncCommand(),
			drivesCommand(),
			settingsCommand(),
			cacheCommand(),
			tuiCommand(),
			initCommand(),
		},
		Action: func(c *cli.Context) error {
			return tuiCommand().Action(c)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
