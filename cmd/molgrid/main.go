package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/molgrid/internal/logger"
)

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "molgrid",
		Usage: "Molecular density grid maker",
		Flags: loggingFlags(),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			cfg, err := LoadConfig(configPath())
			if err != nil {
				return ctx, cli.Exit(fmt.Sprintf("error: load config: %v", err), 1)
			}
			fileConfig = cfg
			applyLoggingConfig(cmd, cfg)

			level, err := logger.ParseLevel(logLevel)
			if err != nil {
				return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if debug {
				level = slog.LevelDebug
			}
			log, err := logger.ForFormat(logFormat, os.Stderr, level)
			if err != nil {
				return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			return logger.WithContext(ctx, log), nil
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		// main prints the error and exits; Run must return it.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Commands: []*cli.Command{
			gridCmd(),
			backwardCmd(),
			inspectCmd(),
			typemapCmd(),
			randomCmd(),
			cacheCmd(),
			benchCmd(),
			serveCmd(),
			versionCmd(),
		},
	}
}

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
