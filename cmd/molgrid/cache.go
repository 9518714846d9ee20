package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/molgrid/internal/gridstore"
	"github.com/samcharles93/molgrid/internal/logger"
)

func cacheCmd() *cli.Command {
	var olderThan time.Duration

	open := func(cmd *cli.Command) (*gridstore.Store, error) {
		applyEngineConfig(cmd, fileConfig)
		if cachePath == "" {
			return nil, cli.Exit("error: --cache is required unless set in the config file", 1)
		}
		store, err := gridstore.Open(cachePath)
		if err != nil {
			return nil, cli.Exit(fmt.Sprintf("error: open cache: %v", err), 1)
		}
		return store, nil
	}

	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or prune the grid cache",
		Commands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show cache size and hit counts",
				Flags: cacheFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					store, err := open(cmd)
					if err != nil {
						return err
					}
					defer func() { _ = store.Close() }()
					st, err := store.Stats(ctx)
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
					_, _ = fmt.Fprintf(stdout, "Entries: %d\nSize:    %s\nHits:    %d\n", st.Entries, formatBytes(st.Bytes), st.Hits)
					return nil
				},
			},
			{
				Name:  "prune",
				Usage: "Remove cached grids older than a duration",
				Flags: append(cacheFlags(),
					&cli.DurationFlag{
						Name:        "older-than",
						Usage:       "age of entries to remove (0 removes everything)",
						Value:       7 * 24 * time.Hour,
						Destination: &olderThan,
					},
				),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					log := logger.FromContext(ctx)
					store, err := open(cmd)
					if err != nil {
						return err
					}
					defer func() { _ = store.Close() }()
					// Entries are stamped in whole seconds.
					cutoff := time.Now().Add(-olderThan).Add(time.Second)
					n, err := store.Prune(ctx, cutoff)
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: %v", err), 1)
					}
					log.Info("pruned grid cache", "removed", n, "path", cachePath)
					_, _ = fmt.Fprintf(stdout, "removed %d entries\n", n)
					return nil
				},
			},
		},
	}
}
