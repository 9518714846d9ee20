package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/molgrid/internal/api"
	"github.com/samcharles93/molgrid/internal/gridstore"
	"github.com/samcharles93/molgrid/internal/logger"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		storeLimit  int
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the grid REST API",
		Flags: withFlags(
			gridFlags(),
			backendFlags(),
			cacheFlags(),
			[]cli.Flag{
				&cli.StringFlag{
					Name:        "addr",
					Usage:       "listen address",
					Value:       "127.0.0.1:8080",
					Destination: &addr,
				},
				&cli.DurationFlag{
					Name:        "read-timeout",
					Usage:       "read timeout",
					Value:       30 * time.Second,
					Destination: &readTimeout,
				},
				&cli.IntFlag{
					Name:        "max-grids",
					Usage:       "grids kept in memory for backward passes",
					Value:       api.DefaultStoreLimit,
					Destination: &storeLimit,
				},
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, fileConfig, &addr)

			params, err := gridParams(cmd, fileConfig)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			var cache *gridstore.Store
			if cachePath != "" {
				if cache, err = gridstore.Open(cachePath); err != nil {
					return cli.Exit(fmt.Sprintf("error: open cache: %v", err), 1)
				}
				defer func() { _ = cache.Close() }()
			}

			service := api.NewGridService(api.ServiceOptions{
				Defaults: &params,
				Backend:  backendName,
				Workers:  int(workers),
				Cache:    cache,
				Logger:   log.With("component", "api"),
				Seed:     uint64(time.Now().UnixNano()),
			})
			server := api.NewServer(api.NewGridStore(storeLimit), service)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr, "backend", backendName, "cache", cachePath)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
