package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/molgrid/internal/plotgrid"
	"github.com/samcharles93/molgrid/pkg/gridfile"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

func inspectCmd() *cli.Command {
	var (
		showStats  bool
		asJSON     bool
		pngPath    string
		pngChannel int
		pngAxis    string
		pngIndex   int
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show the header and statistics of a grid file",
		ArgsUsage: "<grid.mgrd>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "stats", Usage: "per-channel statistics (dense grids)", Destination: &showStats},
			&cli.BoolFlag{Name: "json", Usage: "print json instead of text", Destination: &asJSON},
			&cli.StringFlag{Name: "png", Usage: "render a slice to this image path (dense grids)", Destination: &pngPath},
			&cli.IntFlag{Name: "channel", Usage: "channel rendered with --png", Destination: &pngChannel},
			&cli.StringFlag{Name: "axis", Usage: "axis normal to the rendered slice", Value: "z", Destination: &pngAxis},
			&cli.IntFlag{Name: "index", Usage: "slice index (-1 = centre)", Value: -1, Destination: &pngIndex},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return cli.Exit("error: exactly one grid file is required", 1)
			}
			path := cmd.Args().First()
			f, err := gridfile.Open(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open %s: %v", path, err), 1)
			}
			defer func() { _ = f.Close() }()
			h := f.Header
			dense := h.Layout == gridfile.LayoutDense

			var stats []plotgrid.ChannelStats
			if showStats && dense {
				if stats, err = plotgrid.Summarise(f.Float32s(), int(h.Channels)); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			}

			if pngPath != "" {
				if !dense {
					return cli.Exit("error: --png needs a dense grid", 1)
				}
				axis, err := parseAxis(pngAxis)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				cfg := h.GridConfig()
				geom, err := headerGeometry(cfg, int(h.Channels))
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				index := pngIndex
				if index < 0 {
					index = geom.Dim / 2
				}
				title := fmt.Sprintf("%s channel %d", path, pngChannel)
				if err := plotgrid.RenderSlice(pngPath, f.Float32s(), geom, pngChannel, axis, index, title); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			}

			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Path   string                  `json:"path"`
					Header *gridfile.Header        `json:"header"`
					Stats  []plotgrid.ChannelStats `json:"stats,omitempty"`
				}{path, h, stats})
			}

			_, _ = fmt.Fprintf(stdout, "File:        %s\n", path)
			_, _ = fmt.Fprintf(stdout, "Version:     %d.%d\n", h.Major, h.Minor)
			_, _ = fmt.Fprintf(stdout, "Layout:      %s\n", h.Layout)
			_, _ = fmt.Fprintf(stdout, "Channels:    %d\n", h.Channels)
			_, _ = fmt.Fprintf(stdout, "Dim:         %d (%.3g A at %.3g A)\n", h.Dim, h.Extent(), h.Resolution)
			_, _ = fmt.Fprintf(stdout, "Center:      %.3f, %.3f, %.3f\n", h.Center[0], h.Center[1], h.Center[2])
			if !dense {
				_, _ = fmt.Fprintf(stdout, "Subcubes:    %d^3 of %d^3 points, batch %d\n", h.GridsPerDim, h.SubDim, h.BatchSize)
			}
			if h.HasKernel() {
				_, _ = fmt.Fprintf(stdout, "Kernel:      radius x%.3g, binary %t, spherize %t\n", h.RadiusMultiple, h.Binary(), h.Spherize())
			}
			_, _ = fmt.Fprintf(stdout, "Values:      %d (%s)\n", h.Values(), formatBytes(int64(h.DataSize)))
			if len(stats) > 0 {
				_, _ = fmt.Fprintf(stdout, "\n%-8s %12s %12s %14s %10s\n", "Channel", "Min", "Max", "Sum", "Nonzero")
				for _, st := range stats {
					_, _ = fmt.Fprintf(stdout, "%-8d %12.4g %12.4g %14.6g %10d\n", st.Channel, st.Min, st.Max, st.Sum, st.NonZero)
				}
			}
			return nil
		},
	}
}

// headerGeometry rebuilds the geometry a dense grid file was written with.
func headerGeometry(cfg gridmaker.Config, channels int) (gridmaker.Geometry, error) {
	gm, err := gridmaker.New[float32](cfg, channels, gridmaker.Options{Workers: 1})
	if err != nil {
		return gridmaker.Geometry{}, err
	}
	return gm.Geometry(), nil
}

func formatBytes(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
