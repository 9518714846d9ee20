package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/samcharles93/molgrid/internal/backend"
	"github.com/samcharles93/molgrid/internal/engine"
	"github.com/samcharles93/molgrid/internal/gridstore"
	"github.com/samcharles93/molgrid/internal/logger"
	"github.com/samcharles93/molgrid/internal/molio"
	"github.com/samcharles93/molgrid/internal/plotgrid"
	"github.com/samcharles93/molgrid/pkg/gridfile"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

// gridSummary is printed per written grid with --stats.
type gridSummary struct {
	Inputs   []string                `json:"inputs"`
	Output   string                  `json:"output"`
	Rotation [4]float64              `json:"rotation"`
	Center   [3]float64              `json:"center"`
	Stats    []plotgrid.ChannelStats `json:"stats,omitempty"`
}

func gridCmd() *cli.Command {
	var (
		output     string
		outDir     string
		writePNG   bool
		pngChannel int
		pngAxis    string
		printStats bool
	)

	return &cli.Command{
		Name:      "grid",
		Usage:     "Compute density grids for molecule files",
		ArgsUsage: "<molecule.json|dir>...",
		Flags: withFlags(
			gridFlags(),
			typeMapFlags(),
			rotationFlags(),
			backendFlags(),
			cacheFlags(),
			[]cli.Flag{
				&cli.StringFlag{
					Name:        "output",
					Aliases:     []string{"o"},
					Usage:       "output grid file (single input only)",
					Destination: &output,
				},
				&cli.StringFlag{
					Name:        "out-dir",
					Usage:       "directory for output grids (default: next to each input)",
					Destination: &outDir,
				},
				&cli.BoolFlag{
					Name:        "png",
					Usage:       "also render the centre slice of one channel as a png",
					Destination: &writePNG,
				},
				&cli.IntFlag{
					Name:        "png-channel",
					Usage:       "channel rendered with --png",
					Destination: &pngChannel,
				},
				&cli.StringFlag{
					Name:        "png-axis",
					Usage:       "axis normal to the rendered slice (x, y, z)",
					Value:       "z",
					Destination: &pngAxis,
				},
				&cli.BoolFlag{
					Name:        "stats",
					Usage:       "print per-channel statistics as json lines",
					Destination: &printStats,
				},
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyEngineConfig(cmd, fileConfig)

			inputs, err := expandInputs(cmd.Args().Slice())
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if len(inputs) == 0 {
				return cli.Exit("error: at least one molecule file is required", 1)
			}
			if output != "" && len(inputs) > 1 {
				return cli.Exit("error: --output needs a single input; use --out-dir", 1)
			}
			axis, err := parseAxis(pngAxis)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			params, err := gridParams(cmd, fileConfig)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			e, err := engineLoader().Load(params)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			nextRotation, err := rotationSource()
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

			log.Debug("host", "features", backend.Features())
			log.Info("grid engine ready",
				"backend", e.Backend(),
				"layout", e.Layout(),
				"channels", e.Channels(),
				"dim", e.Geometry().Dim,
				"inputs", len(inputs),
			)

			grid := e.NewGrid()
			var batch []string
			for i, in := range inputs {
				m, err := molio.Load(in)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				atoms, chans, err := e.Prepare(m)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %s: %v", in, err), 1)
				}
				q := nextRotation()

				start := time.Now()
				cached, err := forwardCached(ctx, cache, e, atoms, chans, q, grid)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %s: %v", in, err), 1)
				}
				logger.Since(log, start, "forward pass", "input", in, "atoms", len(atoms), "cached", cached)

				batch = append(batch, in)
				if !e.Cursor().StartsBatch() && i < len(inputs)-1 {
					continue
				}

				out, err := resolveGridOut(batch[0], output, outDir)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				if err := gridfile.WriteFile(out, e.Header(), grid); err != nil {
					return cli.Exit(fmt.Sprintf("error: write %s: %v", out, err), 1)
				}
				log.Info("wrote grid", "path", out, "examples", len(batch))

				dense := e.Layout() == gridfile.LayoutDense
				if writePNG && dense {
					png := withSuffix(out, ".png")
					title := fmt.Sprintf("%s channel %d", batch[0], pngChannel)
					if names := e.ChannelNames(); pngChannel >= 0 && pngChannel < len(names) {
						title = names[pngChannel]
					}
					geom := e.Geometry()
					if err := plotgrid.RenderSlice(png, grid, geom, pngChannel, axis, geom.Dim/2, title); err != nil {
						return cli.Exit(fmt.Sprintf("error: render %s: %v", png, err), 1)
					}
					log.Info("wrote slice", "path", png)
				}
				if printStats {
					summary := gridSummary{
						Inputs:   batch,
						Output:   out,
						Rotation: engine.RotationArray(q),
						Center:   e.Geometry().Center,
					}
					if dense {
						if summary.Stats, err = channelStats(e, grid); err != nil {
							return cli.Exit(fmt.Sprintf("error: %v", err), 1)
						}
					}
					if err := json.NewEncoder(stdout).Encode(summary); err != nil {
						return err
					}
				}
				batch = nil
			}
			return nil
		},
	}
}

// forwardCached fills grid, reading and feeding the cache for dense
// layouts.
func forwardCached(ctx context.Context, cache *gridstore.Store, e *engine.Engine, atoms []gridmaker.AtomInfo, chans []int, q quat.Number, grid []float32) (bool, error) {
	if cache == nil || e.Layout() != gridfile.LayoutDense {
		return false, e.Forward(atoms, chans, q, grid)
	}
	key := gridstore.Key(e.Config(), e.Channels(), atoms, chans, q)
	_, data, ok, err := cache.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if ok && len(data) == len(grid) {
		copy(grid, data)
		return true, nil
	}
	if err := e.Forward(atoms, chans, q, grid); err != nil {
		return false, err
	}
	return false, cache.Put(ctx, key, e.Header(), grid)
}

// rotationSource returns the rotation for each successive molecule.
func rotationSource() (func() quat.Number, error) {
	if rotationFlag != "" && randomRotation {
		return nil, fmt.Errorf("--rotation and --random-rotation are mutually exclusive")
	}
	if rotationFlag != "" {
		q, err := engine.ParseRotation(rotationFlag)
		if err != nil {
			return nil, err
		}
		return func() quat.Number { return q }, nil
	}
	if !randomRotation {
		return func() quat.Number { return gridmaker.NoRotation }, nil
	}
	s := uint64(seed)
	if s == 0 {
		s = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(s, s>>1))
	return func() quat.Number { return gridmaker.RandomRotation(rng) }, nil
}

func channelStats(e *engine.Engine, grid []float32) ([]plotgrid.ChannelStats, error) {
	stats, err := plotgrid.Summarise(grid, e.Channels())
	if err != nil {
		return nil, err
	}
	names := e.ChannelNames()
	for i := range stats {
		stats[i].Name = names[i]
	}
	return stats, nil
}

func parseAxis(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return 0, nil
	case "y":
		return 1, nil
	case "z", "":
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown axis %q (expected x, y, or z)", s)
	}
}
