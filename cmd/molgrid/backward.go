package main

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/molgrid/internal/engine"
	"github.com/samcharles93/molgrid/internal/logger"
	"github.com/samcharles93/molgrid/internal/molio"
	"github.com/samcharles93/molgrid/pkg/gridfile"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

const (
	modeGradient  = "gradient"
	modeRelevance = "relevance"
)

type atomVector struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

type backwardResult struct {
	Mode      string       `json:"mode"`
	Molecule  string       `json:"molecule"`
	Rotation  [4]float64   `json:"rotation"`
	Gradients []atomVector `json:"gradients,omitempty"`
	Relevance []float32    `json:"relevance,omitempty"`
}

func backwardCmd() *cli.Command {
	var (
		mode        string
		diffPath    string
		densityPath string
		slot        int
	)

	return &cli.Command{
		Name:      "backward",
		Usage:     "Backpropagate a grid onto the atoms of a molecule",
		ArgsUsage: "<molecule.json>",
		Flags: withFlags(
			gridFlags(),
			typeMapFlags(),
			backendFlags(),
			[]cli.Flag{
				&cli.StringFlag{
					Name:        "mode",
					Usage:       "backward pass (gradient, relevance)",
					Value:       modeGradient,
					Destination: &mode,
				},
				&cli.StringFlag{
					Name:        "diff",
					Usage:       "grid file holding the upstream gradient or attribution",
					Required:    true,
					Destination: &diffPath,
				},
				&cli.StringFlag{
					Name:        "density",
					Usage:       "grid file holding the forward density (relevance; recomputed when empty)",
					Destination: &densityPath,
				},
				&cli.IntFlag{
					Name:        "slot",
					Usage:       "batch slot of a subcube grid",
					Destination: &slot,
				},
				&cli.StringFlag{
					Name:        "rotation",
					Aliases:     []string{"quaternion"},
					Usage:       "rotation quaternion w,x,y,z used by the forward pass",
					Destination: &rotationFlag,
				},
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyEngineConfig(cmd, fileConfig)

			if mode != modeGradient && mode != modeRelevance {
				return cli.Exit(fmt.Sprintf("error: unknown mode %q (expected gradient or relevance)", mode), 1)
			}
			if cmd.Args().Len() != 1 {
				return cli.Exit("error: exactly one molecule file is required", 1)
			}
			molPath := cmd.Args().First()

			diff, err := gridfile.Open(diffPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open %s: %v", diffPath, err), 1)
			}
			defer func() { _ = diff.Close() }()

			params, err := gridParams(cmd, fileConfig)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			center := diff.Header.Center
			params.Center = &center
			kernelFromHeader(cmd, &params, diff.Header)
			e, err := engineLoader().Load(params)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := sameShape(e.Header(), *diff.Header); err != nil {
				return cli.Exit(fmt.Sprintf("error: %s: %v", diffPath, err), 1)
			}
			q, err := engine.ParseRotation(rotationFlag)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			m, err := molio.Load(molPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			atoms, chans, err := e.Prepare(m)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %s: %v", molPath, err), 1)
			}

			result := backwardResult{
				Mode:     mode,
				Molecule: molPath,
				Rotation: engine.RotationArray(q),
			}
			start := time.Now()
			switch mode {
			case modeGradient:
				grads, err := e.Gradient(atoms, chans, q, diff.Float32s(), slot)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				result.Gradients = make([]atomVector, len(grads))
				for i, g := range grads {
					result.Gradients[i] = atomVector{X: g.X, Y: g.Y, Z: g.Z}
				}
			case modeRelevance:
				var density []float32
				if densityPath != "" {
					f, err := gridfile.Open(densityPath)
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: open %s: %v", densityPath, err), 1)
					}
					defer func() { _ = f.Close() }()
					if err := sameShape(e.Header(), *f.Header); err != nil {
						return cli.Exit(fmt.Sprintf("error: %s: %v", densityPath, err), 1)
					}
					density = f.Float32s()
				} else {
					// Filling slots 0..slot leaves this molecule's density in
					// the requested slot.
					density = e.NewGrid()
					for range slot + 1 {
						if err := e.Forward(atoms, chans, q, density); err != nil {
							return cli.Exit(fmt.Sprintf("error: %v", err), 1)
						}
					}
				}
				rel, err := e.Relevance(atoms, chans, q, density, diff.Float32s(), slot)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				result.Relevance = make([]float32, len(rel))
				for i, r := range rel {
					result.Relevance[i] = r.X
				}
			}
			logger.Since(log, start, "backward pass", "mode", mode, "atoms", len(atoms))

			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
}

// sameShape checks that a grid file was written with the engine's layout.
func sameShape(want, got gridfile.Header) error {
	switch {
	case want.Layout != got.Layout:
		return fmt.Errorf("layout %s, engine uses %s", got.Layout, want.Layout)
	case want.Channels != got.Channels:
		return fmt.Errorf("%d channels, engine uses %d", got.Channels, want.Channels)
	case want.Dim != got.Dim:
		return fmt.Errorf("dimension %d points, engine uses %d", got.Dim, want.Dim)
	case want.SubDim != got.SubDim || want.GridsPerDim != got.GridsPerDim || want.BatchSize != got.BatchSize:
		return fmt.Errorf("subcube tiling %dx%d batch %d, engine uses %dx%d batch %d",
			got.GridsPerDim, got.SubDim, got.BatchSize, want.GridsPerDim, want.SubDim, want.BatchSize)
	case want.Resolution != got.Resolution:
		return fmt.Errorf("resolution %g, engine uses %g", got.Resolution, want.Resolution)
	case !got.HasKernel():
		return nil
	case want.RadiusMultiple != got.RadiusMultiple:
		return fmt.Errorf("radius multiple %g, engine uses %g", got.RadiusMultiple, want.RadiusMultiple)
	case want.Binary() != got.Binary():
		return fmt.Errorf("binary occupancy %t, engine uses %t", got.Binary(), want.Binary())
	case want.Spherize() != got.Spherize():
		return fmt.Errorf("spherical mask %t, engine uses %t", got.Spherize(), want.Spherize())
	}
	return nil
}

// kernelFromHeader takes the kernel settings of a grid file unless they were
// given on the command line.
func kernelFromHeader(cmd *cli.Command, p *gridmaker.Params, h *gridfile.Header) {
	if !h.HasKernel() {
		return
	}
	if !cmd.IsSet("radius-multiple") {
		p.RadiusMultiple = h.RadiusMultiple
	}
	if !cmd.IsSet("binary") {
		p.BinaryOccupancy = h.Binary()
	}
	if !cmd.IsSet("spherize") {
		p.SphericalMask = h.Spherize()
	}
}
