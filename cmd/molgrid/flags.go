package main

import (
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

var (
	backendName  string
	workers      int64
	receptorMap  string
	ligandMap    string
	noReceptor   bool
	settingsPath string
	cachePath    string
	logLevel     string
	logFormat    string
	debug        bool

	resolution     float64
	dimension      float64
	radiusMultiple float64
	binary         bool
	spherize       bool
	centerFlag     string
	subgridDim     float64
	batchSize      int
	stride         int

	rotationFlag   string
	randomRotation bool
	seed           int64
)

func backendFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "execution backend (auto, cpu, parallel)",
			Value:       "auto",
			Destination: &backendName,
		},
		&cli.Int64Flag{
			Name:        "workers",
			Aliases:     []string{"j"},
			Usage:       "worker goroutines for the parallel backend (0 = GOMAXPROCS)",
			Destination: &workers,
		},
	}
}

func typeMapFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "recmap",
			Usage:       "receptor type map file (default map when empty)",
			Destination: &receptorMap,
		},
		&cli.StringFlag{
			Name:        "ligmap",
			Usage:       "ligand type map file (default map when empty)",
			Destination: &ligandMap,
		},
		&cli.BoolFlag{
			Name:        "no-receptor",
			Usage:       "grid only the ligand channels",
			Destination: &noReceptor,
		},
	}
}

func gridFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "settings",
			Usage:       "yaml or json grid settings file",
			Destination: &settingsPath,
		},
		&cli.Float64Flag{
			Name:        "resolution",
			Aliases:     []string{"r"},
			Usage:       "grid spacing in angstroms",
			Value:       gridmaker.DefaultResolution,
			Destination: &resolution,
		},
		&cli.Float64Flag{
			Name:        "dimension",
			Aliases:     []string{"d"},
			Usage:       "grid side length in angstroms",
			Value:       gridmaker.DefaultDimension,
			Destination: &dimension,
		},
		&cli.Float64Flag{
			Name:        "radius-multiple",
			Usage:       "density cutoff as a multiple of the atom radius",
			Value:       gridmaker.DefaultRadiusMultiple,
			Destination: &radiusMultiple,
		},
		&cli.BoolFlag{
			Name:        "binary",
			Usage:       "binary occupancy instead of continuous density",
			Destination: &binary,
		},
		&cli.BoolFlag{
			Name:        "spherize",
			Usage:       "ignore atoms outside the sphere inscribed in the grid",
			Destination: &spherize,
		},
		&cli.StringFlag{
			Name:        "center",
			Usage:       "fixed grid centre x,y,z (default: ligand centroid)",
			Destination: &centerFlag,
		},
		&cli.Float64Flag{
			Name:        "subgrid-dim",
			Usage:       "subcube side length in angstroms (0 = dense layout)",
			Destination: &subgridDim,
		},
		&cli.IntFlag{
			Name:        "batch-size",
			Usage:       "examples accumulated per subcube buffer",
			Value:       1,
			Destination: &batchSize,
		},
		&cli.IntFlag{
			Name:        "stride",
			Usage:       "subcube stride in grid points (keeps dense addressing)",
			Destination: &stride,
		},
	}
}

func rotationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "rotation",
			Aliases:     []string{"quaternion"},
			Usage:       "rotation quaternion w,x,y,z applied about the grid centre",
			Destination: &rotationFlag,
		},
		&cli.BoolFlag{
			Name:        "random-rotation",
			Aliases:     []string{"rotate"},
			Usage:       "apply a uniformly random rotation to each molecule",
			Destination: &randomRotation,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "random seed (0 = time based)",
			Destination: &seed,
		},
	}
}

func cacheFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "cache",
			Usage:       "sqlite grid cache path",
			Destination: &cachePath,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func withFlags(groups ...[]cli.Flag) []cli.Flag {
	var out []cli.Flag
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
