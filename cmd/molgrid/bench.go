package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/molgrid/internal/backend"
	"github.com/samcharles93/molgrid/internal/engine"
	"github.com/samcharles93/molgrid/internal/logger"
	"github.com/samcharles93/molgrid/internal/molio"
	"github.com/samcharles93/molgrid/pkg/atomtypes"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

type benchResult struct {
	Backend   string
	Forward   time.Duration
	Gradient  time.Duration
	Relevance time.Duration
}

func benchCmd() *cli.Command {
	var (
		warmupRuns int64
		benchRuns  int64
		atomCount  int
		backends   string
	)

	return &cli.Command{
		Name:    "bench",
		Aliases: []string{"benchmark"},
		Usage:   "Time the forward and backward passes on a random molecule",
		Flags: withFlags(
			gridFlags(),
			[]cli.Flag{
				&cli.Int64Flag{
					Name:        "warmup",
					Usage:       "number of warmup runs",
					Value:       1,
					Destination: &warmupRuns,
				},
				&cli.Int64Flag{
					Name:        "runs",
					Usage:       "number of benchmark runs",
					Value:       5,
					Destination: &benchRuns,
				},
				&cli.IntFlag{
					Name:        "atoms",
					Aliases:     []string{"n"},
					Usage:       "atoms in the random molecule",
					Value:       molio.MaxRandomAtoms,
					Destination: &atomCount,
				},
				&cli.StringFlag{
					Name:        "backends",
					Usage:       "comma separated backends to compare",
					Value:       backend.Available(),
					Destination: &backends,
				},
				&cli.Int64Flag{
					Name:        "workers",
					Aliases:     []string{"j"},
					Usage:       "worker goroutines for the parallel backend (0 = GOMAXPROCS)",
					Destination: &workers,
				},
				&cli.Int64Flag{
					Name:        "seed",
					Usage:       "random seed",
					Value:       42,
					Destination: &seed,
				},
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			if benchRuns < 1 {
				return cli.Exit("error: --runs must be at least 1", 1)
			}

			params, err := gridParams(cmd, fileConfig)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			s := uint64(seed)
			rng := rand.New(rand.NewPCG(s, s>>1))
			mol := molio.Random(rng, atomCount, float32(params.Config().Dimension)/2, atomtypes.Smina)
			q := gridmaker.RandomRotation(rng)

			fmt.Fprintln(stdout, "=== molgrid benchmark ===")
			fmt.Fprintf(stdout, "Atoms:      %d\n", mol.Len())
			fmt.Fprintf(stdout, "Resolution: %g A\n", params.Config().Resolution)
			fmt.Fprintf(stdout, "Dimension:  %g A\n", params.Config().Dimension)
			fmt.Fprintf(stdout, "CPUs:       %d\n", runtime.NumCPU())
			fmt.Fprintf(stdout, "GOMAXPROCS: %d\n", runtime.GOMAXPROCS(0))
			fmt.Fprintf(stdout, "Warmup:     %d runs\n", warmupRuns)
			fmt.Fprintf(stdout, "Runs:       %d\n\n", benchRuns)

			var results []benchResult
			for _, name := range strings.Split(backends, ",") {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				e, err := engine.Loader{Backend: name, Workers: int(workers)}.Load(params)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: backend %s: %v", name, err), 1)
				}
				atoms, chans, err := e.Prepare(mol)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				grid := e.NewGrid()

				run := func() (benchResult, error) {
					r := benchResult{Backend: e.Backend()}
					start := time.Now()
					if err := e.Forward(atoms, chans, q, grid); err != nil {
						return r, err
					}
					r.Forward = time.Since(start)
					start = time.Now()
					if _, err := e.Gradient(atoms, chans, q, grid, 0); err != nil {
						return r, err
					}
					r.Gradient = time.Since(start)
					start = time.Now()
					if _, err := e.Relevance(atoms, chans, q, grid, grid, 0); err != nil {
						return r, err
					}
					r.Relevance = time.Since(start)
					return r, nil
				}

				for i := range int(warmupRuns) {
					log.Debug("warmup run", "backend", name, "run", i+1)
					if _, err := run(); err != nil {
						return cli.Exit(fmt.Sprintf("error: warmup run %d: %v", i+1, err), 1)
					}
				}
				var sum benchResult
				for i := range int(benchRuns) {
					log.Debug("benchmark run", "backend", name, "run", i+1)
					r, err := run()
					if err != nil {
						return cli.Exit(fmt.Sprintf("error: benchmark run %d: %v", i+1, err), 1)
					}
					sum.Backend = r.Backend
					sum.Forward += r.Forward
					sum.Gradient += r.Gradient
					sum.Relevance += r.Relevance
				}
				n := time.Duration(benchRuns)
				results = append(results, benchResult{
					Backend:   sum.Backend,
					Forward:   sum.Forward / n,
					Gradient:  sum.Gradient / n,
					Relevance: sum.Relevance / n,
				})
			}

			fmt.Fprintln(stdout, "=== Results (mean per run) ===")
			fmt.Fprintf(stdout, "%-10s %12s %12s %12s\n", "Backend", "Forward", "Gradient", "Relevance")
			for _, r := range results {
				fmt.Fprintf(stdout, "%-10s %12s %12s %12s\n", r.Backend,
					r.Forward.Round(time.Microsecond), r.Gradient.Round(time.Microsecond), r.Relevance.Round(time.Microsecond))
			}

			var mem runtime.MemStats
			runtime.ReadMemStats(&mem)
			fmt.Fprintf(stdout, "\nMemory: %.1f MB alloc, %.1f MB sys\n",
				float64(mem.Alloc)/(1024*1024),
				float64(mem.Sys)/(1024*1024))
			return nil
		},
	}
}
