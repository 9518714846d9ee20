package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/molgrid/internal/molio"
	"github.com/samcharles93/molgrid/pkg/atomtypes"
)

func randomCmd() *cli.Command {
	var (
		atoms  int
		maxXYZ float64
		output string
	)

	return &cli.Command{
		Name:  "random",
		Usage: "Write a random typed molecule for testing and benchmarking",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "atoms",
				Aliases:     []string{"n"},
				Usage:       fmt.Sprintf("atom count (0 = random in [1,%d])", molio.MaxRandomAtoms),
				Destination: &atoms,
			},
			&cli.Float64Flag{
				Name:        "max",
				Usage:       "coordinates are drawn from [-max, max]",
				Value:       5,
				Destination: &maxXYZ,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "random seed (0 = time based)",
				Destination: &seed,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output file (default stdout)",
				Destination: &output,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			s := uint64(seed)
			if s == 0 {
				s = uint64(time.Now().UnixNano())
			}
			rng := rand.New(rand.NewPCG(s, s>>1))
			m := molio.Random(rng, atoms, float32(maxXYZ), atomtypes.Smina)

			if output == "" {
				return molio.Encode(stdout, m)
			}
			f, err := os.Create(output)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if err := molio.Encode(f, m); err != nil {
				_ = f.Close()
				return cli.Exit(fmt.Sprintf("error: write %s: %v", output, err), 1)
			}
			return f.Close()
		},
	}
}
