package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/molgrid/pkg/atomtypes"
)

func typemapCmd() *cli.Command {
	var (
		role      string
		mapPath   string
		listVocab bool
		raw       bool
	)

	return &cli.Command{
		Name:  "typemap",
		Usage: "Show how atom types map to grid channels",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "role",
				Usage:       "default map to show (receptor, ligand)",
				Value:       "ligand",
				Destination: &role,
			},
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "type map file to resolve instead of a default map",
				Destination: &mapPath,
			},
			&cli.BoolFlag{
				Name:        "types",
				Usage:       "list the atom type vocabulary with radii",
				Destination: &listVocab,
			},
			&cli.BoolFlag{
				Name:        "raw",
				Usage:       "print the map in its file format",
				Destination: &raw,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			vocab := atomtypes.Smina
			if listVocab {
				for _, name := range vocab.Names() {
					id, _ := vocab.Lookup(name)
					_, _ = fmt.Fprintf(stdout, "%3d  %-32s %5.2f\n", id, name, vocab.Radius(id))
				}
				return nil
			}

			builder := atomtypes.NewBuilder(vocab)
			var (
				m   *atomtypes.Map
				err error
			)
			switch role {
			case "receptor":
				m, err = builder.Receptor(mapPath)
			case "ligand":
				m, err = builder.Ligand(mapPath)
			default:
				return cli.Exit(fmt.Sprintf("error: unknown role %q (expected receptor or ligand)", role), 1)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			if raw {
				_, _ = fmt.Fprint(stdout, m.String())
				return nil
			}
			for ch, name := range m.ChannelNames() {
				_, _ = fmt.Fprintf(stdout, "%3d  %s\n", ch, name)
			}
			_, _ = fmt.Fprintf(stdout, "\n%d channel(s)\n", m.Channels())
			return nil
		},
	}
}
