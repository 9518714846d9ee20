// Package molio reads and writes typed atom sets and turns them into the
// flat arrays the grid engines consume.
package molio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/samcharles93/molgrid/pkg/atomtypes"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

var ErrEmpty = errors.New("molecule has no atoms")

// Atom is one typed atom. A zero Radius is filled from the vocabulary.
type Atom struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Z      float32 `json:"z"`
	Type   string  `json:"type"`
	Radius float32 `json:"radius,omitempty"`
}

// Molecule is a receptor/ligand complex, either part of which may be empty.
type Molecule struct {
	FixedCenter *[3]float64 `json:"center,omitempty"`
	Receptor    []Atom      `json:"receptor,omitempty"`
	Ligand      []Atom      `json:"ligand,omitempty"`
}

// Radii resolves type names and their default radii. *atomtypes.Table
// implements it.
type Radii interface {
	Lookup(name string) (atomtypes.TypeID, bool)
	Radius(t atomtypes.TypeID) float32
}

func Decode(r io.Reader) (*Molecule, error) {
	var m Molecule
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode molecule: %w", err)
	}
	return &m, nil
}

func Load(path string) (*Molecule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func Encode(w io.Writer, m *Molecule) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}

// Len is the total atom count.
func (m *Molecule) Len() int { return len(m.Receptor) + len(m.Ligand) }

// Gridder flattens the molecule for a grid engine. Receptor atoms come first
// and use rec; ligand atoms use lig with channels offset by rec's channel
// count. Types a map leaves unused, or a nil map, give gridmaker.Unmapped.
func (m *Molecule) Gridder(rec, lig *atomtypes.Map, radii Radii) ([]gridmaker.AtomInfo, []int, error) {
	atoms := make([]gridmaker.AtomInfo, 0, m.Len())
	chans := make([]int, 0, m.Len())
	offset := 0
	if rec != nil {
		offset = rec.Channels()
	}
	add := func(part string, list []Atom, tm *atomtypes.Map, base int) error {
		for i, a := range list {
			t, ok := radii.Lookup(a.Type)
			if !ok {
				return fmt.Errorf("%s atom %d: %w %q", part, i, atomtypes.ErrUnknownType, a.Type)
			}
			r := a.Radius
			if r == 0 {
				r = radii.Radius(t)
			}
			ch := gridmaker.Unmapped
			if tm != nil {
				if c := tm.Channel(t); c >= 0 {
					ch = base + c
				}
			}
			atoms = append(atoms, gridmaker.AtomInfo{X: a.X, Y: a.Y, Z: a.Z, Radius: r})
			chans = append(chans, ch)
		}
		return nil
	}
	if err := add("receptor", m.Receptor, rec, 0); err != nil {
		return nil, nil, err
	}
	if err := add("ligand", m.Ligand, lig, offset); err != nil {
		return nil, nil, err
	}
	return atoms, chans, nil
}

// Center returns the explicit centre if set, else the ligand centroid, else
// the receptor centroid.
func (m *Molecule) Center() ([3]float64, error) {
	switch {
	case m.FixedCenter != nil:
		return *m.FixedCenter, nil
	case len(m.Ligand) > 0:
		return centroid(m.Ligand), nil
	case len(m.Receptor) > 0:
		return centroid(m.Receptor), nil
	}
	return [3]float64{}, ErrEmpty
}

func centroid(atoms []Atom) [3]float64 {
	var c [3]float64
	for _, a := range atoms {
		c[0] += float64(a.X)
		c[1] += float64(a.Y)
		c[2] += float64(a.Z)
	}
	n := float64(len(atoms))
	return [3]float64{c[0] / n, c[1] / n, c[2] / n}
}
