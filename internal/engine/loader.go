// Package engine assembles grid engines from settings, type maps and a
// backend, and runs the passes on typed molecules.
package engine

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/num/quat"

	"github.com/samcharles93/molgrid/internal/backend"
	"github.com/samcharles93/molgrid/pkg/atomtypes"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

// Loader describes where type maps come from and which backend runs the
// passes. Inline map text takes precedence over a path; with neither the
// default map for the role is used.
type Loader struct {
	Vocab        *atomtypes.Table
	ReceptorPath string
	LigandPath   string
	ReceptorText string
	LigandText   string
	// NoReceptor drops receptor channels entirely.
	NoReceptor bool
	Backend    string
	Workers    int
}

// Load builds an engine for p.
func (l Loader) Load(p gridmaker.Params) (*Engine, error) {
	vocab := l.Vocab
	if vocab == nil {
		vocab = atomtypes.Smina
	}
	b, err := backend.New(l.Backend, l.Workers)
	if err != nil {
		return nil, err
	}

	builder := atomtypes.NewBuilder(vocab)
	var rec *atomtypes.Map
	if !l.NoReceptor {
		if rec, err = loadMap(builder.Receptor, builder.ReceptorText, l.ReceptorPath, l.ReceptorText); err != nil {
			return nil, fmt.Errorf("receptor map: %w", err)
		}
	}
	lig, err := loadMap(builder.Ligand, builder.LigandText, l.LigandPath, l.LigandText)
	if err != nil {
		return nil, fmt.Errorf("ligand map: %w", err)
	}
	channels := builder.Total()

	e := &Engine{
		vocab:       vocab,
		rec:         rec,
		lig:         lig,
		backend:     b,
		params:      p,
		channels:    channels,
		recChannels: builder.ReceptorChannels(),
	}
	cfg := p.Config()
	if p.Subcube() {
		e.sub, err = gridmaker.NewSubcube[float32](cfg, p.SubcubeConfig(), channels, b.Options())
		if err == nil {
			e.cur = e.sub.NewCursor()
		}
	} else {
		e.dense, err = gridmaker.New[float32](cfg, channels, b.Options())
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func loadMap(fromPath, fromText func(string) (*atomtypes.Map, error), path, text string) (*atomtypes.Map, error) {
	if strings.TrimSpace(text) != "" {
		return fromText(text)
	}
	return fromPath(path)
}

// ParseRotation reads "w,x,y,z" into a unit quaternion. An empty string is
// NoRotation.
func ParseRotation(s string) (quat.Number, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return gridmaker.NoRotation, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return quat.Number{}, fmt.Errorf("rotation %q: expected w,x,y,z", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return quat.Number{}, fmt.Errorf("rotation %q: %w", s, err)
		}
		v[i] = f
	}
	return RotationFromArray(v), nil
}

// RotationFromArray normalises [w, x, y, z].
func RotationFromArray(v [4]float64) quat.Number {
	return gridmaker.NewRotation(v[0], v[1], v[2], v[3])
}

// RotationArray is the [w, x, y, z] form of q.
func RotationArray(q quat.Number) [4]float64 {
	return [4]float64{q.Real, q.Imag, q.Jmag, q.Kmag}
}
