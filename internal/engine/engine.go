package engine

import (
	"fmt"

	"gonum.org/v1/gonum/num/quat"

	"github.com/samcharles93/molgrid/internal/backend"
	"github.com/samcharles93/molgrid/internal/molio"
	"github.com/samcharles93/molgrid/pkg/atomtypes"
	"github.com/samcharles93/molgrid/pkg/gridfile"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

// Engine is a configured dense or subcube grid engine plus the type maps
// that assign its channels. It is not safe for concurrent use: the subcube
// batch cursor advances on every Forward call.
type Engine struct {
	vocab       *atomtypes.Table
	rec, lig    *atomtypes.Map
	backend     backend.Backend
	params      gridmaker.Params
	channels    int
	recChannels int

	dense *gridmaker.GridMaker[float32]
	sub   *gridmaker.SubcubeGridMaker[float32]
	cur   gridmaker.BatchCursor
}

func (e *Engine) Channels() int           { return e.channels }
func (e *Engine) Backend() string         { return e.backend.Name() }
func (e *Engine) Params() gridmaker.Params { return e.params }

// ReceptorChannels is the number of leading channels owned by the receptor.
func (e *Engine) ReceptorChannels() int { return e.recChannels }

// ChannelNames labels every channel, receptor channels first.
func (e *Engine) ChannelNames() []string {
	var names []string
	if e.rec != nil {
		for _, n := range e.rec.ChannelNames() {
			names = append(names, "rec_"+n)
		}
	}
	for _, n := range e.lig.ChannelNames() {
		names = append(names, "lig_"+n)
	}
	return names
}

func (e *Engine) Layout() gridfile.Layout {
	if e.sub != nil && e.sub.Mode() == gridmaker.ModeSubcube {
		return gridfile.LayoutSubcube
	}
	return gridfile.LayoutDense
}

func (e *Engine) Geometry() gridmaker.Geometry {
	if e.sub != nil {
		return e.sub.Geometry()
	}
	return e.dense.Geometry()
}

func (e *Engine) GridLen() int {
	if e.sub != nil {
		return e.sub.GridLen()
	}
	return e.dense.GridLen()
}

// Config is the effective grid configuration, including the current centre.
func (e *Engine) Config() gridmaker.Config {
	if e.sub != nil {
		return e.sub.Config()
	}
	return e.dense.Config()
}

// Cursor is the batch slot the next Forward call writes.
func (e *Engine) Cursor() gridmaker.BatchCursor { return e.cur }

// BatchSize is 1 for dense engines.
func (e *Engine) BatchSize() int {
	if e.sub != nil && e.sub.Mode() == gridmaker.ModeSubcube {
		return e.sub.BatchSize()
	}
	return 1
}

// Header describes the buffers this engine writes and the kernel that
// filled them.
func (e *Engine) Header() gridfile.Header {
	var h gridfile.Header
	if e.Layout() == gridfile.LayoutSubcube {
		h = gridfile.Subcube(e.channels, e.sub.Geometry(), e.sub.SubDimPoints(), e.sub.GridsPerDim(), e.sub.BatchSize())
	} else {
		h = gridfile.Dense(e.channels, e.Geometry())
	}
	h.SetKernel(e.Config())
	return h
}

func (e *Engine) SetCenter(c [3]float64) {
	if e.sub != nil {
		e.sub.SetCenter(c[0], c[1], c[2])
		return
	}
	e.dense.SetCenter(c[0], c[1], c[2])
}

// Prepare flattens m for this engine's maps and centres the grid on m
// unless the settings fix a centre.
func (e *Engine) Prepare(m *molio.Molecule) ([]gridmaker.AtomInfo, []int, error) {
	atoms, chans, err := m.Gridder(e.rec, e.lig, e.vocab)
	if err != nil {
		return nil, nil, err
	}
	if e.params.Center == nil {
		c, err := m.Center()
		if err != nil {
			return nil, nil, err
		}
		e.SetCenter(c)
	}
	return atoms, chans, nil
}

// NewGrid allocates a buffer of GridLen values.
func (e *Engine) NewGrid() []float32 {
	return make([]float32, e.GridLen())
}

// Forward writes the density of atoms into grid. Subcube engines write the
// current batch slot and advance the cursor.
func (e *Engine) Forward(atoms []gridmaker.AtomInfo, chans []int, q quat.Number, grid []float32) (err error) {
	defer guard("forward", &err)
	if e.sub != nil {
		e.cur, err = e.sub.SetAtoms(atoms, chans, q, grid, e.cur)
		return err
	}
	return e.dense.SetAtoms(atoms, chans, q, grid)
}

// Gradient backpropagates diff onto atoms. slot selects the batch slot of a
// subcube buffer and is ignored otherwise.
func (e *Engine) Gradient(atoms []gridmaker.AtomInfo, chans []int, q quat.Number, diff []float32, slot int) (grads []gridmaker.Vec3, err error) {
	defer guard("gradient", &err)
	grads = make([]gridmaker.Vec3, len(atoms))
	if e.sub != nil {
		cur, err := e.slot(slot)
		if err != nil {
			return nil, err
		}
		return grads, e.sub.SetAtomGradients(atoms, chans, q, diff, cur, grads)
	}
	return grads, e.dense.SetAtomGradients(atoms, chans, q, diff, grads)
}

// Relevance apportions the attribution grid diff to atoms using density.
// Only Vec3.X of each result is set.
func (e *Engine) Relevance(atoms []gridmaker.AtomInfo, chans []int, q quat.Number, density, diff []float32, slot int) (rel []gridmaker.Vec3, err error) {
	defer guard("relevance", &err)
	rel = make([]gridmaker.Vec3, len(atoms))
	if e.sub != nil {
		cur, err := e.slot(slot)
		if err != nil {
			return nil, err
		}
		return rel, e.sub.SetAtomRelevance(atoms, chans, q, density, diff, cur, rel)
	}
	return rel, e.dense.SetAtomRelevance(atoms, chans, q, density, diff, rel)
}

func (e *Engine) slot(slot int) (gridmaker.BatchCursor, error) {
	cur := e.sub.NewCursor()
	if e.sub.Mode() == gridmaker.ModeStrided {
		return cur, nil
	}
	if slot < 0 || slot >= cur.Size() {
		return cur, fmt.Errorf("%w: batch slot %d outside [0,%d)", gridmaker.ErrShapeMismatch, slot, cur.Size())
	}
	for range slot {
		cur = cur.Next()
	}
	return cur, nil
}

func guard(pass string, err *error) {
	if rec := recover(); rec != nil {
		if recErr, ok := rec.(error); ok {
			*err = fmt.Errorf("%s pass failed: %w", pass, recErr)
			return
		}
		*err = fmt.Errorf("%s pass failed: %v", pass, rec)
	}
}
