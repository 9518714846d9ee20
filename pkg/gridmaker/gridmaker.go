package gridmaker

import (
	"gonum.org/v1/gonum/num/quat"
)

// GridMaker fills dense [channels][dim][dim][dim] grids.
type GridMaker[T Float] struct {
	core
	cfg    Config
	layout DenseLayout
}

// New builds a dense engine for the given number of channels.
func New[T Float](cfg Config, channels int, opts Options) (*GridMaker[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := newCore(cfg, float64(cfg.Resolution), float64(cfg.Dimension), channels, opts)
	if err != nil {
		return nil, err
	}
	return &GridMaker[T]{
		core:   c,
		cfg:    cfg,
		layout: DenseLayout{Channels: channels, Dim: c.geom.Dim},
	}, nil
}

// Config returns the configuration the engine was built from, with the
// current centre.
func (g *GridMaker[T]) Config() Config {
	cfg := g.cfg
	cfg.Center = g.geom.Center
	return cfg
}

// Geometry returns the derived grid geometry.
func (g *GridMaker[T]) Geometry() Geometry { return g.geom }

// Dim is the number of points per axis.
func (g *GridMaker[T]) Dim() int { return g.geom.Dim }

// Channels is the number of grid channels.
func (g *GridMaker[T]) Channels() int { return g.channels }

// Layout returns the buffer layout the engine writes.
func (g *GridMaker[T]) Layout() DenseLayout { return g.layout }

// GridLen is the required buffer length.
func (g *GridMaker[T]) GridLen() int { return g.layout.Len() }

// Kernel returns the density kernel.
func (g *GridMaker[T]) Kernel() Kernel { return g.kernel }

// SetCenter moves the grid. It must not run concurrently with other calls
// on the same engine.
func (g *GridMaker[T]) SetCenter(x, y, z float64) {
	g.geom.setCenter([3]float64{x, y, z})
}

// SetAtoms zeroes grid and writes the density of every atom whose channel is
// not negative. Continuous grids sum overlapping atoms; binary grids set 1.
func (g *GridMaker[T]) SetAtoms(atoms []AtomInfo, channels []int, q quat.Number, grid []T) error {
	if err := checkLen("grid", len(grid), g.layout.Len()); err != nil {
		return err
	}
	ps, err := g.place(atoms, channels, q)
	if err != nil {
		return err
	}
	Zero(grid)
	scatter(&g.core, ps, grid, g.layout)
	return nil
}

// SetAtomGradients backpropagates diff, the loss gradient with respect to
// each grid point, onto atom positions in the rotated frame.
func (g *GridMaker[T]) SetAtomGradients(atoms []AtomInfo, channels []int, q quat.Number, diff []T, grads []Vec3) error {
	if err := checkLen("grid gradient", len(diff), g.layout.Len()); err != nil {
		return err
	}
	if err := checkLen("atom gradients", len(grads), len(atoms)); err != nil {
		return err
	}
	ps, err := g.place(atoms, channels, q)
	if err != nil {
		return err
	}
	zeroGradients(grads)
	gradients(&g.core, ps, diff, g.layout, grads)
	return nil
}

// SetAtomRelevance distributes the attribution grid diff over atoms in
// proportion to each atom's share of density. The scalar relevance of each
// atom is stored in Vec3.X; Y and Z are zero.
func (g *GridMaker[T]) SetAtomRelevance(atoms []AtomInfo, channels []int, q quat.Number, density, diff []T, grads []Vec3) error {
	if err := checkLen("density grid", len(density), g.layout.Len()); err != nil {
		return err
	}
	if err := checkLen("attribution grid", len(diff), g.layout.Len()); err != nil {
		return err
	}
	if err := checkLen("atom relevance", len(grads), len(atoms)); err != nil {
		return err
	}
	ps, err := g.place(atoms, channels, q)
	if err != nil {
		return err
	}
	zeroGradients(grads)
	relevance(&g.core, ps, density, diff, g.layout, grads)
	return nil
}
