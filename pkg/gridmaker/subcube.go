package gridmaker

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Mode is the addressing scheme of a SubcubeGridMaker, fixed at
// construction.
type Mode int

const (
	// ModeSubcube tiles the grid into subcubes accumulated over a batch.
	ModeSubcube Mode = iota
	// ModeStrided keeps dense addressing; consumers cut overlapping
	// subcubes at Stride-point offsets themselves.
	ModeStrided
)

func (m Mode) String() string {
	switch m {
	case ModeSubcube:
		return "subcube"
	case ModeStrided:
		return "strided"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// SubcubeGridMaker fills grids partitioned into GridsPerDim^3 subcubes of
// SubDimPoints^3 points, with a batch dimension between the subcube index and
// the channel.
//
// The global extent is enlarged so that subcubes separated by one
// resolution step cover at least the requested dimension.
type SubcubeGridMaker[T Float] struct {
	core
	cfg          Config
	mode         Mode
	stride       int
	subDim       float64
	subDimPoints int
	gridsPerDim  int
	batchSize    int
}

// NewSubcube builds a tiled engine. A non-zero sub.Stride selects
// ModeStrided.
func NewSubcube[T Float](cfg Config, sub SubcubeConfig, channels int, opts Options) (*SubcubeGridMaker[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := sub.validate(cfg.Resolution); err != nil {
		return nil, err
	}
	res := float64(cfg.Resolution)
	sdip := int(math.Round(float64(sub.SubgridDimension)/res)) + 1
	sd := res * float64(sdip-1)
	gpd := max(int(math.Round((float64(cfg.Dimension)-sd)/(sd+res)))+1, 1)
	dimension := (sd+res)*float64(gpd-1) + sd

	mode := ModeSubcube
	if sub.Stride > 0 {
		mode = ModeStrided
		dimPoints := int(math.Round(dimension/res)) + 1
		gpd = (dimPoints-sdip)/sub.Stride + 1
	}

	c, err := newCore(cfg, res, dimension, channels, opts)
	if err != nil {
		return nil, err
	}
	effective := cfg
	effective.Dimension = float32(dimension)
	return &SubcubeGridMaker[T]{
		core:         c,
		cfg:          effective,
		mode:         mode,
		stride:       sub.Stride,
		subDim:       sd,
		subDimPoints: sdip,
		gridsPerDim:  gpd,
		batchSize:    sub.BatchSize,
	}, nil
}

// Mode reports the addressing scheme.
func (s *SubcubeGridMaker[T]) Mode() Mode { return s.mode }

// Config returns the effective configuration: Dimension is the tiled extent.
func (s *SubcubeGridMaker[T]) Config() Config {
	cfg := s.cfg
	cfg.Center = s.geom.Center
	return cfg
}

func (s *SubcubeGridMaker[T]) Geometry() Geometry { return s.geom }
func (s *SubcubeGridMaker[T]) Dim() int           { return s.geom.Dim }
func (s *SubcubeGridMaker[T]) Channels() int      { return s.channels }
func (s *SubcubeGridMaker[T]) SubDimPoints() int  { return s.subDimPoints }
func (s *SubcubeGridMaker[T]) SubDimension() float64 {
	return s.subDim
}
func (s *SubcubeGridMaker[T]) GridsPerDim() int { return s.gridsPerDim }
func (s *SubcubeGridMaker[T]) BatchSize() int   { return s.batchSize }
func (s *SubcubeGridMaker[T]) Stride() int      { return s.stride }

// NewCursor returns a cursor at the start of a batch for this engine.
func (s *SubcubeGridMaker[T]) NewCursor() BatchCursor {
	return NewBatchCursor(s.batchSize)
}

// SetCenter moves the grid. It must not run concurrently with other calls
// on the same engine.
func (s *SubcubeGridMaker[T]) SetCenter(x, y, z float64) {
	s.geom.setCenter([3]float64{x, y, z})
}

// DenseLayout is the layout used in ModeStrided.
func (s *SubcubeGridMaker[T]) DenseLayout() DenseLayout {
	return DenseLayout{Channels: s.channels, Dim: s.geom.Dim}
}

// SubcubeLayout is the layout used in ModeSubcube for the cursor's slot.
func (s *SubcubeGridMaker[T]) SubcubeLayout(cur BatchCursor) SubcubeLayout {
	return SubcubeLayout{
		Channels:    s.channels,
		SubDim:      s.subDimPoints,
		GridsPerDim: s.gridsPerDim,
		BatchSize:   s.batchSize,
		Slot:        cur.Index(),
	}
}

// GridLen is the required buffer length for the engine's mode.
func (s *SubcubeGridMaker[T]) GridLen() int {
	if s.mode == ModeStrided {
		return s.DenseLayout().Len()
	}
	return s.SubcubeLayout(BatchCursor{}).Len()
}

// Locate maps a global grid index to its subcube and local index.
func (s *SubcubeGridMaker[T]) Locate(i, j, k int) (sub, li, lj, lk int) {
	return s.SubcubeLayout(BatchCursor{}).Locate(i, j, k)
}

// Global is the inverse of Locate.
func (s *SubcubeGridMaker[T]) Global(sub, li, lj, lk int) (i, j, k int) {
	return s.SubcubeLayout(BatchCursor{}).Global(sub, li, lj, lk)
}

func (s *SubcubeGridMaker[T]) checkCursor(cur BatchCursor) error {
	if cur.Size() != s.batchSize || cur.Index() >= s.batchSize {
		return fmt.Errorf("%w: cursor at %d/%d, engine batch size %d", ErrShapeMismatch, cur.Index(), cur.Size(), s.batchSize)
	}
	return nil
}

// SetAtoms writes atoms into the cursor's batch slot and returns the cursor
// for the next call. The whole buffer is cleared when the cursor starts a
// batch; later slots accumulate into the existing buffer. In ModeStrided the
// buffer is dense, cleared on every call, and the cursor is returned as is.
func (s *SubcubeGridMaker[T]) SetAtoms(atoms []AtomInfo, channels []int, q quat.Number, grid []T, cur BatchCursor) (BatchCursor, error) {
	if err := s.checkCursor(cur); err != nil {
		return cur, err
	}
	if err := checkLen("grid", len(grid), s.GridLen()); err != nil {
		return cur, err
	}
	ps, err := s.place(atoms, channels, q)
	if err != nil {
		return cur, err
	}
	if s.mode == ModeStrided {
		Zero(grid)
		scatter(&s.core, ps, grid, s.DenseLayout())
		return cur, nil
	}
	if cur.StartsBatch() {
		Zero(grid)
	}
	scatter(&s.core, ps, grid, s.SubcubeLayout(cur))
	return cur.Next(), nil
}

// SetAtomGradients backpropagates diff from the cursor's batch slot.
func (s *SubcubeGridMaker[T]) SetAtomGradients(atoms []AtomInfo, channels []int, q quat.Number, diff []T, cur BatchCursor, grads []Vec3) error {
	if err := s.checkCursor(cur); err != nil {
		return err
	}
	if err := checkLen("grid gradient", len(diff), s.GridLen()); err != nil {
		return err
	}
	if err := checkLen("atom gradients", len(grads), len(atoms)); err != nil {
		return err
	}
	ps, err := s.place(atoms, channels, q)
	if err != nil {
		return err
	}
	zeroGradients(grads)
	if s.mode == ModeStrided {
		gradients(&s.core, ps, diff, s.DenseLayout(), grads)
	} else {
		gradients(&s.core, ps, diff, s.SubcubeLayout(cur), grads)
	}
	return nil
}

// SetAtomRelevance distributes attribution from the cursor's batch slot.
// Only Vec3.X is written.
func (s *SubcubeGridMaker[T]) SetAtomRelevance(atoms []AtomInfo, channels []int, q quat.Number, density, diff []T, cur BatchCursor, grads []Vec3) error {
	if err := s.checkCursor(cur); err != nil {
		return err
	}
	if err := checkLen("density grid", len(density), s.GridLen()); err != nil {
		return err
	}
	if err := checkLen("attribution grid", len(diff), s.GridLen()); err != nil {
		return err
	}
	if err := checkLen("atom relevance", len(grads), len(atoms)); err != nil {
		return err
	}
	ps, err := s.place(atoms, channels, q)
	if err != nil {
		return err
	}
	zeroGradients(grads)
	if s.mode == ModeStrided {
		relevance(&s.core, ps, density, diff, s.DenseLayout(), grads)
	} else {
		relevance(&s.core, ps, density, diff, s.SubcubeLayout(cur), grads)
	}
	return nil
}
