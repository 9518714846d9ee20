package gridmaker

import (
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/num/quat"
)

// placed is an atom after masking, rotation and range pruning.
type placed struct {
	idx     int
	channel int
	c       vec
	radius  float64
	b       box
}

// core is the per-atom machinery shared by every engine and layout.
type core struct {
	geom     Geometry
	kernel   Kernel
	spherize bool
	channels int
	workers  int
}

func newCore(cfg Config, resolution, dimension float64, channels int, opts Options) (core, error) {
	if channels < 1 {
		return core{}, configError("channel count must be positive, got %d", channels)
	}
	return core{
		geom: newGeometry(resolution, dimension, cfg.Center),
		kernel: Kernel{
			RadiusMultiple: cfg.radiusMultiple(),
			Binary:         cfg.Binary,
		},
		spherize: cfg.Spherize,
		channels: channels,
		workers:  opts.workers(),
	}, nil
}

// place validates the atom arrays and resolves every mapped atom to its
// gridding coordinates and index box. Masked atoms and atoms whose box
// misses the grid are dropped.
func (c *core) place(atoms []AtomInfo, channels []int, q quat.Number) ([]placed, error) {
	if err := checkLen("channel array", len(channels), len(atoms)); err != nil {
		return nil, err
	}
	t := newTransform(c.geom, c.spherize, q)
	out := make([]placed, 0, len(atoms))
	for i, a := range atoms {
		ch := channels[i]
		if ch < 0 {
			continue
		}
		if ch >= c.channels {
			return nil, fmt.Errorf("%w: atom %d has channel %d, grid has %d channels", ErrShapeMismatch, i, ch, c.channels)
		}
		if err := checkAtom(i, a); err != nil {
			return nil, err
		}
		pos, ok := t.apply(a)
		if !ok {
			continue
		}
		r := float64(a.Radius)
		b := c.geom.box(pos, c.kernel.Cutoff(r))
		if b.empty() {
			continue
		}
		out = append(out, placed{idx: i, channel: ch, c: pos, radius: r, b: b})
	}
	return out, nil
}

func checkAtom(i int, a AtomInfo) error {
	for _, v := range [...]float32{a.X, a.Y, a.Z} {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &GeometryError{Atom: i, Reason: "position is not finite"}
		}
	}
	r := float64(a.Radius)
	if !(r > 0) || math.IsInf(r, 0) {
		return &GeometryError{Atom: i, Reason: fmt.Sprintf("radius %g is not a positive finite value", a.Radius)}
	}
	return nil
}

// parallel runs fn over [0, n) split into at most workers contiguous chunks.
func parallel(n, workers int, fn func(lo, hi int)) {
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Go(func() { fn(lo, hi) })
	}
	wg.Wait()
}

// scatter writes every placed atom into grid. Workers own disjoint slabs of
// the x axis and visit atoms in input order, so each point sees the same
// sequence of additions as the single-threaded path.
func scatter[T Float, L Layout](c *core, ps []placed, grid []T, l L) {
	parallel(c.geom.Dim, c.workers, func(slabLo, slabHi int) {
		for _, p := range ps {
			scatterAtom(c, p, grid, l, max(p.b.lo[0], slabLo), min(p.b.hi[0], slabHi))
		}
	})
}

func scatterAtom[T Float, L Layout](c *core, p placed, grid []T, l L, ilo, ihi int) {
	g := &c.geom
	for i := ilo; i < ihi; i++ {
		for j := p.b.lo[1]; j < p.b.hi[1]; j++ {
			for k := p.b.lo[2]; k < p.b.hi[2]; k++ {
				x, y, z := g.Point(i, j, k)
				val := c.kernel.Density(distance(p.c, vec{x, y, z}), p.radius)
				off := l.Offset(p.channel, i, j, k)
				if c.kernel.Binary {
					if val != 0 {
						grid[off] = 1
					}
				} else {
					grid[off] += T(val)
				}
			}
		}
	}
}

// gradients accumulates d(loss)/d(atom position) for every placed atom.
func gradients[T Float, L Layout](c *core, ps []placed, diff []T, l L, out []Vec3) {
	parallel(len(ps), c.workers, func(lo, hi int) {
		for _, p := range ps[lo:hi] {
			out[p.idx] = atomGradient(c, p, diff, l)
		}
	})
}

func atomGradient[T Float, L Layout](c *core, p placed, diff []T, l L) Vec3 {
	g := &c.geom
	var gx, gy, gz float64
	for i := p.b.lo[0]; i < p.b.hi[0]; i++ {
		for j := p.b.lo[1]; j < p.b.hi[1]; j++ {
			for k := p.b.lo[2]; k < p.b.hi[2]; k++ {
				x, y, z := g.Point(i, j, k)
				dx, dy, dz := x-p.c.x, y-p.c.y, z-p.c.z
				dist := math.Sqrt(dx*dx + dy*dy + dz*dz)
				// The Gaussian is flat at its centre: the limit contribution is zero.
				if dist == 0 {
					continue
				}
				d := c.kernel.Derivative(dist, p.radius)
				if d == 0 {
					continue
				}
				// Moving the atom is the negative of moving the grid point.
				s := -d * float64(diff[l.Offset(p.channel, i, j, k)]) / dist
				gx += s * dx
				gy += s * dy
				gz += s * dz
			}
		}
	}
	return Vec3{X: float32(gx), Y: float32(gy), Z: float32(gz)}
}

// relevance apportions the attribution grid diff to atoms in proportion to
// their share of density. Only Vec3.X is written.
func relevance[T Float, L Layout](c *core, ps []placed, density, diff []T, l L, out []Vec3) {
	parallel(len(ps), c.workers, func(lo, hi int) {
		for _, p := range ps[lo:hi] {
			out[p.idx] = Vec3{X: float32(atomRelevance(c, p, density, diff, l))}
		}
	})
}

func atomRelevance[T Float, L Layout](c *core, p placed, density, diff []T, l L) float64 {
	g := &c.geom
	cutoff := c.kernel.Cutoff(p.radius)
	var rel float64
	for i := p.b.lo[0]; i < p.b.hi[0]; i++ {
		for j := p.b.lo[1]; j < p.b.hi[1]; j++ {
			for k := p.b.lo[2]; k < p.b.hi[2]; k++ {
				x, y, z := g.Point(i, j, k)
				dist := distance(p.c, vec{x, y, z})
				if dist >= cutoff {
					continue
				}
				off := l.Offset(p.channel, i, j, k)
				attr := float64(diff[off])
				if dens := float64(density[off]); dens > 0 {
					rel += attr * c.kernel.Density(dist, p.radius) / dens
				} else {
					rel += attr
				}
			}
		}
	}
	return rel
}
