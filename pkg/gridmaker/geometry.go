package gridmaker

import "math"

// Geometry is the derived, immutable shape of a grid: points per axis and
// the world-space span of each axis.
type Geometry struct {
	Resolution float64
	Dimension  float64
	Dim        int
	Center     [3]float64
	// Bounds[axis] is the [min, max] world coordinate of that axis.
	Bounds [3][2]float64
	// SphereRadiusSq is (Dimension/2)^2, the spherical mask radius squared.
	SphereRadiusSq float64
}

func newGeometry(resolution, dimension float64, center [3]float64) Geometry {
	g := Geometry{
		Resolution: resolution,
		Dimension:  dimension,
		Dim:        int(math.Round(dimension/resolution)) + 1,
	}
	half := dimension / 2
	g.SphereRadiusSq = half * half
	g.setCenter(center)
	return g
}

func (g *Geometry) setCenter(center [3]float64) {
	half := g.Dimension / 2
	g.Center = center
	for axis, c := range center {
		g.Bounds[axis] = [2]float64{c - half, c + half}
	}
}

// Points returns the number of points in one channel.
func (g Geometry) Points() int {
	return g.Dim * g.Dim * g.Dim
}

// Point converts grid indices to world coordinates.
func (g Geometry) Point(i, j, k int) (x, y, z float64) {
	x = g.Bounds[0][0] + float64(i)*g.Resolution
	y = g.Bounds[1][0] + float64(j)*g.Resolution
	z = g.Bounds[2][0] + float64(k)*g.Resolution
	return x, y, z
}

// Range returns the half-open index interval [lo, hi) of points on axis
// that can lie within cutoff of coord. The interval always lies inside
// [0, Dim] and is empty when the atom's reach misses the grid.
func (g Geometry) Range(axis int, coord, cutoff float64) (lo, hi int) {
	lower := g.Bounds[axis][0]
	if low := coord - cutoff - lower; low > 0 {
		lo = g.clampIndex(math.Floor(low / g.Resolution))
	}
	if high := coord + cutoff - lower; high > 0 {
		hi = g.clampIndex(math.Ceil(high / g.Resolution))
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

func (g Geometry) clampIndex(v float64) int {
	if v >= float64(g.Dim) {
		return g.Dim
	}
	return int(v)
}

type box struct {
	lo, hi [3]int
}

func (b box) empty() bool {
	return b.lo[0] >= b.hi[0] || b.lo[1] >= b.hi[1] || b.lo[2] >= b.hi[2]
}

func (g Geometry) box(c vec, cutoff float64) box {
	var b box
	b.lo[0], b.hi[0] = g.Range(0, c.x, cutoff)
	b.lo[1], b.hi[1] = g.Range(1, c.y, cutoff)
	b.lo[2], b.hi[2] = g.Range(2, c.z, cutoff)
	return b
}
