package gridmaker

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/num/quat"
)

// NoRotation disables rotation. Any quaternion with a zero real part is
// treated the same way.
var NoRotation = quat.Number{}

// NewRotation returns the unit quaternion w + xi + yj + zk normalised to
// length one.
func NewRotation(w, x, y, z float64) quat.Number {
	q := quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
	n := quat.Abs(q)
	if n == 0 {
		return NoRotation
	}
	return quat.Scale(1/n, q)
}

// RandomRotation draws a uniformly distributed rotation. The result never
// has a zero real part, so it always takes effect.
func RandomRotation(rng *rand.Rand) quat.Number {
	for {
		u1, u2, u3 := rng.Float64(), rng.Float64(), rng.Float64()
		a, b := math.Sqrt(1-u1), math.Sqrt(u1)
		q := quat.Number{
			Real: a * math.Sin(2*math.Pi*u2),
			Imag: a * math.Cos(2*math.Pi*u2),
			Jmag: b * math.Sin(2*math.Pi*u3),
			Kmag: b * math.Cos(2*math.Pi*u3),
		}
		if q.Real != 0 {
			return q
		}
	}
}

// RotatePoint rotates (x, y, z) about center by q, computing
// q * p * conj(q) / |q|^2. A zero real part returns the point unchanged.
func RotatePoint(q quat.Number, center [3]float64, x, y, z float64) (float64, float64, float64) {
	if q.Real == 0 {
		return x, y, z
	}
	p := quat.Number{Imag: x - center[0], Jmag: y - center[1], Kmag: z - center[2]}
	n := quat.Abs(q)
	inv := quat.Scale(1/(n*n), quat.Conj(q))
	r := quat.Mul(quat.Mul(q, p), inv)
	return r.Imag + center[0], r.Jmag + center[1], r.Kmag + center[2]
}

// transform maps raw atom positions to the coordinates used for gridding.
type transform struct {
	q        quat.Number
	center   [3]float64
	spherize bool
	rsq      float64
}

func newTransform(g Geometry, spherize bool, q quat.Number) transform {
	return transform{
		q:        q,
		center:   g.Center,
		spherize: spherize,
		rsq:      g.SphereRadiusSq,
	}
}

// apply returns the gridding coordinates of a, or false when the spherical
// mask rejects it. The mask is tested on the unrotated position.
func (t transform) apply(a AtomInfo) (vec, bool) {
	p := a.pos()
	if t.spherize {
		dx, dy, dz := p.x-t.center[0], p.y-t.center[1], p.z-t.center[2]
		if dx*dx+dy*dy+dz*dz > t.rsq {
			return vec{}, false
		}
	}
	x, y, z := RotatePoint(t.q, t.center, p.x, p.y, p.z)
	return vec{x, y, z}, true
}
