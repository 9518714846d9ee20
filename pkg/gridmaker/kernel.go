package gridmaker

import "math"

// shoulderMultiple is where the quadratic shoulder reaches zero with zero
// slope: three half-radii from the atom centre.
const shoulderMultiple = 1.5

// e^-2, the Gaussian value at the atom radius.
var expNeg2 = math.Exp(-2)

// Kernel evaluates the density an atom contributes at a given distance.
//
// Inside the radius the density is a Gaussian with two standard deviations at
// the radius. Between the radius and the cutoff it is the quadratic
// e^-2 * (d/h - 3)^2 with h = radius/2, which matches the Gaussian's value and
// slope at the radius and reaches zero with zero slope at 1.5 radii. The
// quadratic is never evaluated past 1.5 radii, where it would rise again, so
// a multiple above 1.5 only widens the search range. A multiple below 1.5
// truncates the kernel at radius*multiple.
type Kernel struct {
	RadiusMultiple float64
	Binary         bool
}

// Cutoff returns the distance beyond which an atom of the given radius
// contributes nothing.
func (k Kernel) Cutoff(radius float64) float64 {
	return radius * k.RadiusMultiple
}

// Density returns the occupancy at distance dist from an atom centre.
func (k Kernel) Density(dist, radius float64) float64 {
	if k.Binary {
		if dist < radius && dist < k.Cutoff(radius) {
			return 1
		}
		return 0
	}
	if dist >= k.Cutoff(radius) || dist >= shoulderMultiple*radius {
		return 0
	}
	h := 0.5 * radius
	if dist <= radius {
		return math.Exp(-dist * dist / (2 * h * h))
	}
	return dist*dist*expNeg2/(h*h) - 6*expNeg2*dist/h + 9*expNeg2
}

// Derivative returns d(Density)/d(dist) for the continuous kernel. The binary
// kernel is differentiated as if it were continuous so the gradient pass has
// a usable signal.
func (k Kernel) Derivative(dist, radius float64) float64 {
	if dist >= k.Cutoff(radius) || dist >= shoulderMultiple*radius {
		return 0
	}
	h := 0.5 * radius
	if dist <= radius {
		return -dist / (h * h) * math.Exp(-dist*dist/(2*h*h))
	}
	return 2*dist*expNeg2/(h*h) - 6*expNeg2/h
}

// CalcPoint returns the density of atom a at the world-space point p.
func (k Kernel) CalcPoint(a AtomInfo, x, y, z float64) float64 {
	c := a.pos()
	return k.Density(distance(c, vec{x, y, z}), float64(a.Radius))
}

func distance(a, b vec) float64 {
	dx, dy, dz := b.x-a.x, b.y-a.y, b.z-a.z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
