package gridmaker

import (
	"math"
	"testing"
)

func TestKernelContinuityAtRadius(t *testing.T) {
	t.Parallel()

	const eps = 1e-7
	for _, radius := range []float64{0.5, 1.0, 1.8, 2.2} {
		for _, mult := range []float64{1.5, 2.0, 3.0} {
			k := Kernel{RadiusMultiple: mult}
			lo, hi := k.Density(radius-eps, radius), k.Density(radius+eps, radius)
			if math.Abs(lo-hi) > 1e-6 {
				t.Fatalf("r=%g m=%g: density jumps at radius: %g vs %g", radius, mult, lo, hi)
			}
			if got := k.Density(radius, radius); math.Abs(got-expNeg2) > 1e-12 {
				t.Fatalf("r=%g m=%g: density at radius %g, want e^-2", radius, mult, got)
			}
			dlo, dhi := k.Derivative(radius-eps, radius), k.Derivative(radius+eps, radius)
			if math.Abs(dlo-dhi) > 1e-5 {
				t.Fatalf("r=%g m=%g: derivative jumps at radius: %g vs %g", radius, mult, dlo, dhi)
			}
			cut := radius * mult
			if v := k.Density(cut, radius); v != 0 {
				t.Fatalf("r=%g m=%g: density at cutoff %g", radius, mult, v)
			}
			if d := k.Derivative(cut, radius); d != 0 {
				t.Fatalf("r=%g m=%g: derivative at cutoff %g", radius, mult, d)
			}
			// Approaching the end of the shoulder from inside.
			end := shoulderMultiple * radius
			if v := k.Density(end-eps, radius); v > 1e-9 {
				t.Fatalf("r=%g m=%g: density just inside shoulder end %g", radius, mult, v)
			}
			if d := k.Derivative(end-eps, radius); math.Abs(d) > 1e-6 {
				t.Fatalf("r=%g m=%g: derivative just inside shoulder end %g", radius, mult, d)
			}
		}
	}
}

func TestKernelDerivativeMatchesFiniteDifference(t *testing.T) {
	t.Parallel()

	k := Kernel{RadiusMultiple: DefaultRadiusMultiple}
	const h = 1e-6
	for _, tc := range []struct {
		name         string
		dist, radius float64
	}{
		{"gaussian", 0.4, 1.0},
		{"gaussian near radius", 1.7, 1.8},
		{"shoulder", 1.2, 1.0},
		{"shoulder near end", 2.9, 2.0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			want := (k.Density(tc.dist+h, tc.radius) - k.Density(tc.dist-h, tc.radius)) / (2 * h)
			got := k.Derivative(tc.dist, tc.radius)
			if math.Abs(got-want) > 1e-5 {
				t.Fatalf("derivative %g, finite difference %g", got, want)
			}
		})
	}
}

func TestKernelPeakAndRange(t *testing.T) {
	t.Parallel()

	k := Kernel{RadiusMultiple: DefaultRadiusMultiple}
	if v := k.Density(0, 1); v != 1 {
		t.Fatalf("peak density %g, want 1", v)
	}
	for d := 0.0; d < 2; d += 0.01 {
		v := k.Density(d, 1)
		if v < 0 || v > 1 {
			t.Fatalf("density %g at %g outside [0,1]", v, d)
		}
	}
}

func TestKernelBinary(t *testing.T) {
	t.Parallel()

	k := Kernel{RadiusMultiple: DefaultRadiusMultiple, Binary: true}
	if v := k.Density(0.99, 1); v != 1 {
		t.Fatalf("inside radius: %g", v)
	}
	if v := k.Density(1, 1); v != 0 {
		t.Fatalf("at radius: %g", v)
	}
	if v := k.Density(1.2, 1); v != 0 {
		t.Fatalf("outside radius: %g", v)
	}
}

func TestCalcPoint(t *testing.T) {
	t.Parallel()

	k := Kernel{RadiusMultiple: DefaultRadiusMultiple}
	a := AtomInfo{X: 1, Y: 2, Z: 3, Radius: 2}
	got := k.CalcPoint(a, 1, 2, 5)
	if math.Abs(got-expNeg2) > 1e-12 {
		t.Fatalf("CalcPoint at radius %g, want %g", got, expNeg2)
	}
}

func TestKernelMultiples(t *testing.T) {
	t.Parallel()

	shoulder := func(d float64) float64 { return expNeg2 * (2*d - 3) * (2*d - 3) }
	for _, tc := range []struct {
		name       string
		mult, dist float64
		want       float64
	}{
		{"short multiple inside radius", 1.0, 0.5, math.Exp(-0.5)},
		{"short multiple at cutoff", 1.0, 1.0, 0},
		{"short multiple shoulder", 1.2, 1.1, shoulder(1.1)},
		{"short multiple past cutoff", 1.2, 1.25, 0},
		{"long multiple shoulder", 2.0, 1.4, shoulder(1.4)},
		// The quadratic rises again past 1.5 radii; it is not evaluated there.
		{"long multiple past shoulder", 2.0, 1.75, 0},
	} {
		t.Run(tc.name, func(t *testing.T) {
			k := Kernel{RadiusMultiple: tc.mult}
			if got := k.Density(tc.dist, 1); math.Abs(got-tc.want) > 1e-12 {
				t.Fatalf("Density(%g) = %g, want %g", tc.dist, got, tc.want)
			}
		})
	}

	k := Kernel{RadiusMultiple: 0.6, Binary: true}
	if k.Density(0.5, 1) != 1 || k.Density(0.6, 1) != 0 {
		t.Fatalf("binary kernel not truncated at 0.6 radii: %g %g", k.Density(0.5, 1), k.Density(0.6, 1))
	}
}
