package gridmaker

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/num/quat"
)

func randomAtoms(rng *rand.Rand, n int, center [3]float64, spread float64, channels int) ([]AtomInfo, []int) {
	atoms := make([]AtomInfo, n)
	chans := make([]int, n)
	for i := range atoms {
		atoms[i] = AtomInfo{
			X:      float32(center[0] + (rng.Float64()*2-1)*spread),
			Y:      float32(center[1] + (rng.Float64()*2-1)*spread),
			Z:      float32(center[2] + (rng.Float64()*2-1)*spread),
			Radius: float32(1 + rng.Float64()),
		}
		chans[i] = rng.IntN(channels+1) - 1
	}
	return atoms, chans
}

func smallConfig() Config {
	return Config{Resolution: 0.5, Dimension: 4, RadiusMultiple: 1.5}
}

func newDense[T Float](t *testing.T, cfg Config, channels int, opts Options) *GridMaker[T] {
	t.Helper()
	gm, err := New[T](cfg, channels, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return gm
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		cfg      Config
		channels int
	}{
		"zero resolution":     {Config{Dimension: 4}, 1},
		"negative dimension":  {Config{Resolution: 0.5, Dimension: -1}, 1},
		"negative multiple":   {Config{Resolution: 0.5, Dimension: 4, RadiusMultiple: -1}, 1},
		"infinite multiple":   {Config{Resolution: 0.5, Dimension: 4, RadiusMultiple: float32(math.Inf(1))}, 1},
		"nan centre":          {Config{Resolution: 0.5, Dimension: 4, Center: [3]float64{math.NaN(), 0, 0}}, 1},
		"no channels":         {smallConfig(), 0},
		"infinite resolution": {Config{Resolution: float32(math.Inf(1)), Dimension: 4}, 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := New[float32](tc.cfg, tc.channels, Options{}); !errors.Is(err, ErrConfig) {
				t.Fatalf("New error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestNewAcceptsShortMultiples(t *testing.T) {
	t.Parallel()

	for _, cfg := range []Config{
		{Resolution: 0.5, Dimension: 4, RadiusMultiple: 1.0},
		{Resolution: 0.5, Dimension: 4, RadiusMultiple: 1.2},
		{Resolution: 0.5, Dimension: 4, RadiusMultiple: 0.5, Binary: true},
	} {
		if _, err := New[float32](cfg, 1, Options{}); err != nil {
			t.Fatalf("New(%+v): %v", cfg, err)
		}
	}
}

func TestShortMultipleTruncatesDensity(t *testing.T) {
	t.Parallel()

	cfg := smallConfig()
	cfg.RadiusMultiple = 1
	gm := newDense[float32](t, cfg, 1, Options{})
	grid := make([]float32, gm.GridLen())
	if err := gm.SetAtoms([]AtomInfo{{Radius: 1}}, []int{0}, NoRotation, grid); err != nil {
		t.Fatalf("SetAtoms: %v", err)
	}

	l := gm.Layout()
	if got := grid[l.Offset(0, 5, 4, 4)]; math.Abs(float64(got)-math.Exp(-0.5)) > 1e-6 {
		t.Fatalf("density at 0.5A = %g, want %g", got, math.Exp(-0.5))
	}
	// 1.0A is the cutoff for multiple 1.
	if got := grid[l.Offset(0, 6, 4, 4)]; got != 0 {
		t.Fatalf("density at cutoff = %g, want 0", got)
	}

	cfg.Binary = true
	cfg.RadiusMultiple = 0.6
	bin := newDense[float32](t, cfg, 1, Options{})
	if err := bin.SetAtoms([]AtomInfo{{Radius: 1}}, []int{0}, NoRotation, grid); err != nil {
		t.Fatalf("SetAtoms binary: %v", err)
	}
	if grid[l.Offset(0, 5, 4, 4)] != 1 || grid[l.Offset(0, 6, 4, 4)] != 0 {
		t.Fatalf("binary occupancy not truncated at 0.6A: %g %g", grid[l.Offset(0, 5, 4, 4)], grid[l.Offset(0, 6, 4, 4)])
	}
}

func TestSingleAtomProfile(t *testing.T) {
	t.Parallel()

	gm := newDense[float32](t, smallConfig(), 1, Options{})
	if gm.Dim() != 9 {
		t.Fatalf("dim = %d, want 9", gm.Dim())
	}

	grid := make([]float32, gm.GridLen())
	if err := gm.SetAtoms([]AtomInfo{{Radius: 1}}, []int{0}, NoRotation, grid); err != nil {
		t.Fatalf("SetAtoms: %v", err)
	}

	l := gm.Layout()
	if got := grid[l.Offset(0, 4, 4, 4)]; math.Abs(float64(got)-1) > 1e-6 {
		t.Fatalf("centre density = %g, want 1", got)
	}
	if got := grid[l.Offset(0, 6, 4, 4)]; math.Abs(float64(got)-math.Exp(-2)) > 1e-6 {
		t.Fatalf("density at radius = %g, want e^-2", got)
	}
	if got := grid[l.Offset(0, 7, 4, 4)]; got != 0 {
		t.Fatalf("density at 1.5 radii = %g, want 0", got)
	}
	if got := grid[l.Offset(0, 0, 0, 0)]; got != 0 {
		t.Fatalf("corner density = %g, want 0", got)
	}

	for i := 0; i < gm.Dim(); i++ {
		for j := 0; j < gm.Dim(); j++ {
			for k := 0; k < gm.Dim(); k++ {
				v := grid[l.Offset(0, i, j, k)]
				if v < 0 || v > 1 {
					t.Fatalf("point (%d,%d,%d) = %g outside [0,1]", i, j, k, v)
				}
				x, y, z := gm.Geometry().Point(i, j, k)
				if math.Sqrt(x*x+y*y+z*z) >= 1.5 && v != 0 {
					t.Fatalf("point (%d,%d,%d) beyond cutoff = %g", i, j, k, v)
				}
			}
		}
	}
}

func TestBinaryOccupancy(t *testing.T) {
	t.Parallel()

	cfg := smallConfig()
	cfg.Binary = true
	gm := newDense[float32](t, cfg, 2, Options{})

	grid := make([]float32, gm.GridLen())
	atoms := []AtomInfo{{Radius: 1}, {X: 0.2, Radius: 1}, {X: -1, Y: 1, Radius: 0.8}}
	if err := gm.SetAtoms(atoms, []int{0, 0, 1}, NoRotation, grid); err != nil {
		t.Fatalf("SetAtoms: %v", err)
	}

	ones := 0
	for _, v := range grid {
		if v != 0 && v != 1 {
			t.Fatalf("binary grid holds %g", v)
		}
		if v == 1 {
			ones++
		}
	}
	if ones == 0 {
		t.Fatal("binary grid is empty")
	}
	if got := grid[gm.Layout().Offset(0, 4, 4, 4)]; got != 1 {
		t.Fatalf("overlapping atoms gave %g, want 1", got)
	}
}

func TestUnmappedAtomsAreIgnored(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	gm := newDense[float32](t, DefaultConfig(), 3, Options{})

	atoms, chans := randomAtoms(rng, 40, [3]float64{}, 10, 3)
	var keptAtoms []AtomInfo
	var keptChans []int
	for i, ch := range chans {
		if ch >= 0 {
			keptAtoms = append(keptAtoms, atoms[i])
			keptChans = append(keptChans, ch)
		}
	}
	// Unmapped atoms are not validated either.
	atoms = append(atoms, AtomInfo{X: float32(math.NaN()), Radius: 0})
	chans = append(chans, Unmapped)

	want := make([]float32, gm.GridLen())
	got := make([]float32, gm.GridLen())
	if err := gm.SetAtoms(keptAtoms, keptChans, NoRotation, want); err != nil {
		t.Fatalf("SetAtoms mapped: %v", err)
	}
	if err := gm.SetAtoms(atoms, chans, NoRotation, got); err != nil {
		t.Fatalf("SetAtoms all: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unmapped atoms changed the grid (-want +got):\n%s", diff)
	}
}

func TestSetAtomsOverwrites(t *testing.T) {
	t.Parallel()

	gm := newDense[float32](t, smallConfig(), 1, Options{})
	grid := make([]float32, gm.GridLen())
	for i := range grid {
		grid[i] = 7
	}
	if err := gm.SetAtoms(nil, nil, NoRotation, grid); err != nil {
		t.Fatalf("SetAtoms: %v", err)
	}
	for i, v := range grid {
		if v != 0 {
			t.Fatalf("grid[%d] = %g after empty SetAtoms", i, v)
		}
	}
}

func TestSpherizeMasksAtoms(t *testing.T) {
	t.Parallel()

	cfg := smallConfig()
	atoms := []AtomInfo{{X: 2.5, Radius: 1}}

	plain := newDense[float32](t, cfg, 1, Options{})
	grid := make([]float32, plain.GridLen())
	if err := plain.SetAtoms(atoms, []int{0}, NoRotation, grid); err != nil {
		t.Fatalf("SetAtoms: %v", err)
	}
	if grid[plain.Layout().Offset(0, 8, 4, 4)] == 0 {
		t.Fatal("unmasked grid has no density at the face")
	}

	cfg.Spherize = true
	masked := newDense[float32](t, cfg, 1, Options{})
	if err := masked.SetAtoms(atoms, []int{0}, NoRotation, grid); err != nil {
		t.Fatalf("SetAtoms masked: %v", err)
	}
	for i, v := range grid {
		if v != 0 {
			t.Fatalf("masked grid[%d] = %g", i, v)
		}
	}
}

func TestRotationRoundTrip(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(11, 13))
	cfg := DefaultConfig()
	cfg.Dimension = 12
	cfg.Center = [3]float64{1, 2, 3}
	gm := newDense[float64](t, cfg, 2, Options{})

	atoms, chans := randomAtoms(rng, 12, cfg.Center, 3, 2)
	q := RandomRotation(rng)
	rotated := make([]AtomInfo, len(atoms))
	for i, a := range atoms {
		x, y, z := RotatePoint(q, cfg.Center, float64(a.X), float64(a.Y), float64(a.Z))
		rotated[i] = AtomInfo{X: float32(x), Y: float32(y), Z: float32(z), Radius: a.Radius}
	}

	want := make([]float64, gm.GridLen())
	got := make([]float64, gm.GridLen())
	if err := gm.SetAtoms(atoms, chans, NoRotation, want); err != nil {
		t.Fatalf("SetAtoms: %v", err)
	}
	if err := gm.SetAtoms(rotated, chans, quat.Conj(q), got); err != nil {
		t.Fatalf("SetAtoms rotated: %v", err)
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-4)); diff != "" {
		t.Fatalf("rotation round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSetCenterMovesGrid(t *testing.T) {
	t.Parallel()

	gm := newDense[float32](t, smallConfig(), 1, Options{})
	gm.SetCenter(10, 10, 10)
	if got := gm.Config().Center; got != [3]float64{10, 10, 10} {
		t.Fatalf("centre = %v", got)
	}

	grid := make([]float32, gm.GridLen())
	if err := gm.SetAtoms([]AtomInfo{{X: 10, Y: 10, Z: 10, Radius: 1}}, []int{0}, NoRotation, grid); err != nil {
		t.Fatalf("SetAtoms: %v", err)
	}
	if got := grid[gm.Layout().Offset(0, 4, 4, 4)]; math.Abs(float64(got)-1) > 1e-6 {
		t.Fatalf("centre density = %g, want 1", got)
	}
}

func TestShapeErrors(t *testing.T) {
	t.Parallel()

	gm := newDense[float32](t, smallConfig(), 2, Options{})
	atoms := []AtomInfo{{Radius: 1}}

	err := gm.SetAtoms(atoms, []int{0}, NoRotation, make([]float32, 10))
	var se *ShapeError
	if !errors.As(err, &se) {
		t.Fatalf("short grid error = %v, want *ShapeError", err)
	}
	if se.Buffer != "grid" || se.Want != gm.GridLen() {
		t.Fatalf("shape error = %+v", se)
	}

	grid := make([]float32, gm.GridLen())
	for name, err := range map[string]error{
		"channel count": gm.SetAtoms(atoms, []int{0, 1}, NoRotation, grid),
		"channel range": gm.SetAtoms(atoms, []int{2}, NoRotation, grid),
		"gradients":     gm.SetAtomGradients(atoms, []int{0}, NoRotation, grid, make([]Vec3, 2)),
		"relevance":     gm.SetAtomRelevance(atoms, []int{0}, NoRotation, grid, grid[1:], make([]Vec3, 1)),
	} {
		if !errors.Is(err, ErrShapeMismatch) {
			t.Fatalf("%s: error = %v, want ErrShapeMismatch", name, err)
		}
	}
}

func TestDegenerateAtoms(t *testing.T) {
	t.Parallel()

	gm := newDense[float32](t, smallConfig(), 1, Options{})
	grid := make([]float32, gm.GridLen())

	for name, a := range map[string]AtomInfo{
		"zero radius":     {Radius: 0},
		"negative radius": {Radius: -1},
		"nan position":    {X: float32(math.NaN()), Radius: 1},
		"inf radius":      {Radius: float32(math.Inf(1))},
	} {
		t.Run(name, func(t *testing.T) {
			err := gm.SetAtoms([]AtomInfo{{Radius: 1}, a}, []int{0, 0}, NoRotation, grid)
			if !errors.Is(err, ErrDegenerateGeometry) {
				t.Fatalf("error = %v, want ErrDegenerateGeometry", err)
			}
			var ge *GeometryError
			if !errors.As(err, &ge) || ge.Atom != 1 {
				t.Fatalf("geometry error = %v, want atom 1", err)
			}
		})
	}
}

// lossGradient is the central finite difference of sum(w * grid) with respect
// to one coordinate of atom idx.
func lossGradient(t *testing.T, gm *GridMaker[float64], atoms []AtomInfo, chans []int, w []float64, idx, axis int) float64 {
	t.Helper()
	const eps = 1e-3
	coord := func(a *AtomInfo) *float32 {
		return [...]*float32{&a.X, &a.Y, &a.Z}[axis]
	}
	loss := func(v float32) float64 {
		moved := append([]AtomInfo(nil), atoms...)
		*coord(&moved[idx]) = v
		grid := make([]float64, gm.GridLen())
		if err := gm.SetAtoms(moved, chans, NoRotation, grid); err != nil {
			t.Fatalf("SetAtoms: %v", err)
		}
		var s float64
		for i, g := range grid {
			s += g * w[i]
		}
		return s
	}
	c := float64(*coord(&atoms[idx]))
	hi, lo := float32(c+eps), float32(c-eps)
	return (loss(hi) - loss(lo)) / (float64(hi) - float64(lo))
}

func TestGradientSinglePoint(t *testing.T) {
	t.Parallel()

	gm := newDense[float64](t, smallConfig(), 1, Options{})
	w := make([]float64, gm.GridLen())
	w[gm.Layout().Offset(0, 4, 4, 4)] = 1

	for name, a := range map[string]AtomInfo{
		"gaussian": {X: 0.35, Y: 0.2, Z: -0.4, Radius: 1},
		"shoulder": {X: 0.8, Y: 0.6, Z: 0.5, Radius: 1},
	} {
		t.Run(name, func(t *testing.T) {
			atoms, chans := []AtomInfo{a}, []int{0}
			grads := make([]Vec3, 1)
			if err := gm.SetAtomGradients(atoms, chans, NoRotation, w, grads); err != nil {
				t.Fatalf("SetAtomGradients: %v", err)
			}
			got := [3]float32{grads[0].X, grads[0].Y, grads[0].Z}
			for axis := range 3 {
				want := lossGradient(t, gm, atoms, chans, w, 0, axis)
				if math.Abs(want-float64(got[axis])) > 1e-4 {
					t.Fatalf("axis %d: gradient %g, finite difference %g", axis, got[axis], want)
				}
			}
		})
	}
}

func TestGradientMatchesFiniteDifference(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(21, 22))
	cfg := smallConfig()
	cfg.Dimension = 6
	gm := newDense[float64](t, cfg, 2, Options{})

	atoms, _ := randomAtoms(rng, 4, [3]float64{}, 1.5, 2)
	chans := []int{0, 1, 0, 1}
	w := make([]float64, gm.GridLen())
	for i := range w {
		w[i] = rng.Float64()*2 - 1
	}

	grads := make([]Vec3, len(atoms))
	if err := gm.SetAtomGradients(atoms, chans, NoRotation, w, grads); err != nil {
		t.Fatalf("SetAtomGradients: %v", err)
	}
	for idx := range atoms {
		got := [3]float32{grads[idx].X, grads[idx].Y, grads[idx].Z}
		for axis := range 3 {
			want := lossGradient(t, gm, atoms, chans, w, idx, axis)
			if math.Abs(want-float64(got[axis])) > 1e-2*(1+math.Abs(want)) {
				t.Fatalf("atom %d axis %d: gradient %g, finite difference %g", idx, axis, got[axis], want)
			}
		}
	}
}

func TestGradientAtGridPointIsFinite(t *testing.T) {
	t.Parallel()

	gm := newDense[float32](t, smallConfig(), 1, Options{})
	diff := make([]float32, gm.GridLen())
	for i := range diff {
		diff[i] = 1
	}
	grads := make([]Vec3, 2)
	atoms := []AtomInfo{{Radius: 1}, {X: 0.5, Radius: 1}}
	if err := gm.SetAtomGradients(atoms, []int{0, Unmapped}, NoRotation, diff, grads); err != nil {
		t.Fatalf("SetAtomGradients: %v", err)
	}
	for _, g := range []float32{grads[0].X, grads[0].Y, grads[0].Z} {
		if math.IsNaN(float64(g)) || math.Abs(float64(g)) > 1e-4 {
			t.Fatalf("symmetric atom gradient = %+v", grads[0])
		}
	}
	if grads[1] != (Vec3{}) {
		t.Fatalf("unmapped atom gradient = %+v", grads[1])
	}
}

func TestRelevanceApportionsAttribution(t *testing.T) {
	t.Parallel()

	gm := newDense[float64](t, smallConfig(), 1, Options{})
	atoms := []AtomInfo{{Radius: 1}, {X: 0.7, Y: -0.3, Radius: 0.9}}
	chans := []int{0, 0}

	density := make([]float64, gm.GridLen())
	if err := gm.SetAtoms(atoms, chans, NoRotation, density); err != nil {
		t.Fatalf("SetAtoms: %v", err)
	}
	attr := make([]float64, gm.GridLen())
	for i := range attr {
		attr[i] = 1
	}
	rel := make([]Vec3, len(atoms))
	if err := gm.SetAtomRelevance(atoms, chans, NoRotation, density, attr, rel); err != nil {
		t.Fatalf("SetAtomRelevance: %v", err)
	}

	covered := 0
	for _, d := range density {
		if d > 0 {
			covered++
		}
	}
	if sum := float64(rel[0].X + rel[1].X); math.Abs(sum-float64(covered)) > 1e-3 {
		t.Fatalf("relevance sum %g, want %d covered points", sum, covered)
	}
	for i, r := range rel {
		if r.Y != 0 || r.Z != 0 || !(r.X > 0) {
			t.Fatalf("atom %d relevance = %+v", i, r)
		}
	}
}

func TestRelevanceSingleAtomCountsPoints(t *testing.T) {
	t.Parallel()

	gm := newDense[float64](t, smallConfig(), 1, Options{})
	atoms := []AtomInfo{{X: 0.1, Y: 0.2, Z: 0.3, Radius: 1}}

	density := make([]float64, gm.GridLen())
	if err := gm.SetAtoms(atoms, []int{0}, NoRotation, density); err != nil {
		t.Fatalf("SetAtoms: %v", err)
	}
	attr := make([]float64, gm.GridLen())
	for i := range attr {
		attr[i] = 2
	}
	rel := make([]Vec3, 1)
	if err := gm.SetAtomRelevance(atoms, []int{0}, NoRotation, density, attr, rel); err != nil {
		t.Fatalf("SetAtomRelevance: %v", err)
	}

	within := 0
	for i := 0; i < gm.Dim(); i++ {
		for j := 0; j < gm.Dim(); j++ {
			for k := 0; k < gm.Dim(); k++ {
				x, y, z := gm.Geometry().Point(i, j, k)
				if gm.Kernel().CalcPoint(atoms[0], x, y, z) > 0 {
					within++
				}
			}
		}
	}
	if got := float64(rel[0].X); math.Abs(got-float64(2*within)) > 1e-3 {
		t.Fatalf("relevance %g, want %d", got, 2*within)
	}
}

func TestWorkersAreDeterministic(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(5, 8))
	atoms, chans := randomAtoms(rng, 200, [3]float64{}, 12, 4)
	q := RandomRotation(rng)

	seq := newDense[float32](t, DefaultConfig(), 4, Options{Workers: 1})
	par := newDense[float32](t, DefaultConfig(), 4, Options{Workers: 8})

	want := make([]float32, seq.GridLen())
	got := make([]float32, par.GridLen())
	if err := seq.SetAtoms(atoms, chans, q, want); err != nil {
		t.Fatalf("sequential SetAtoms: %v", err)
	}
	if err := par.SetAtoms(atoms, chans, q, got); err != nil {
		t.Fatalf("parallel SetAtoms: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("forward differs across workers (-seq +par):\n%s", diff)
	}

	diff := make([]float32, seq.GridLen())
	for i := range diff {
		diff[i] = float32(rng.NormFloat64())
	}
	gWant := make([]Vec3, len(atoms))
	gGot := make([]Vec3, len(atoms))
	if err := seq.SetAtomGradients(atoms, chans, q, diff, gWant); err != nil {
		t.Fatalf("sequential gradients: %v", err)
	}
	if err := par.SetAtomGradients(atoms, chans, q, diff, gGot); err != nil {
		t.Fatalf("parallel gradients: %v", err)
	}
	if d := cmp.Diff(gWant, gGot); d != "" {
		t.Fatalf("gradients differ across workers (-seq +par):\n%s", d)
	}

	if err := seq.SetAtomRelevance(atoms, chans, q, want, diff, gWant); err != nil {
		t.Fatalf("sequential relevance: %v", err)
	}
	if err := par.SetAtomRelevance(atoms, chans, q, want, diff, gGot); err != nil {
		t.Fatalf("parallel relevance: %v", err)
	}
	if d := cmp.Diff(gWant, gGot); d != "" {
		t.Fatalf("relevance differs across workers (-seq +par):\n%s", d)
	}
}
