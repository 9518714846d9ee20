package molio

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/molgrid/pkg/atomtypes"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

const complexJSON = `{
  "receptor": [
    {"x": 0, "y": 0, "z": 0, "type": "Zinc"},
    {"x": 1, "y": 0, "z": 0, "type": "Hydrogen"}
  ],
  "ligand": [
    {"x": 2, "y": 2, "z": 2, "type": "Oxygen", "radius": 1.5},
    {"x": 4, "y": 2, "z": 0, "type": "Boron"}
  ]
}`

func TestDecodeAndGridder(t *testing.T) {
	m, err := Decode(strings.NewReader(complexJSON))
	require.NoError(t, err)
	require.Equal(t, 4, m.Len())

	rec, err := atomtypes.DefaultReceptor(atomtypes.Smina)
	require.NoError(t, err)
	lig, err := atomtypes.DefaultLigand(atomtypes.Smina)
	require.NoError(t, err)

	atoms, chans, err := m.Gridder(rec, lig, atomtypes.Smina)
	require.NoError(t, err)

	wantChans := []int{15, gridmaker.Unmapped, 16 + 11, 16 + 18}
	if diff := cmp.Diff(wantChans, chans); diff != "" {
		t.Fatalf("channels (-want +got):\n%s", diff)
	}
	wantAtoms := []gridmaker.AtomInfo{
		{X: 0, Y: 0, Z: 0, Radius: 1.2},
		{X: 1, Y: 0, Z: 0, Radius: 1.1},
		{X: 2, Y: 2, Z: 2, Radius: 1.5},
		{X: 4, Y: 2, Z: 0, Radius: 1.92},
	}
	if diff := cmp.Diff(wantAtoms, atoms); diff != "" {
		t.Fatalf("atoms (-want +got):\n%s", diff)
	}

	c, err := m.Center()
	require.NoError(t, err)
	require.Equal(t, [3]float64{3, 2, 1}, c)
}

func TestGridderNilReceptorMap(t *testing.T) {
	m, err := Decode(strings.NewReader(complexJSON))
	require.NoError(t, err)
	lig, err := atomtypes.DefaultLigand(atomtypes.Smina)
	require.NoError(t, err)

	_, chans, err := m.Gridder(nil, lig, atomtypes.Smina)
	require.NoError(t, err)
	require.Equal(t, []int{-1, -1, 11, 18}, chans)
}

func TestGridderUnknownType(t *testing.T) {
	m := &Molecule{Ligand: []Atom{{Type: "Unobtainium"}}}
	_, _, err := m.Gridder(nil, nil, atomtypes.Smina)
	require.True(t, errors.Is(err, atomtypes.ErrUnknownType), "got %v", err)
}

func TestCenterFallbacks(t *testing.T) {
	fixed := [3]float64{9, 8, 7}
	m := &Molecule{FixedCenter: &fixed, Ligand: []Atom{{X: 1}}}
	c, err := m.Center()
	require.NoError(t, err)
	require.Equal(t, fixed, c)

	m = &Molecule{Receptor: []Atom{{X: 1, Y: 1}, {X: 3, Y: -1}}}
	c, err = m.Center()
	require.NoError(t, err)
	require.Equal(t, [3]float64{2, 0, 0}, c)

	_, err = (&Molecule{}).Center()
	require.ErrorIs(t, err, ErrEmpty)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	m := Random(rng, 30, 10, atomtypes.Smina)
	require.Equal(t, 30, m.Len())

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, m))
	back, err := Decode(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(m, back); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"ligand": [], "atoms": []}`))
	require.Error(t, err)
}

func TestRandomBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 3))
	m := Random(rng, 0, 5, atomtypes.Smina)
	require.GreaterOrEqual(t, m.Len(), 1)
	require.LessOrEqual(t, m.Len(), MaxRandomAtoms)
	for _, a := range append(m.Receptor, m.Ligand...) {
		require.LessOrEqual(t, a.X, float32(5))
		require.GreaterOrEqual(t, a.X, float32(-5))
		_, ok := atomtypes.Smina.Lookup(a.Type)
		require.True(t, ok)
		require.Positive(t, a.Radius)
	}
}
