package molio

import (
	"math/rand/v2"

	"github.com/samcharles93/molgrid/pkg/atomtypes"
)

// MaxRandomAtoms bounds the atom count Random picks when n is zero.
const MaxRandomAtoms = 200

// Random builds a molecule of n atoms with uniform coordinates in
// [-maxXYZ, maxXYZ] and uniform types from vocab, each assigned to the
// receptor or the ligand with equal odds. n == 0 picks a count in
// [1, MaxRandomAtoms].
func Random(rng *rand.Rand, n int, maxXYZ float32, vocab *atomtypes.Table) *Molecule {
	if n <= 0 {
		n = 1 + rng.IntN(MaxRandomAtoms)
	}
	coord := func() float32 {
		return (rng.Float32()*2 - 1) * maxXYZ
	}
	m := &Molecule{}
	for range n {
		t := atomtypes.TypeID(rng.IntN(vocab.Len()))
		a := Atom{
			X:      coord(),
			Y:      coord(),
			Z:      coord(),
			Type:   vocab.Name(t),
			Radius: vocab.Radius(t),
		}
		if rng.IntN(2) == 0 {
			m.Receptor = append(m.Receptor, a)
		} else {
			m.Ligand = append(m.Ligand, a)
		}
	}
	return m
}
