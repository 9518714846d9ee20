package gridmaker

// Float is the scalar type of a grid buffer.
type Float interface {
	~float32 | ~float64
}

// AtomInfo is a single atom record: position and interaction radius.
type AtomInfo struct {
	X, Y, Z float32
	Radius  float32
}

// Vec3 holds a per-atom gradient. The relevance pass only fills X.
type Vec3 struct {
	X, Y, Z float32
}

// Unmapped marks an atom that does not belong to any channel.
const Unmapped = -1

type vec struct{ x, y, z float64 }

func (a AtomInfo) pos() vec {
	return vec{float64(a.X), float64(a.Y), float64(a.Z)}
}

func zeroGradients(grads []Vec3) {
	for i := range grads {
		grads[i] = Vec3{}
	}
}
