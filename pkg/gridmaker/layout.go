package gridmaker

// Layout maps a global grid point of one channel to its offset in a flat
// buffer.
type Layout interface {
	// Len is the buffer length the layout addresses.
	Len() int
	// Offset returns the buffer index of (channel, i, j, k).
	Offset(channel, i, j, k int) int
}

// DenseLayout addresses a [Channels][Dim][Dim][Dim] buffer.
type DenseLayout struct {
	Channels int
	Dim      int
}

func (l DenseLayout) Len() int {
	return l.Channels * l.Dim * l.Dim * l.Dim
}

func (l DenseLayout) Offset(channel, i, j, k int) int {
	return ((channel*l.Dim+i)*l.Dim+j)*l.Dim + k
}

// SubcubeLayout addresses a
// [GridsPerDim^3][BatchSize][Channels][SubDim][SubDim][SubDim] buffer,
// writing batch slot Slot.
type SubcubeLayout struct {
	Channels    int
	SubDim      int
	GridsPerDim int
	BatchSize   int
	Slot        int
}

// Subcubes returns the number of tiles.
func (l SubcubeLayout) Subcubes() int {
	return l.GridsPerDim * l.GridsPerDim * l.GridsPerDim
}

func (l SubcubeLayout) Len() int {
	s := l.SubDim
	return l.Subcubes() * l.BatchSize * l.Channels * s * s * s
}

// Locate splits a global index into its tile and the index within the tile.
func (l SubcubeLayout) Locate(i, j, k int) (sub, li, lj, lk int) {
	s := l.SubDim
	sub = ((i/s)*l.GridsPerDim+j/s)*l.GridsPerDim + k/s
	return sub, i % s, j % s, k % s
}

// Global is the inverse of Locate.
func (l SubcubeLayout) Global(sub, li, lj, lk int) (i, j, k int) {
	g := l.GridsPerDim
	sx, sy, sz := sub/(g*g), (sub/g)%g, sub%g
	s := l.SubDim
	return sx*s + li, sy*s + lj, sz*s + lk
}

func (l SubcubeLayout) Offset(channel, i, j, k int) int {
	sub, li, lj, lk := l.Locate(i, j, k)
	s := l.SubDim
	return (((((sub*l.BatchSize+l.Slot)*l.Channels+channel)*s+li)*s+lj)*s + lk)
}

// Zero clears a buffer.
func Zero[T Float](grid []T) {
	clear(grid)
}
