// Package plotgrid renders and summarises dense density grids.
package plotgrid

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

var axisNames = [3]string{"x", "y", "z"}

// Slice is one plane of a dense channel, perpendicular to Axis at Index.
// It implements plotter.GridXYZ.
type Slice struct {
	Axis  int
	Index int
	data  []float64
	dim   int
	res   float64
	u0    float64
	v0    float64
}

// NewSlice extracts a plane from grid, a dense [channels][dim][dim][dim]
// buffer laid out by geom.
func NewSlice[T gridmaker.Float](grid []T, geom gridmaker.Geometry, channel, axis, index int) (*Slice, error) {
	dim := geom.Dim
	l := gridmaker.DenseLayout{Channels: len(grid) / geom.Points(), Dim: dim}
	switch {
	case l.Channels == 0 || len(grid) != l.Len():
		return nil, fmt.Errorf("plotgrid: grid length %d is not a whole number of %d^3 channels", len(grid), dim)
	case channel < 0 || channel >= l.Channels:
		return nil, fmt.Errorf("plotgrid: channel %d out of range [0,%d)", channel, l.Channels)
	case axis < 0 || axis > 2:
		return nil, fmt.Errorf("plotgrid: axis %d out of range", axis)
	case index < 0 || index >= dim:
		return nil, fmt.Errorf("plotgrid: index %d out of range [0,%d)", index, dim)
	}

	ua, va := (axis+1)%3, (axis+2)%3
	if ua > va {
		ua, va = va, ua
	}
	s := &Slice{
		Axis:  axis,
		Index: index,
		data:  make([]float64, dim*dim),
		dim:   dim,
		res:   geom.Resolution,
		u0:    geom.Bounds[ua][0],
		v0:    geom.Bounds[va][0],
	}
	var idx [3]int
	idx[axis] = index
	for u := 0; u < dim; u++ {
		for v := 0; v < dim; v++ {
			idx[ua], idx[va] = u, v
			s.data[u*dim+v] = float64(grid[l.Offset(channel, idx[0], idx[1], idx[2])])
		}
	}
	return s, nil
}

func (s *Slice) Dims() (c, r int)   { return s.dim, s.dim }
func (s *Slice) Z(c, r int) float64 { return s.data[c*s.dim+r] }
func (s *Slice) X(c int) float64    { return s.u0 + float64(c)*s.res }
func (s *Slice) Y(r int) float64    { return s.v0 + float64(r)*s.res }
func (s *Slice) Values() []float64  { return s.data }

// axes names the horizontal and vertical plot axes.
func (s *Slice) axes() (string, string) {
	ua, va := (s.Axis+1)%3, (s.Axis+2)%3
	if ua > va {
		ua, va = va, ua
	}
	return axisNames[ua], axisNames[va]
}

// RenderSlice writes a heat map of one slice to path. The image format
// follows the file extension (png, svg, pdf, ...).
func RenderSlice[T gridmaker.Float](path string, grid []T, geom gridmaker.Geometry, channel, axis, index int, title string) error {
	s, err := NewSlice(grid, geom, channel, axis, index)
	if err != nil {
		return err
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text, p.Y.Label.Text = s.axes()

	pal := palette.Heat(16, 1)
	hm := plotter.NewHeatMap(s, pal)
	// An all-zero plane would otherwise give a degenerate colour range.
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// ChannelStats describes one channel of a grid.
type ChannelStats struct {
	Channel int     `json:"channel"`
	Name    string  `json:"name,omitempty"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Sum     float64 `json:"sum"`
	NonZero int     `json:"nonzero"`
}

// Summarise computes per-channel statistics of a dense grid.
func Summarise[T gridmaker.Float](grid []T, channels int) ([]ChannelStats, error) {
	if channels < 1 || len(grid)%channels != 0 {
		return nil, fmt.Errorf("plotgrid: grid length %d does not split into %d channels", len(grid), channels)
	}
	n := len(grid) / channels
	vals := make([]float64, n)
	out := make([]ChannelStats, channels)
	for ch := range out {
		for i, v := range grid[ch*n : (ch+1)*n] {
			vals[i] = float64(v)
		}
		st := ChannelStats{Channel: ch, Sum: floats.Sum(vals)}
		if n > 0 {
			st.Min = floats.Min(vals)
			st.Max = floats.Max(vals)
		}
		st.NonZero = floats.Count(func(v float64) bool { return v != 0 }, vals)
		out[ch] = st
	}
	return out, nil
}
