// Package gridfile implements the grid container written by molgrid.
//
// A container is a fixed little-endian header followed by an 8-byte aligned
// float32 payload in the engine's buffer layout. It is memory-mappable and
// carries enough geometry to rebuild the engine that produced it.
package gridfile

import (
	"encoding/binary"
	"fmt"

	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

// Container constants must never change.
const (
	// Magic is the file magic, "MGRD".
	Magic = "MGRD"

	// CurrentMajor changes on breaking format changes.
	CurrentMajor uint16 = 1
	// CurrentMinor changes when optional fields are added. Minor 1 added
	// the kernel fields.
	CurrentMinor uint16 = 1

	align = 8
)

// Layout is the payload addressing scheme.
type Layout uint16

const (
	LayoutDense   Layout = 1
	LayoutSubcube Layout = 2
)

func (l Layout) String() string {
	switch l {
	case LayoutDense:
		return "dense"
	case LayoutSubcube:
		return "subcube"
	default:
		return fmt.Sprintf("Layout(%d)", uint16(l))
	}
}

// DType is the payload scalar type.
type DType uint16

const DTypeF32 DType = 1

// Flags records kernel switches the payload was computed with.
type Flags uint32

const (
	FlagBinary Flags = 1 << iota
	FlagSpherize
)

type Header struct {
	Magic       [4]byte
	Major       uint16
	Minor       uint16
	HeaderSize  uint32
	Layout      Layout
	DType       DType
	Channels    uint32
	Dim         uint32
	SubDim      uint32
	GridsPerDim uint32
	BatchSize   uint32
	Resolution  float32
	Center      [3]float64
	DataOffset  uint64
	DataSize    uint64
	FileSize    uint64

	// RadiusMultiple is zero in files written before minor 1.
	RadiusMultiple float32
	Flags          Flags
}

var (
	headerSize = binary.Size(Header{})
	// minHeaderSize is the minor 0 header, without the kernel fields.
	minHeaderSize = headerSize - 8
)

// Dense describes a [channels][dim][dim][dim] grid.
func Dense(channels int, geom gridmaker.Geometry) Header {
	return Header{
		Layout:     LayoutDense,
		DType:      DTypeF32,
		Channels:   uint32(channels),
		Dim:        uint32(geom.Dim),
		Resolution: float32(geom.Resolution),
		Center:     geom.Center,
	}
}

// Subcube describes a tiled grid holding batch slots.
func Subcube(channels int, geom gridmaker.Geometry, subDim, gridsPerDim, batch int) Header {
	h := Dense(channels, geom)
	h.Layout = LayoutSubcube
	h.SubDim = uint32(subDim)
	h.GridsPerDim = uint32(gridsPerDim)
	h.BatchSize = uint32(batch)
	return h
}

// Values is the number of scalars the header describes.
func (h *Header) Values() uint64 {
	ch := uint64(h.Channels)
	switch h.Layout {
	case LayoutDense:
		d := uint64(h.Dim)
		return ch * d * d * d
	case LayoutSubcube:
		s, g := uint64(h.SubDim), uint64(h.GridsPerDim)
		return g * g * g * uint64(h.BatchSize) * ch * s * s * s
	default:
		return 0
	}
}

// SetKernel records the kernel settings of cfg.
func (h *Header) SetKernel(cfg gridmaker.Config) {
	h.RadiusMultiple = cfg.RadiusMultiple
	if h.RadiusMultiple == 0 {
		h.RadiusMultiple = gridmaker.DefaultRadiusMultiple
	}
	h.Flags = 0
	if cfg.Binary {
		h.Flags |= FlagBinary
	}
	if cfg.Spherize {
		h.Flags |= FlagSpherize
	}
}

// HasKernel reports whether the header carries kernel settings.
func (h *Header) HasKernel() bool { return h.RadiusMultiple > 0 }

func (h *Header) Binary() bool   { return h.Flags&FlagBinary != 0 }
func (h *Header) Spherize() bool { return h.Flags&FlagSpherize != 0 }

// Extent is the world-space side length of the grid.
func (h *Header) Extent() float64 {
	if h.Dim == 0 {
		return 0
	}
	return float64(h.Resolution) * float64(h.Dim-1)
}

// GridConfig rebuilds the engine configuration the header was written with.
func (h *Header) GridConfig() gridmaker.Config {
	cfg := gridmaker.DefaultConfig()
	cfg.Resolution = h.Resolution
	cfg.Dimension = float32(h.Extent())
	cfg.Center = h.Center
	if h.HasKernel() {
		cfg.RadiusMultiple = h.RadiusMultiple
		cfg.Binary = h.Binary()
		cfg.Spherize = h.Spherize()
	}
	return cfg
}

func (h *Header) Valid() bool {
	if string(h.Magic[:]) != Magic {
		return false
	}
	return h.HeaderSize >= uint32(minHeaderSize)
}

func (h *Header) Compatible() bool {
	return h.Major == CurrentMajor
}

func alignUp(n uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}
