package gridmaker

import "math"

const (
	// DefaultRadiusMultiple places the density cutoff at 1.5 atom radii.
	DefaultRadiusMultiple = 1.5
	// DefaultResolution and DefaultDimension give a 48^3 grid.
	DefaultResolution = 0.5
	DefaultDimension  = 23.5
)

// Config describes a cubic grid of dim^3 points per channel centred on
// Center.
type Config struct {
	Resolution     float32
	Dimension      float32
	RadiusMultiple float32
	Binary         bool
	Spherize       bool
	Center         [3]float64
}

// DefaultConfig returns the standard 0.5A, 23.5A continuous grid at the origin.
func DefaultConfig() Config {
	return Config{
		Resolution:     DefaultResolution,
		Dimension:      DefaultDimension,
		RadiusMultiple: DefaultRadiusMultiple,
	}
}

func (c Config) radiusMultiple() float64 {
	if c.RadiusMultiple == 0 {
		return DefaultRadiusMultiple
	}
	return float64(c.RadiusMultiple)
}

// Validate reports whether the configuration describes a usable grid. Any
// positive RadiusMultiple is accepted; the kernel truncates at the cutoff.
func (c Config) Validate() error {
	res := float64(c.Resolution)
	dim := float64(c.Dimension)
	rm := c.radiusMultiple()
	switch {
	case !(res > 0) || math.IsInf(res, 0):
		return configError("resolution must be positive, got %g", c.Resolution)
	case !(dim > 0) || math.IsInf(dim, 0):
		return configError("dimension must be positive, got %g", c.Dimension)
	case !(rm > 0) || math.IsInf(rm, 0):
		return configError("radius multiple must be positive, got %g", c.RadiusMultiple)
	}
	for i, v := range c.Center {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return configError("center component %d is not finite", i)
		}
	}
	return nil
}

// SubcubeConfig selects the tiled layout. A non-zero Stride selects the
// strided mode, which keeps dense addressing.
type SubcubeConfig struct {
	SubgridDimension float32
	BatchSize        int
	Stride           int
}

func (s SubcubeConfig) validate(res float32) error {
	switch {
	case !(s.SubgridDimension > 0):
		return configError("subgrid dimension must be positive, got %g", s.SubgridDimension)
	case s.SubgridDimension < res:
		return configError("subgrid dimension %g is smaller than resolution %g", s.SubgridDimension, res)
	case s.BatchSize < 1:
		return configError("batch size must be at least 1, got %d", s.BatchSize)
	case s.Stride < 0:
		return configError("stride must not be negative, got %d", s.Stride)
	}
	return nil
}

// Options selects the execution substrate. Workers <= 1 runs the reference
// single-threaded path; results do not depend on the worker count.
type Options struct {
	Workers int
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}

// Params is the settings-object form of a grid configuration. Field names
// follow the molgrid data layer parameters so the same document can be read
// from yaml or json.
type Params struct {
	Resolution      float32     `yaml:"resolution" json:"resolution"`
	Dimension       float32     `yaml:"dimension" json:"dimension"`
	RadiusMultiple  float32     `yaml:"radius_multiple" json:"radius_multiple"`
	BinaryOccupancy bool        `yaml:"binary_occupancy" json:"binary_occupancy"`
	SphericalMask   bool        `yaml:"spherical_mask" json:"spherical_mask"`
	Center          *[3]float64 `yaml:"center,omitempty" json:"center,omitempty"`
	SubgridDim      float32     `yaml:"subgrid_dim,omitempty" json:"subgrid_dim,omitempty"`
	BatchSize       int         `yaml:"batch_size,omitempty" json:"batch_size,omitempty"`
	Stride          int         `yaml:"stride,omitempty" json:"stride,omitempty"`
}

// DefaultParams mirrors DefaultConfig.
func DefaultParams() Params {
	return DefaultConfig().Params()
}

// Config converts the settings object to a Config. Zero resolution or
// dimension fall back to the defaults.
func (p Params) Config() Config {
	cfg := Config{
		Resolution:     p.Resolution,
		Dimension:      p.Dimension,
		RadiusMultiple: p.RadiusMultiple,
		Binary:         p.BinaryOccupancy,
		Spherize:       p.SphericalMask,
	}
	if cfg.Resolution == 0 {
		cfg.Resolution = DefaultResolution
	}
	if cfg.Dimension == 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.RadiusMultiple == 0 {
		cfg.RadiusMultiple = DefaultRadiusMultiple
	}
	if p.Center != nil {
		cfg.Center = *p.Center
	}
	return cfg
}

// Subcube reports whether the settings ask for the tiled engine.
func (p Params) Subcube() bool {
	return p.SubgridDim > 0
}

// SubcubeConfig extracts the tiling settings. A zero batch size means 1.
func (p Params) SubcubeConfig() SubcubeConfig {
	bs := p.BatchSize
	if bs == 0 {
		bs = 1
	}
	return SubcubeConfig{
		SubgridDimension: p.SubgridDim,
		BatchSize:        bs,
		Stride:           p.Stride,
	}
}

// Params converts a Config back to its settings-object form.
func (c Config) Params() Params {
	center := c.Center
	return Params{
		Resolution:      c.Resolution,
		Dimension:       c.Dimension,
		RadiusMultiple:  c.RadiusMultiple,
		BinaryOccupancy: c.Binary,
		SphericalMask:   c.Spherize,
		Center:          &center,
	}
}
