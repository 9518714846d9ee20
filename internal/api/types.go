package api

import (
	"github.com/samcharles93/molgrid/internal/molio"
	"github.com/samcharles93/molgrid/internal/plotgrid"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

// GridRequest asks for the density grid of one molecule.
type GridRequest struct {
	Molecule molio.Molecule    `json:"molecule"`
	Grid     *gridmaker.Params `json:"grid,omitempty"`

	// ReceptorMap and LigandMap hold type map text. Empty selects the
	// default map for the role.
	ReceptorMap string `json:"receptor_map,omitempty"`
	LigandMap   string `json:"ligand_map,omitempty"`
	NoReceptor  bool   `json:"no_receptor,omitempty"`

	// Rotation is [w, x, y, z]. RandomRotation draws one, seeded by Seed
	// when present.
	Rotation       *[4]float64 `json:"rotation,omitempty"`
	RandomRotation bool        `json:"random_rotation,omitempty"`
	Seed           *uint64     `json:"seed,omitempty"`

	Backend string `json:"backend,omitempty"`

	IncludeValues bool `json:"include_values,omitempty"`
	IncludeStats  bool `json:"include_stats,omitempty"`
}

// GridResponse describes a stored grid.
type GridResponse struct {
	ID           string                  `json:"id"`
	Object       string                  `json:"object"`
	CreatedAt    int64                   `json:"created_at"`
	Layout       string                  `json:"layout"`
	Backend      string                  `json:"backend"`
	Channels     int                     `json:"channels"`
	ChannelNames []string                `json:"channel_names"`
	Dim          int                     `json:"dim"`
	Resolution   float32                 `json:"resolution"`
	Center       [3]float64              `json:"center"`
	Rotation     [4]float64              `json:"rotation"`
	Atoms        int                     `json:"atoms"`
	Values       int                     `json:"values"`
	Cached       bool                    `json:"cached"`
	Data         []float32               `json:"data,omitempty"`
	Stats        []plotgrid.ChannelStats `json:"stats,omitempty"`
}

// BackwardRequest carries the upstream signal for a stored grid. Density
// defaults to the stored forward grid and is only read by relevance.
type BackwardRequest struct {
	Diff    []float32 `json:"diff"`
	Density []float32 `json:"density,omitempty"`
	Slot    int       `json:"slot,omitempty"`
}

type AtomVector struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// GradientResponse holds one gradient per atom, receptor atoms first.
type GradientResponse struct {
	GridID    string       `json:"grid_id"`
	Object    string       `json:"object"`
	Gradients []AtomVector `json:"gradients"`
}

// RelevanceResponse holds one relevance score per atom.
type RelevanceResponse struct {
	GridID    string    `json:"grid_id"`
	Object    string    `json:"object"`
	Relevance []float32 `json:"relevance"`
}

type DeleteGridResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Deleted bool   `json:"deleted"`
}

type CacheStatsResponse struct {
	Enabled bool  `json:"enabled"`
	Entries int64 `json:"entries"`
	Bytes   int64 `json:"bytes"`
	Hits    int64 `json:"hits"`
	Stored  int   `json:"stored"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Backends string `json:"backends"`
}

type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}
