package api

import (
	"bytes"
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"gonum.org/v1/gonum/num/quat"

	"github.com/samcharles93/molgrid/internal/engine"
	"github.com/samcharles93/molgrid/internal/gridstore"
	"github.com/samcharles93/molgrid/internal/logger"
	"github.com/samcharles93/molgrid/internal/plotgrid"
	"github.com/samcharles93/molgrid/pkg/gridfile"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

// ServiceOptions configures a GridService. Zero values select the default
// grid settings, the auto backend and no cache.
type ServiceOptions struct {
	Defaults *gridmaker.Params
	Backend  string
	Workers  int
	Cache    *gridstore.Store
	Logger   logger.Logger
	Seed     uint64
}

// GridService runs forward and backward passes for the HTTP handlers.
type GridService struct {
	loader   engine.Loader
	defaults gridmaker.Params
	cache    *gridstore.Store
	log      logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGridService(opts ServiceOptions) *GridService {
	defaults := gridmaker.DefaultParams()
	defaults.Center = nil
	if opts.Defaults != nil {
		defaults = *opts.Defaults
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &GridService{
		loader:   engine.Loader{Backend: opts.Backend, Workers: opts.Workers},
		defaults: defaults,
		cache:    opts.Cache,
		log:      log,
		rng:      rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
	}
}

// Make builds the grid for req. The record is not yet stored.
func (s *GridService) Make(ctx context.Context, req *GridRequest, now time.Time) (*gridRecord, error) {
	if req.Molecule.Len() == 0 {
		return nil, newInvalidRequest("molecule has no atoms")
	}
	if req.Rotation != nil && req.RandomRotation {
		return nil, newInvalidRequest("rotation and random_rotation are mutually exclusive")
	}
	params := s.defaults
	if req.Grid != nil {
		params = *req.Grid
	}
	loader := s.loader
	loader.ReceptorText = req.ReceptorMap
	loader.LigandText = req.LigandMap
	loader.NoReceptor = req.NoReceptor
	if req.Backend != "" {
		loader.Backend = req.Backend
	}

	start := time.Now()
	e, err := loader.Load(params)
	if err != nil {
		return nil, err
	}
	atoms, chans, err := e.Prepare(&req.Molecule)
	if err != nil {
		return nil, err
	}
	q := s.rotation(req)

	grid, cached, err := s.forward(ctx, e, atoms, chans, q)
	if err != nil {
		return nil, err
	}

	geom := e.Geometry()
	rec := &gridRecord{
		engine:   e,
		atoms:    atoms,
		chans:    chans,
		rotation: q,
		grid:     grid,
		Response: GridResponse{
			ID:           newGridID(),
			Object:       "grid",
			CreatedAt:    now.Unix(),
			Layout:       e.Layout().String(),
			Backend:      e.Backend(),
			Channels:     e.Channels(),
			ChannelNames: e.ChannelNames(),
			Dim:          geom.Dim,
			Resolution:   float32(geom.Resolution),
			Center:       geom.Center,
			Rotation:     engine.RotationArray(q),
			Atoms:        len(atoms),
			Values:       len(grid),
			Cached:       cached,
		},
	}
	logger.Since(s.log, start, "grid built",
		"id", rec.Response.ID,
		"atoms", len(atoms),
		"channels", e.Channels(),
		"dim", geom.Dim,
		"cached", cached,
	)
	return rec, nil
}

func (s *GridService) forward(ctx context.Context, e *engine.Engine, atoms []gridmaker.AtomInfo, chans []int, q quat.Number) ([]float32, bool, error) {
	var key string
	if s.cache != nil && e.Layout() == gridfile.LayoutDense {
		key = gridstore.Key(e.Config(), e.Channels(), atoms, chans, q)
		_, data, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.Warn("grid cache read failed", "error", err)
		} else if ok && len(data) == e.GridLen() {
			return data, true, nil
		}
	}
	grid := e.NewGrid()
	if err := e.Forward(atoms, chans, q, grid); err != nil {
		return nil, false, err
	}
	if key != "" {
		if err := s.cache.Put(ctx, key, e.Header(), grid); err != nil {
			s.log.Warn("grid cache write failed", "error", err)
		}
	}
	return grid, false, nil
}

func (s *GridService) rotation(req *GridRequest) quat.Number {
	switch {
	case req.Rotation != nil:
		return engine.RotationFromArray(*req.Rotation)
	case req.RandomRotation && req.Seed != nil:
		return gridmaker.RandomRotation(rand.New(rand.NewPCG(*req.Seed, 0)))
	case req.RandomRotation:
		s.mu.Lock()
		defer s.mu.Unlock()
		return gridmaker.RandomRotation(s.rng)
	}
	return gridmaker.NoRotation
}

// Stats summarises each channel of a dense record.
func (s *GridService) Stats(rec *gridRecord) ([]plotgrid.ChannelStats, error) {
	if rec.engine.Layout() != gridfile.LayoutDense {
		return nil, newInvalidRequest("stats are only available for dense grids")
	}
	stats, err := plotgrid.Summarise(rec.grid, rec.engine.Channels())
	if err != nil {
		return nil, err
	}
	names := rec.engine.ChannelNames()
	for i := range stats {
		stats[i].Name = names[i]
	}
	return stats, nil
}

func (s *GridService) Gradient(rec *gridRecord, req *BackwardRequest) ([]gridmaker.Vec3, error) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	start := time.Now()
	grads, err := rec.engine.Gradient(rec.atoms, rec.chans, rec.rotation, req.Diff, req.Slot)
	if err != nil {
		return nil, err
	}
	logger.Since(s.log, start, "gradient pass", "id", rec.Response.ID)
	return grads, nil
}

func (s *GridService) Relevance(rec *gridRecord, req *BackwardRequest) ([]float32, error) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	density := req.Density
	if density == nil {
		density = rec.grid
	}
	start := time.Now()
	rel, err := rec.engine.Relevance(rec.atoms, rec.chans, rec.rotation, density, req.Diff, req.Slot)
	if err != nil {
		return nil, err
	}
	logger.Since(s.log, start, "relevance pass", "id", rec.Response.ID)
	out := make([]float32, len(rel))
	for i, r := range rel {
		out[i] = r.X
	}
	return out, nil
}

// Encode renders the record's grid as a grid file.
func (s *GridService) Encode(rec *gridRecord) ([]byte, error) {
	var buf bytes.Buffer
	if err := gridfile.Write(&buf, rec.engine.Header(), rec.grid); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *GridService) CacheStats(ctx context.Context) (gridstore.Stats, bool, error) {
	if s.cache == nil {
		return gridstore.Stats{}, false, nil
	}
	st, err := s.cache.Stats(ctx)
	return st, true, err
}
