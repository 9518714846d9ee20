// Package api exposes the grid engines over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/molgrid/internal/backend"
	"github.com/samcharles93/molgrid/internal/version"
	"github.com/samcharles93/molgrid/pkg/atomtypes"
)

type Server struct {
	store   *GridStore
	service *GridService
	clock   func() time.Time
}

func NewServer(store *GridStore, service *GridService) *Server {
	if store == nil {
		store = NewGridStore(DefaultStoreLimit)
	}
	return &Server{
		store:   store,
		service: service,
		clock:   time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)

	e.POST("/v1/grids", s.handleCreateGrid)
	e.GET("/v1/grids/:id", s.handleGetGrid)
	e.DELETE("/v1/grids/:id", s.handleDeleteGrid)
	e.GET("/v1/grids/:id/data", s.handleGridData)
	e.POST("/v1/grids/:id/gradient", s.handleGradient)
	e.POST("/v1/grids/:id/relevance", s.handleRelevance)

	e.GET("/v1/typemaps/:role", s.handleTypeMap)
	e.GET("/v1/cache/stats", s.handleCacheStats)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  version.String(),
		Backends: backend.Available(),
	})
}

func (s *Server) handleCreateGrid(c *echo.Context) error {
	if s.service == nil {
		return writeError(c, http.StatusInternalServerError, "server_error", "grid service not configured", "", "")
	}
	req, err := decodeJSON[GridRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	rec, err := s.service.Make(c.Request().Context(), &req, s.clock())
	if err != nil {
		return writeFailure(c, err)
	}

	resp := rec.Response
	if req.IncludeStats {
		stats, err := s.service.Stats(rec)
		if err != nil {
			return writeFailure(c, err)
		}
		resp.Stats = stats
	}
	if req.IncludeValues {
		resp.Data = rec.grid
	}
	s.store.Put(rec)
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) lookup(c *echo.Context) (*gridRecord, bool) {
	id := c.Param("id")
	if id == "" {
		return nil, false
	}
	return s.store.Get(id)
}

func (s *Server) handleGetGrid(c *echo.Context) error {
	rec, ok := s.lookup(c)
	if !ok {
		return writeNotFound(c, "grid not found")
	}
	return c.JSON(http.StatusOK, rec.Response)
}

func (s *Server) handleDeleteGrid(c *echo.Context) error {
	id := c.Param("id")
	if id == "" || !s.store.Delete(id) {
		return writeNotFound(c, "grid not found")
	}
	return c.JSON(http.StatusOK, DeleteGridResponse{
		ID:      id,
		Object:  "grid",
		Deleted: true,
	})
}

func (s *Server) handleGridData(c *echo.Context) error {
	rec, ok := s.lookup(c)
	if !ok {
		return writeNotFound(c, "grid not found")
	}
	data, err := s.service.Encode(rec)
	if err != nil {
		return writeFailure(c, err)
	}
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, data)
}

func (s *Server) handleGradient(c *echo.Context) error {
	rec, ok := s.lookup(c)
	if !ok {
		return writeNotFound(c, "grid not found")
	}
	req, err := decodeJSON[BackwardRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	grads, err := s.service.Gradient(rec, &req)
	if err != nil {
		return writeFailure(c, err)
	}
	return c.JSON(http.StatusOK, GradientResponse{
		GridID:    rec.Response.ID,
		Object:    "grid.gradient",
		Gradients: toAtomVectors(grads),
	})
}

func (s *Server) handleRelevance(c *echo.Context) error {
	rec, ok := s.lookup(c)
	if !ok {
		return writeNotFound(c, "grid not found")
	}
	req, err := decodeJSON[BackwardRequest](c.Request().Body)
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	rel, err := s.service.Relevance(rec, &req)
	if err != nil {
		return writeFailure(c, err)
	}
	return c.JSON(http.StatusOK, RelevanceResponse{
		GridID:    rec.Response.ID,
		Object:    "grid.relevance",
		Relevance: rel,
	})
}

func (s *Server) handleTypeMap(c *echo.Context) error {
	var (
		m   *atomtypes.Map
		err error
	)
	switch c.Param("role") {
	case "receptor":
		m, err = atomtypes.DefaultReceptor(atomtypes.Smina)
	case "ligand":
		m, err = atomtypes.DefaultLigand(atomtypes.Smina)
	default:
		return writeNotFound(c, "unknown type map role")
	}
	if err != nil {
		return writeFailure(c, err)
	}
	return c.String(http.StatusOK, m.String())
}

func (s *Server) handleCacheStats(c *echo.Context) error {
	resp := CacheStatsResponse{Stored: s.store.Len()}
	if s.service != nil {
		st, enabled, err := s.service.CacheStats(c.Request().Context())
		if err != nil {
			return writeFailure(c, err)
		}
		resp.Enabled = enabled
		resp.Entries = st.Entries
		resp.Bytes = st.Bytes
		resp.Hits = st.Hits
	}
	return c.JSON(http.StatusOK, resp)
}
