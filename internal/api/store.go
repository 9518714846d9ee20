package api

import (
	"sync"

	"gonum.org/v1/gonum/num/quat"

	"github.com/samcharles93/molgrid/internal/engine"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

// gridRecord keeps what the backward passes need: the engine with its
// centre, the flattened atoms, the rotation and the forward grid.
type gridRecord struct {
	Response GridResponse
	engine   *engine.Engine
	atoms    []gridmaker.AtomInfo
	chans    []int
	rotation quat.Number
	grid     []float32
	mu       sync.Mutex
}

// GridStore holds recent grids in memory. The oldest entry is evicted once
// the limit is reached.
type GridStore struct {
	mu    sync.Mutex
	limit int
	order []string
	grids map[string]*gridRecord
}

// DefaultStoreLimit bounds the number of grids a server keeps.
const DefaultStoreLimit = 64

func NewGridStore(limit int) *GridStore {
	if limit < 1 {
		limit = DefaultStoreLimit
	}
	return &GridStore{
		limit: limit,
		grids: make(map[string]*gridRecord),
	}
}

func (s *GridStore) Put(rec *gridRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.order) >= s.limit {
		delete(s.grids, s.order[0])
		s.order = s.order[1:]
	}
	s.grids[rec.Response.ID] = rec
	s.order = append(s.order, rec.Response.ID)
}

func (s *GridStore) Get(id string) (*gridRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.grids[id]
	return rec, ok
}

func (s *GridStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.grids[id]; !ok {
		return false
	}
	delete(s.grids, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *GridStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.grids)
}
