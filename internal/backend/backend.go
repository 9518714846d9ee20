// Package backend selects the execution substrate for grid construction.
package backend

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

const (
	CPU      = "cpu"
	Parallel = "parallel"
	CUDA     = "cuda"
	Auto     = "auto"
)

var (
	ErrUnknown     = errors.New("unknown backend")
	ErrUnavailable = errors.New("backend is not available in this build")
)

// Backend configures how the grid engines execute.
type Backend interface {
	Name() string
	Options() gridmaker.Options
}

func Normalize(name string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(name))
	if backend == "" {
		return Auto, nil
	}
	switch backend {
	case CPU, Parallel, CUDA, Auto:
		return backend, nil
	default:
		return "", fmt.Errorf("%w %q (expected auto, cpu, parallel, or cuda)", ErrUnknown, backend)
	}
}

// New returns the named backend. workers only applies to the parallel
// backend; values below one use GOMAXPROCS.
func New(name string, workers int) (Backend, error) {
	name, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	switch name {
	case CPU:
		return cpuBackend{}, nil
	case Parallel:
		return newParallel(workers), nil
	case CUDA:
		return nil, fmt.Errorf("%s: %w", CUDA, ErrUnavailable)
	default:
		if runtime.GOMAXPROCS(0) > 1 {
			return newParallel(workers), nil
		}
		return cpuBackend{}, nil
	}
}

// cpuBackend is the single-threaded reference path.
type cpuBackend struct{}

func (cpuBackend) Name() string               { return CPU }
func (cpuBackend) Options() gridmaker.Options { return gridmaker.Options{Workers: 1} }

// parallelBackend splits the forward pass into x slabs and the backward
// passes into atom chunks. Results match the cpu backend bit for bit.
type parallelBackend struct {
	workers int
}

func newParallel(workers int) parallelBackend {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return parallelBackend{workers: workers}
}

func (parallelBackend) Name() string { return Parallel }

func (b parallelBackend) Options() gridmaker.Options {
	return gridmaker.Options{Workers: b.workers}
}
