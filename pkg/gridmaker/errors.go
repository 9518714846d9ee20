package gridmaker

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig reports an unusable grid configuration.
	ErrConfig = errors.New("gridmaker: invalid configuration")
	// ErrShapeMismatch reports a caller buffer that does not match the engine.
	ErrShapeMismatch = errors.New("gridmaker: buffer shape mismatch")
	// ErrDegenerateGeometry reports atoms for which the density is undefined.
	ErrDegenerateGeometry = errors.New("gridmaker: degenerate atom geometry")
)

// ShapeError describes a buffer whose length disagrees with the engine.
type ShapeError struct {
	Buffer string
	Got    int
	Want   int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("gridmaker: %s has length %d, want %d", e.Buffer, e.Got, e.Want)
}

func (e *ShapeError) Unwrap() error {
	return ErrShapeMismatch
}

// GeometryError identifies the atom that made a pass undefined.
type GeometryError struct {
	Atom   int
	Reason string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("gridmaker: atom %d: %s", e.Atom, e.Reason)
}

func (e *GeometryError) Unwrap() error {
	return ErrDegenerateGeometry
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfig}, args...)...)
}

func checkLen(buffer string, got, want int) error {
	if got != want {
		return &ShapeError{Buffer: buffer, Got: got, Want: want}
	}
	return nil
}
