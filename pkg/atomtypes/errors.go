package atomtypes

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownType reports a name the vocabulary does not define.
	ErrUnknownType = errors.New("unknown atom type")
	// ErrMapFile reports a map file that could not be read.
	ErrMapFile = errors.New("cannot read atom type map")
)

// UnknownTypeError locates an unknown name in a map source.
type UnknownTypeError struct {
	Name string
	Line int
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("line %d: %s %q", e.Line, ErrUnknownType, e.Name)
}

func (e *UnknownTypeError) Unwrap() error { return ErrUnknownType }
