package gridfile

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid grid file magic")
	ErrUnsupportedMajor = errors.New("unsupported grid file major version")
	ErrCorruptFile      = errors.New("corrupt grid file")
)
