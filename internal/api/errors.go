package api

import (
	"errors"
	"net/http"

	"github.com/samcharles93/molgrid/internal/backend"
	"github.com/samcharles93/molgrid/internal/molio"
	"github.com/samcharles93/molgrid/pkg/atomtypes"
	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrNotFound       = errors.New("not_found")
)

type invalidRequestError struct {
	msg string
}

func (e invalidRequestError) Error() string {
	return e.msg
}

func (e invalidRequestError) Unwrap() error {
	return ErrInvalidRequest
}

func newInvalidRequest(msg string) error {
	return invalidRequestError{msg: msg}
}

// clientError reports whether err was caused by the request rather than
// the server.
func clientError(err error) bool {
	for _, target := range []error{
		ErrInvalidRequest,
		gridmaker.ErrConfig,
		gridmaker.ErrShapeMismatch,
		gridmaker.ErrDegenerateGeometry,
		atomtypes.ErrUnknownType,
		molio.ErrEmpty,
		backend.ErrUnknown,
		backend.ErrUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case clientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
