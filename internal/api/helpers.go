package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/samcharles93/molgrid/pkg/gridmaker"
)

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, "", "")
}

func writeNotFound(c *echo.Context, msg string) error {
	return writeError(c, http.StatusNotFound, "not_found_error", msg, "", "")
}

func writeError(c *echo.Context, status int, errType, msg, param, code string) error {
	return c.JSON(status, map[string]any{
		"error": ResponseError{
			Message: msg,
			Type:    errType,
			Code:    code,
			Param:   param,
		},
	})
}

// writeFailure maps err onto a status and error body.
func writeFailure(c *echo.Context, err error) error {
	switch status := statusFor(err); status {
	case http.StatusBadRequest:
		return writeBadRequest(c, err.Error())
	case http.StatusNotFound:
		return writeNotFound(c, err.Error())
	default:
		return writeError(c, status, "server_error", err.Error(), "", "")
	}
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return out, newInvalidRequest("request body is empty")
		}
		return out, newInvalidRequest(err.Error())
	}
	return out, nil
}

func newGridID() string {
	return "grid_" + uuid.NewString()
}

func toAtomVectors(in []gridmaker.Vec3) []AtomVector {
	out := make([]AtomVector, len(in))
	for i, v := range in {
		out[i] = AtomVector{X: v.X, Y: v.Y, Z: v.Z}
	}
	return out
}
