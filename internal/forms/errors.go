package forms

import (
	"errors"
	"net/http"
)

// Domain errors for intake form operations.
var (
	ErrNotFound    = errors.New("intake form not found")
	ErrDuplicate   = errors.New("intake form already exists")
	ErrInvalidForm = errors.New("invalid intake form")
)

// MapHTTPStatus maps form domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidForm):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
