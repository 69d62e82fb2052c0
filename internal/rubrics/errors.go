package rubrics

import (
	"errors"
	"net/http"
)

// Domain errors for rubric operations.
var (
	ErrNotFound      = errors.New("rubric not found")
	ErrDuplicate     = errors.New("rubric name already exists")
	ErrInvalidRubric = errors.New("invalid rubric")
	ErrInvalidType   = errors.New("invalid rubric type")
	ErrInvalidBands  = errors.New("invalid score bands")
)

// MapHTTPStatus maps rubric domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRubric),
		errors.Is(err, ErrInvalidType),
		errors.Is(err, ErrInvalidBands):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
