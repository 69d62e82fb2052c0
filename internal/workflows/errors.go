package workflows

import (
	"errors"
	"net/http"
)

// Domain errors for workflow operations.
var (
	ErrNotFound        = errors.New("workflow not found")
	ErrDuplicate       = errors.New("workflow name already exists")
	ErrInUse           = errors.New("workflow has applications; deactivate it instead")
	ErrInvalidWorkflow = errors.New("workflow name and application_type are required")
)

// MapHTTPStatus maps workflow domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInUse):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidWorkflow):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
