package groups

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/stagehand/rules"
)

// Domain errors for group operations.
var (
	ErrNotFound       = errors.New("group not found")
	ErrDuplicate      = errors.New("group name already exists")
	ErrSystemGroup    = errors.New("system groups cannot be deleted")
	ErrOccupied       = errors.New("group holds applications")
	ErrInvalidGroup   = errors.New("group name required")
	ErrParentNotFound = errors.New("workflow or stage not found")
	ErrParentRequired = errors.New("workflow_id or stage_id query parameter required")
)

// MapHTTPStatus maps group domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrParentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrOccupied):
		return http.StatusConflict
	case errors.Is(err, ErrSystemGroup):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidGroup), errors.Is(err, ErrParentRequired), rules.IsInvalid(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
