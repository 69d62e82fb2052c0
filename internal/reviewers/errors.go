package reviewers

import (
	"errors"
	"net/http"
)

// Domain errors for reviewer operations.
var (
	ErrNotFound            = errors.New("reviewer type not found")
	ErrDuplicate           = errors.New("reviewer type name already exists")
	ErrInUse               = errors.New("reviewer type is assigned or has reviews")
	ErrInvalidReviewerType = errors.New("reviewer type name required")
	ErrPermissionConflict  = errors.New("comment-only reviewers cannot edit scores")
	ErrConfigNotFound      = errors.New("stage reviewer config not found")
	ErrInvalidConfig       = errors.New("min_reviews_required must be at least 1")
	ErrParentNotFound      = errors.New("stage, reviewer type or rubric not found")
)

// MapHTTPStatus maps reviewer domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConfigNotFound),
		errors.Is(err, ErrParentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInUse):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidReviewerType),
		errors.Is(err, ErrPermissionConflict),
		errors.Is(err, ErrInvalidConfig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
