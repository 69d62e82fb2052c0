package applications

import (
	"errors"
	"net/http"
)

// Domain errors for application operations.
var (
	ErrNotFound           = errors.New("application not found")
	ErrDuplicate          = errors.New("application already exists")
	ErrConflict           = errors.New("application changed concurrently")
	ErrInvalidApplication = errors.New("workflow_id and applicant_name required")
	ErrInvalidLocation    = errors.New("application may reside in at most one stage or group")
	ErrLocationNotFound   = errors.New("workflow, stage or group not found")
	ErrNotInStage         = errors.New("application is not in a stage")
	ErrInvalidReview      = errors.New("reviewer_id and reviewer_type_id required")
)

// MapHTTPStatus maps application domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrLocationNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict), errors.Is(err, ErrNotInStage):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidApplication),
		errors.Is(err, ErrInvalidLocation),
		errors.Is(err, ErrInvalidReview):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
