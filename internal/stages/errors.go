package stages

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/stagehand/rules"
)

// Domain errors for stage operations.
var (
	ErrNotFound         = errors.New("stage not found")
	ErrDuplicate        = errors.New("stage name already exists in workflow")
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrWorkflowRequired = errors.New("workflow_id query parameter required")
	ErrStageOccupied    = errors.New("stage has applications; move them before removing it")
	ErrInvalidStage     = errors.New("stage requires a name, a known stage_type, and unique tag names")
	ErrInvalidTimeline  = errors.New("timeline must be an ordered window or a positive deadline_days, not both")
)

// MapHTTPStatus maps stage domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrWorkflowNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrStageOccupied):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidStage), errors.Is(err, ErrWorkflowRequired),
		errors.Is(err, ErrInvalidTimeline), rules.IsInvalid(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
