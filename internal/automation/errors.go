package automation

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/stagehand/internal/applications"
	"github.com/JaimeStill/stagehand/internal/forms"
	"github.com/JaimeStill/stagehand/internal/reviewers"
	"github.com/JaimeStill/stagehand/internal/stages"
	"github.com/JaimeStill/stagehand/internal/workflows"
)

// Automation errors.
var (
	ErrInvalidCommand    = errors.New("invalid automation command")
	ErrUnknownStatus     = errors.New("stage has no such custom status")
	ErrStatusRequirement = errors.New("custom status requires a comment or score")
	ErrStageHidden       = errors.New("stage is not visible to this reviewer type")
	ErrRuleNotApplicable = errors.New("matched rule cannot be applied")
)

// MapHTTPStatus maps automation errors, and the domain errors automation
// passes through, to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidCommand), errors.Is(err, ErrStatusRequirement):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownStatus):
		return http.StatusNotFound
	case errors.Is(err, ErrStageHidden):
		return http.StatusForbidden
	case errors.Is(err, ErrRuleNotApplicable):
		return http.StatusUnprocessableEntity
	}

	for _, m := range []func(error) int{
		applications.MapHTTPStatus,
		stages.MapHTTPStatus,
		workflows.MapHTTPStatus,
		reviewers.MapHTTPStatus,
		forms.MapHTTPStatus,
	} {
		if code := m(err); code != http.StatusInternalServerError {
			return code
		}
	}
	return http.StatusInternalServerError
}
