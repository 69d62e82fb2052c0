package rules

import "errors"

var (
	ErrInvalidLogic        = errors.New("condition logic must be AND or OR")
	ErrInvalidOperator     = errors.New("unknown operator")
	ErrInvalidCondition    = errors.New("invalid condition")
	ErrInvalidTrigger      = errors.New("invalid trigger")
	ErrInvalidAction       = errors.New("invalid action")
	ErrMissingTarget       = errors.New("action target required")
	ErrMalformedRules      = errors.New("malformed rule set")
	ErrMalformedVisibility = errors.New("malformed visibility restriction")
	ErrInvalidColor        = errors.New("invalid color")
	ErrInvalidStatus       = errors.New("invalid custom status")
)

var invalid = []error{
	ErrInvalidLogic,
	ErrInvalidOperator,
	ErrInvalidCondition,
	ErrInvalidTrigger,
	ErrInvalidAction,
	ErrMissingTarget,
	ErrMalformedRules,
	ErrMalformedVisibility,
	ErrInvalidColor,
	ErrInvalidStatus,
}

// IsInvalid reports whether err stems from invalid rule, status, or
// visibility configuration supplied by a caller.
func IsInvalid(err error) bool {
	for _, target := range invalid {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
