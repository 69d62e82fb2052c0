package blueprints

import "errors"

// Blueprint errors.
var (
	ErrEmpty            = errors.New("blueprint is empty")
	ErrInvalidBlueprint = errors.New("invalid blueprint")
	ErrDuplicateName    = errors.New("duplicate name in blueprint")
	ErrUnresolvedTarget = errors.New("rule target is not declared in blueprint")
)
