package engine

import "errors"

var (
	ErrUnknownField    = errors.New("unknown field")
	ErrIllegalOperator = errors.New("operator not allowed for field type")
	ErrInvalidLogic    = errors.New("invalid condition logic")
	ErrTargetNotFound  = errors.New("action target not found")
	ErrInvalidAction   = errors.New("invalid action")
	ErrStageNotFound   = errors.New("stage not in pipeline")
	ErrDuplicateStage  = errors.New("stage already in pipeline")
)
