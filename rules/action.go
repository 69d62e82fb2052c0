package rules

import (
	"fmt"
	"slices"
)

// ActionType discriminates the Action variants.
type ActionType string

const (
	ActionMoveToStage      ActionType = "move_to_stage"
	ActionMoveToGroup      ActionType = "move_to_group"
	ActionMoveToStageGroup ActionType = "move_to_stage_group"
	ActionAddTags          ActionType = "add_tags"
	ActionRemoveTags       ActionType = "remove_tags"
	ActionSendEmail        ActionType = "send_email"
)

var actionTypes = []ActionType{
	ActionMoveToStage,
	ActionMoveToGroup,
	ActionMoveToStageGroup,
	ActionAddTags,
	ActionRemoveTags,
	ActionSendEmail,
}

// ActionTypes returns every known action type.
func ActionTypes() []ActionType {
	return actionTypes
}

// Known reports whether t is a recognized action type.
func (t ActionType) Known() bool {
	return slices.Contains(actionTypes, t)
}

// Email describes a notification produced by a send_email action.
// Template is either a registered template name or an inline template body.
type Email struct {
	Template   string   `json:"template,omitempty"`
	Subject    string   `json:"subject,omitempty"`
	Recipients []string `json:"recipients,omitempty"`
}

// Action is one step of a rule or custom status.
type Action struct {
	Type               ActionType `json:"action_type"`
	TargetStageID      string     `json:"target_stage_id,omitempty"`
	TargetGroupID      string     `json:"target_group_id,omitempty"`
	TargetStageGroupID string     `json:"target_stage_group_id,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	Email              *Email     `json:"email,omitempty"`
}

// MoveToStage builds a move_to_stage action.
func MoveToStage(ref string) Action {
	return Action{Type: ActionMoveToStage, TargetStageID: ref}
}

// MoveToGroup builds a move_to_group action.
func MoveToGroup(ref string) Action {
	return Action{Type: ActionMoveToGroup, TargetGroupID: ref}
}

// MoveToStageGroup builds a move_to_stage_group action.
func MoveToStageGroup(ref string) Action {
	return Action{Type: ActionMoveToStageGroup, TargetStageGroupID: ref}
}

// AddTags builds an add_tags action.
func AddTags(tags ...string) Action {
	return Action{Type: ActionAddTags, Tags: tags}
}

// RemoveTags builds a remove_tags action.
func RemoveTags(tags ...string) Action {
	return Action{Type: ActionRemoveTags, Tags: tags}
}

// SendEmail builds a send_email action.
func SendEmail(email Email) Action {
	return Action{Type: ActionSendEmail, Email: &email}
}

// Target returns the location reference of a move action, or "" for other variants.
func (a Action) Target() string {
	switch a.Type {
	case ActionMoveToStage:
		return a.TargetStageID
	case ActionMoveToGroup:
		return a.TargetGroupID
	case ActionMoveToStageGroup:
		return a.TargetStageGroupID
	default:
		return ""
	}
}

// Moves reports whether the action changes the application location.
func (a Action) Moves() bool {
	switch a.Type {
	case ActionMoveToStage, ActionMoveToGroup, ActionMoveToStageGroup:
		return true
	default:
		return false
	}
}

// Validate checks that the variant carries its required target.
func (a Action) Validate() error {
	switch a.Type {
	case ActionMoveToStage:
		if a.TargetStageID == "" {
			return fmt.Errorf("%w: move_to_stage requires target_stage_id", ErrMissingTarget)
		}
	case ActionMoveToGroup:
		if a.TargetGroupID == "" {
			return fmt.Errorf("%w: move_to_group requires target_group_id", ErrMissingTarget)
		}
	case ActionMoveToStageGroup:
		if a.TargetStageGroupID == "" {
			return fmt.Errorf("%w: move_to_stage_group requires target_stage_group_id", ErrMissingTarget)
		}
	case ActionAddTags, ActionRemoveTags:
		if len(a.Tags) == 0 {
			return fmt.Errorf("%w: %s requires tags", ErrMissingTarget, a.Type)
		}
	case ActionSendEmail:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, a.Type)
	}
	return nil
}
