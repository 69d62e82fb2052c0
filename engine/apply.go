package engine

import (
	"fmt"
	"slices"

	"github.com/JaimeStill/stagehand/rules"
)

// Location is where an application resides. At most one field is set;
// a zero Location means the application is unplaced.
type Location struct {
	StageID      string `json:"stage_id,omitempty"`
	GroupID      string `json:"group_id,omitempty"`
	StageGroupID string `json:"stage_group_id,omitempty"`
}

// Valid reports whether at most one location field is set.
func (l Location) Valid() bool {
	n := 0
	for _, id := range []string{l.StageID, l.GroupID, l.StageGroupID} {
		if id != "" {
			n++
		}
	}
	return n <= 1
}

// State is the mutable part of an application the executor works on.
type State struct {
	WorkflowID string   `json:"workflow_id"`
	Location   Location `json:"location"`
	Status     string   `json:"status"`
	Tags       []string `json:"tags"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	s.Tags = slices.Clone(s.Tags)
	return s
}

// Equal reports whether two states hold the same location, status and tags.
func (s State) Equal(o State) bool {
	return s.WorkflowID == o.WorkflowID &&
		s.Location == o.Location &&
		s.Status == o.Status &&
		slices.Equal(s.Tags, o.Tags)
}

// Target is a resolvable move destination.
type Target struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Targets is the snapshot of move destinations for one workflow.
type Targets struct {
	Stages      []Target `json:"stages"`
	Groups      []Target `json:"groups"`
	StageGroups []Target `json:"stage_groups"`
}

// Resolve looks up a move action's target by id, then by name.
func (t Targets) Resolve(a rules.Action) (Target, bool) {
	var pool []Target
	switch a.Type {
	case rules.ActionMoveToStage:
		pool = t.Stages
	case rules.ActionMoveToGroup:
		pool = t.Groups
	case rules.ActionMoveToStageGroup:
		pool = t.StageGroups
	default:
		return Target{}, false
	}
	return find(pool, a.Target())
}

func find(pool []Target, ref string) (Target, bool) {
	if ref == "" {
		return Target{}, false
	}
	if i := slices.IndexFunc(pool, func(t Target) bool { return t.ID == ref }); i >= 0 {
		return pool[i], true
	}
	if i := slices.IndexFunc(pool, func(t Target) bool { return t.Name == ref }); i >= 0 {
		return pool[i], true
	}
	return Target{}, false
}

// EmailRequest is a notification the caller must deliver.
type EmailRequest struct {
	Template   string   `json:"template"`
	Subject    string   `json:"subject"`
	Recipients []string `json:"recipients,omitempty"`
}

// Failure records an action that did not complete. Earlier state changes
// in the same action list are kept.
type Failure struct {
	Action rules.ActionType `json:"action"`
	Error  string           `json:"error"`
}

// Result is the outcome of applying an action list.
type Result struct {
	State    State          `json:"state"`
	Emails   []EmailRequest `json:"emails,omitempty"`
	Failures []Failure      `json:"failures,omitempty"`
}

// Fail records a failed action on the result.
func (r *Result) Fail(action rules.ActionType, err error) {
	r.Failures = append(r.Failures, Failure{Action: action, Error: err.Error()})
}

// Apply runs actions in order against a working copy of state. Each action
// sees the effects of the ones before it. Moves set one location kind and
// clear the other two; moving to the current location changes nothing.
// Tag actions are ordered set union and difference. Email actions are
// returned as requests and leave the state untouched.
//
// A move whose target cannot be resolved aborts the whole list with
// ErrTargetNotFound; the input state is never modified.
func Apply(actions []rules.Action, state State, targets Targets) (*Result, error) {
	result := &Result{State: state.Clone()}

	for i, a := range actions {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%w: action %d: %v", ErrInvalidAction, i, err)
		}

		switch a.Type {
		case rules.ActionMoveToStage, rules.ActionMoveToGroup, rules.ActionMoveToStageGroup:
			t, ok := targets.Resolve(a)
			if !ok {
				return nil, fmt.Errorf("%w: %s %q", ErrTargetNotFound, a.Type, a.Target())
			}
			result.State.Location = relocate(a.Type, t.ID)
		case rules.ActionAddTags:
			result.State.Tags = union(result.State.Tags, a.Tags)
		case rules.ActionRemoveTags:
			result.State.Tags = difference(result.State.Tags, a.Tags)
		case rules.ActionSendEmail:
			result.Emails = append(result.Emails, emailRequest(a.Email))
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidAction, a.Type)
		}
	}

	return result, nil
}

// ApplyStatus sets the application status to the custom status name and
// then applies its actions.
func ApplyStatus(status rules.CustomStatus, state State, targets Targets) (*Result, error) {
	next := state.Clone()
	next.Status = status.Name
	return Apply(status.Actions, next, targets)
}

func relocate(kind rules.ActionType, id string) Location {
	switch kind {
	case rules.ActionMoveToStage:
		return Location{StageID: id}
	case rules.ActionMoveToGroup:
		return Location{GroupID: id}
	default:
		return Location{StageGroupID: id}
	}
}

func union(tags, add []string) []string {
	for _, t := range add {
		if t != "" && !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	return tags
}

func difference(tags, remove []string) []string {
	if len(tags) == 0 {
		return tags
	}
	return slices.DeleteFunc(tags, func(t string) bool {
		return slices.Contains(remove, t)
	})
}

func emailRequest(e *rules.Email) EmailRequest {
	if e == nil {
		return EmailRequest{}
	}
	return EmailRequest{
		Template:   e.Template,
		Subject:    e.Subject,
		Recipients: slices.Clone(e.Recipients),
	}
}
