package rules

import (
	"encoding/json"
	"fmt"
	"slices"
)

// TriggerType is the event class that wakes a rule.
type TriggerType string

const (
	TriggerFieldChange    TriggerType = "field_change"
	TriggerScoreThreshold TriggerType = "score_threshold"
	TriggerReviewComplete TriggerType = "review_complete"
	TriggerAllReviewsDone TriggerType = "all_reviews_done"
	TriggerTimeElapsed    TriggerType = "time_elapsed"
	TriggerManualStatus   TriggerType = "manual_status"
	TriggerTagApplied     TriggerType = "tag_applied"
)

var triggerTypes = []TriggerType{
	TriggerFieldChange,
	TriggerScoreThreshold,
	TriggerReviewComplete,
	TriggerAllReviewsDone,
	TriggerTimeElapsed,
	TriggerManualStatus,
	TriggerTagApplied,
}

// TriggerTypes returns every known trigger type.
func TriggerTypes() []TriggerType {
	return triggerTypes
}

// ParseTriggerType validates s as a known trigger type.
func ParseTriggerType(s string) (TriggerType, error) {
	t := TriggerType(s)
	if !slices.Contains(triggerTypes, t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTrigger, s)
	}
	return t, nil
}

// TriggerConfig holds the optional filters of a trigger.
// Only the field matching the trigger type is consulted.
type TriggerConfig struct {
	Days   int    `json:"days,omitempty"`
	Field  string `json:"field,omitempty"`
	Tag    string `json:"tag,omitempty"`
	Status string `json:"status,omitempty"`
}

// Trigger selects the events a rule responds to.
// A zero Trigger responds to every event class.
type Trigger struct {
	Type   TriggerType   `json:"type"`
	Config TriggerConfig `json:"config,omitzero"`
}

// UnmarshalJSON accepts either an object or a bare trigger type string.
func (t *Trigger) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*t = Trigger{Type: TriggerType(name)}
		return nil
	}

	type alias Trigger
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = Trigger(a)
	return nil
}

// Any reports whether the trigger responds to every event class.
func (t Trigger) Any() bool {
	return t.Type == ""
}

// Validate checks the trigger type and its required configuration.
func (t Trigger) Validate() error {
	switch t.Type {
	case "":
		return nil
	case TriggerTimeElapsed:
		if t.Config.Days < 1 {
			return fmt.Errorf("%w: time_elapsed requires config.days >= 1", ErrInvalidTrigger)
		}
		return nil
	case TriggerFieldChange,
		TriggerScoreThreshold,
		TriggerReviewComplete,
		TriggerAllReviewsDone,
		TriggerManualStatus,
		TriggerTagApplied:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTrigger, t.Type)
	}
}
