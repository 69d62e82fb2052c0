// Package stages implements the ordered stage pipeline of a workflow:
// stage configuration, automation rule storage, and visibility restrictions.
// Every pipeline mutation renumbers all sibling stages to 0..N-1 inside one
// transaction.
package stages

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/rules"
)

// StageType classifies what happens to applications in a stage.
type StageType string

const (
	TypeReview     StageType = "review"
	TypeProcessing StageType = "processing"
	TypeDecision   StageType = "decision"
)

// Valid reports whether t is a known stage type.
func (t StageType) Valid() bool {
	switch t {
	case TypeReview, TypeProcessing, TypeDecision:
		return true
	default:
		return false
	}
}

// Timeline is either an absolute window or a deadline relative to when an
// application entered the stage.
type Timeline struct {
	StartAt      *time.Time `json:"start_at,omitempty"`
	EndAt        *time.Time `json:"end_at,omitempty"`
	DeadlineDays *int       `json:"deadline_days,omitempty"`
}

// Validate rejects mixed or inverted timelines.
func (t Timeline) Validate() error {
	if t.DeadlineDays != nil {
		if *t.DeadlineDays < 1 || t.StartAt != nil || t.EndAt != nil {
			return ErrInvalidTimeline
		}
		return nil
	}
	if t.StartAt != nil && t.EndAt != nil && !t.EndAt.After(*t.StartAt) {
		return ErrInvalidTimeline
	}
	return nil
}

// Due returns when an application that entered the stage at entered is due,
// or nil when the stage has no end.
func (t Timeline) Due(entered time.Time) *time.Time {
	if t.DeadlineDays != nil {
		due := entered.AddDate(0, 0, *t.DeadlineDays)
		return &due
	}
	return t.EndAt
}

// Stage is one step of a workflow pipeline.
type Stage struct {
	ID              uuid.UUID            `json:"id"`
	WorkflowID      uuid.UUID            `json:"workflow_id"`
	OrderIndex      int                  `json:"order_index"`
	Name            string               `json:"name"`
	StageType       StageType            `json:"stage_type"`
	Color           rules.Color          `json:"color"`
	CustomStatuses  []rules.CustomStatus `json:"custom_statuses"`
	CustomTags      []rules.TagOption    `json:"custom_tags"`
	HidePII         bool                 `json:"hide_pii"`
	HiddenPIIFields []string             `json:"hidden_pii_fields"`
	LogicRules      string               `json:"logic_rules"`
	VisibilityRule  string               `json:"visibility_rule"`
	Timeline        Timeline             `json:"timeline"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// Privacy returns the stage's PII redaction setting.
func (s Stage) Privacy() engine.StagePrivacy {
	return engine.StagePrivacy{
		HidePII:         s.HidePII,
		HiddenPIIFields: s.HiddenPIIFields,
	}
}

// Rules decodes the stage's stored rule set in either wire format.
func (s Stage) Rules() ([]rules.Rule, error) {
	return rules.Decode(s.LogicRules)
}

// VisibleTo reports whether reviewers of the named type may see the stage.
func (s Stage) VisibleTo(reviewerType string) bool {
	return engine.CanViewStageRule(s.VisibilityRule, reviewerType)
}

// Status looks up one of the stage's custom statuses by name.
func (s Stage) Status(name string) (rules.CustomStatus, bool) {
	return rules.FindStatus(s.CustomStatuses, name)
}

// Settings is the editable configuration shared by create and update.
type Settings struct {
	Name            string               `json:"name"`
	StageType       StageType            `json:"stage_type"`
	Color           rules.Color          `json:"color"`
	CustomStatuses  []rules.CustomStatus `json:"custom_statuses"`
	CustomTags      []rules.TagOption    `json:"custom_tags"`
	HidePII         bool                 `json:"hide_pii"`
	HiddenPIIFields []string             `json:"hidden_pii_fields"`
	Timeline        Timeline             `json:"timeline"`
}

// Normalize fills defaults for omitted values.
func (s *Settings) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	if s.StageType == "" {
		s.StageType = TypeReview
	}
	if s.Color == "" {
		s.Color = "gray"
	}
	if s.CustomStatuses == nil {
		s.CustomStatuses = []rules.CustomStatus{}
	}
	if s.CustomTags == nil {
		s.CustomTags = []rules.TagOption{}
	}
	if s.HiddenPIIFields == nil {
		s.HiddenPIIFields = []string{}
	}
}

// Validate checks the settings after normalization.
func (s Settings) Validate() error {
	if s.Name == "" || !s.StageType.Valid() {
		return ErrInvalidStage
	}
	if _, err := rules.ParseColor(string(s.Color)); err != nil {
		return err
	}
	if err := rules.ValidateStatuses(s.CustomStatuses); err != nil {
		return err
	}
	seen := make([]string, 0, len(s.CustomTags))
	for _, t := range s.CustomTags {
		if t.Name == "" || slices.Contains(seen, t.Name) {
			return ErrInvalidStage
		}
		seen = append(seen, t.Name)
	}
	return s.Timeline.Validate()
}

// CreateCommand inserts a stage into a workflow pipeline. A nil Position appends.
type CreateCommand struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
	Position   *int      `json:"position"`
	Settings
}

// UpdateCommand replaces a stage's editable configuration.
type UpdateCommand struct {
	Settings
}

// ReorderCommand moves a stage to a new 0-based position.
type ReorderCommand struct {
	Position int `json:"position"`
}

// VisibilityCommand restricts a stage to the named reviewer types.
// An empty list removes the restriction.
type VisibilityCommand struct {
	ReviewerTypes []string `json:"reviewer_types"`
}
