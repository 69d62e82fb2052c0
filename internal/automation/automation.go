// Package automation hosts the rule engine. It turns application mutations
// into engine events, evaluates the rules of the application's current
// stage, applies the matched actions and persists the result under an
// optimistic version check, reloading and re-evaluating when a concurrent
// write wins. Email actions are delivered only after the state is saved.
package automation

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/internal/applications"
	"github.com/JaimeStill/stagehand/rules"
)

// Outcome reports what one evaluation did to an application.
type Outcome struct {
	Application *applications.Application `json:"application"`
	Event       *engine.Event             `json:"event,omitempty"`
	Matched     bool                      `json:"matched"`
	StageID     string                    `json:"stage_id,omitempty"`
	RuleID      string                    `json:"rule_id,omitempty"`
	RuleName    string                    `json:"rule_name,omitempty"`
	Actions     []rules.Action            `json:"actions,omitempty"`
	Emails      []engine.EmailRequest     `json:"emails,omitempty"`
	Failures    []engine.Failure          `json:"failures,omitempty"`
	Attempts    int                       `json:"attempts"`
}

// Access is what one reviewer type may see of an application in its
// current stage.
type Access struct {
	ApplicationID  uuid.UUID          `json:"application_id"`
	StageID        uuid.UUID          `json:"stage_id"`
	ReviewerTypeID uuid.UUID          `json:"reviewer_type_id"`
	VisibleFields  []string           `json:"visible_fields"`
	Data           map[string]any     `json:"data"`
	Prior          engine.PriorAccess `json:"prior"`
}

// StatusCommand sets an application's status and raises manual_status.
type StatusCommand struct {
	Status string `json:"status"`
}

func (c StatusCommand) Validate() error {
	if strings.TrimSpace(c.Status) == "" {
		return ErrInvalidCommand
	}
	return nil
}

// TagCommand adds one tag and raises tag_applied.
type TagCommand struct {
	Tag string `json:"tag"`
}

func (c TagCommand) Validate() error {
	if strings.TrimSpace(c.Tag) == "" {
		return ErrInvalidCommand
	}
	return nil
}

// DataCommand merges intake values into the application data. A null value
// removes the field. Every changed field raises field_change.
type DataCommand struct {
	Data map[string]any `json:"data"`
}

func (c DataCommand) Validate() error {
	if len(c.Data) == 0 {
		return ErrInvalidCommand
	}
	for k := range c.Data {
		if strings.TrimSpace(k) == "" {
			return ErrInvalidCommand
		}
	}
	return nil
}

// InvokeCommand runs a custom status of the application's current stage.
// Review carries the comment or score a status may require; when present
// it is stored as the invoking reviewer's review.
type InvokeCommand struct {
	Name   string                      `json:"name"`
	Review *applications.ReviewCommand `json:"review,omitempty"`
}

// Check validates the command against the status it invokes.
func (c InvokeCommand) Check(s rules.CustomStatus) error {
	if s.RequiresComment && (c.Review == nil || strings.TrimSpace(c.Review.Comment) == "") {
		return ErrStatusRequirement
	}
	if s.RequiresScore && (c.Review == nil || c.Review.Score == nil) {
		return ErrStatusRequirement
	}
	if c.Review != nil {
		return c.Review.Validate()
	}
	return nil
}

// System defines the public contract of the automation host.
type System interface {
	Handler() *Handler

	// Handle evaluates the current stage's rules against event without
	// changing the application first. The scheduler drives time_elapsed here.
	Handle(ctx context.Context, id uuid.UUID, event engine.Event) (*Outcome, error)
	SetStatus(ctx context.Context, id uuid.UUID, cmd StatusCommand) (*Outcome, error)
	ApplyTag(ctx context.Context, id uuid.UUID, cmd TagCommand) (*Outcome, error)
	UpdateData(ctx context.Context, id uuid.UUID, cmd DataCommand) (*Outcome, error)
	// SubmitReview stores a review, then raises review_complete,
	// score_threshold and all_reviews_done in that order. The first event
	// whose rule matches wins.
	SubmitReview(ctx context.Context, id uuid.UUID, cmd applications.ReviewCommand) (*Outcome, error)
	InvokeStatus(ctx context.Context, id uuid.UUID, cmd InvokeCommand) (*Outcome, error)
	// Preview reports what Handle would do without writing or sending anything.
	Preview(ctx context.Context, id uuid.UUID, event engine.Event) (*Outcome, error)

	Access(ctx context.Context, id, reviewerTypeID uuid.UUID) (*Access, error)
	// Audit lists the rules of a stage that can never fire or whose move
	// targets no longer exist.
	Audit(ctx context.Context, stageID uuid.UUID) ([]engine.RuleIssue, error)
	// Fields returns the field catalog rules of a workflow are written against.
	Fields(ctx context.Context, workflowID uuid.UUID) (*engine.FieldCatalog, error)
}
