// Package reviewers implements reviewer types and their per-stage
// assignment configuration.
package reviewers

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/engine"
)

// ReviewerType is a named reviewer role with default permissions.
type ReviewerType struct {
	ID          uuid.UUID `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Name        string    `json:"name"`
	Permissions
	CreatedAt time.Time `json:"created_at"`
}

// Permissions are the default capabilities of a reviewer type.
// CanCommentOnly excludes CanEditScore.
type Permissions struct {
	CanEditScore   bool `json:"can_edit_score"`
	CanEditStatus  bool `json:"can_edit_status"`
	CanCommentOnly bool `json:"can_comment_only"`
	CanTag         bool `json:"can_tag"`
}

// Validate reports conflicting permission flags.
func (p Permissions) Validate() error {
	if p.CanCommentOnly && p.CanEditScore {
		return ErrPermissionConflict
	}
	return nil
}

// Command carries the data to create or update a reviewer type.
// WorkspaceID is ignored on update.
type Command struct {
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	Permissions
}

// Validate checks the name and permission flags.
func (c Command) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrInvalidReviewerType
	}
	return c.Permissions.Validate()
}

// StageConfig is the configuration of one reviewer type within one stage.
type StageConfig struct {
	StageID              uuid.UUID       `json:"stage_id"`
	ReviewerTypeID       uuid.UUID       `json:"reviewer_type_id"`
	ReviewerTypeName     string          `json:"reviewer_type_name"`
	RubricID             *uuid.UUID      `json:"rubric_id"`
	MinReviewsRequired   int             `json:"min_reviews_required"`
	CanViewPriorScores   bool            `json:"can_view_prior_scores"`
	CanViewPriorComments bool            `json:"can_view_prior_comments"`
	FieldVisibility      map[string]bool `json:"field_visibility_config"`
}

// Engine converts the stored config into its evaluation form.
func (c StageConfig) Engine() engine.ReviewerConfig {
	return engine.ReviewerConfig{
		ReviewerTypeID:       c.ReviewerTypeID.String(),
		MinReviewsRequired:   c.MinReviewsRequired,
		CanViewPriorScores:   c.CanViewPriorScores,
		CanViewPriorComments: c.CanViewPriorComments,
		FieldVisibility:      c.FieldVisibility,
	}
}

// EngineConfigs converts a stage's configs for evaluation.
func EngineConfigs(configs []StageConfig) []engine.ReviewerConfig {
	out := make([]engine.ReviewerConfig, len(configs))
	for i, c := range configs {
		out[i] = c.Engine()
	}
	return out
}

// ConfigCommand carries the data to assign a reviewer type to a stage.
// A nil RubricID falls back to the workflow default rubric.
type ConfigCommand struct {
	RubricID             *uuid.UUID      `json:"rubric_id"`
	MinReviewsRequired   int             `json:"min_reviews_required"`
	CanViewPriorScores   bool            `json:"can_view_prior_scores"`
	CanViewPriorComments bool            `json:"can_view_prior_comments"`
	FieldVisibility      map[string]bool `json:"field_visibility_config"`
}

// Normalize defaults the minimum to one review and the visibility map to empty.
func (c *ConfigCommand) Normalize() {
	if c.MinReviewsRequired == 0 {
		c.MinReviewsRequired = 1
	}
	if c.FieldVisibility == nil {
		c.FieldVisibility = map[string]bool{}
	}
}

// Validate rejects a non-positive review minimum.
func (c ConfigCommand) Validate() error {
	if c.MinReviewsRequired < 1 {
		return ErrInvalidConfig
	}
	return nil
}
