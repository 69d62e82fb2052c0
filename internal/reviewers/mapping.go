package reviewers

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/stagehand/pkg/query"
	"github.com/JaimeStill/stagehand/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "reviewer_types", "rt").
	Project("id", "ID").
	Project("workspace_id", "WorkspaceID").
	Project("name", "Name").
	Project("can_edit_score", "CanEditScore").
	Project("can_edit_status", "CanEditStatus").
	Project("can_comment_only", "CanCommentOnly").
	Project("can_tag", "CanTag").
	Project("created_at", "CreatedAt")

var configProjection = query.
	NewProjectionMap("public", "stage_reviewer_configs", "rc").
	Project("stage_id", "StageID").
	Project("reviewer_type_id", "ReviewerTypeID").
	Project("rubric_id", "RubricID").
	Project("min_reviews_required", "MinReviewsRequired").
	Project("can_view_prior_scores", "CanViewPriorScores").
	Project("can_view_prior_comments", "CanViewPriorComments").
	Project("field_visibility_config", "FieldVisibility").
	Join("public", "reviewer_types", "rt", "JOIN", "rt.id = rc.reviewer_type_id").
	Project("name", "ReviewerTypeName")

var defaultSort = query.SortField{
	Field: "Name",
}

var configSort = query.SortField{
	Field: "ReviewerTypeName",
}

const returning = `RETURNING id, workspace_id, name, can_edit_score, can_edit_status, can_comment_only, can_tag, created_at`

// Filters contains optional filtering criteria for reviewer type queries.
type Filters struct {
	Name        *string `json:"name,omitempty"`
	WorkspaceID *string `json:"workspace_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("Name", f.Name).
		WhereEquals("WorkspaceID", f.WorkspaceID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	if ws, ok := values["workspace_id"]; ok && len(ws) > 0 {
		f.WorkspaceID = &ws[0]
	}

	return f
}

func scanReviewerType(s repository.Scanner) (ReviewerType, error) {
	var rt ReviewerType
	err := s.Scan(
		&rt.ID,
		&rt.WorkspaceID,
		&rt.Name,
		&rt.CanEditScore,
		&rt.CanEditStatus,
		&rt.CanCommentOnly,
		&rt.CanTag,
		&rt.CreatedAt,
	)
	return rt, err
}

func scanStageConfig(s repository.Scanner) (StageConfig, error) {
	var (
		c          StageConfig
		visibility []byte
	)
	err := s.Scan(
		&c.StageID,
		&c.ReviewerTypeID,
		&c.RubricID,
		&c.MinReviewsRequired,
		&c.CanViewPriorScores,
		&c.CanViewPriorComments,
		&visibility,
		&c.ReviewerTypeName,
	)
	if err != nil {
		return c, err
	}

	c.FieldVisibility = map[string]bool{}
	if len(visibility) > 0 {
		if err := json.Unmarshal(visibility, &c.FieldVisibility); err != nil {
			return c, fmt.Errorf("decode field visibility: %w", err)
		}
	}
	return c, nil
}
