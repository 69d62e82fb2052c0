package applications

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/pkg/query"
	"github.com/JaimeStill/stagehand/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "applications", "a").
	Project("id", "ID").
	Project("workflow_id", "WorkflowID").
	Project("stage_id", "StageID").
	Project("group_id", "GroupID").
	Project("stage_group_id", "StageGroupID").
	Project("applicant_name", "ApplicantName").
	Project("applicant_email", "ApplicantEmail").
	Project("status", "Status").
	Project("tags", "Tags").
	Project("data", "Data").
	Project("stage_entered_at", "StageEnteredAt").
	Project("version", "Version").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var reviewProjection = query.
	NewProjectionMap("public", "reviews", "rv").
	Project("id", "ID").
	Project("application_id", "ApplicationID").
	Project("stage_id", "StageID").
	Project("reviewer_id", "ReviewerID").
	Project("reviewer_type_id", "ReviewerTypeID").
	Project("score", "Score").
	Project("comment", "Comment").
	Project("submitted_at", "SubmittedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

var residentSort = query.SortField{
	Field: "StageEnteredAt",
}

var reviewSort = query.SortField{
	Field: "SubmittedAt",
}

const returning = `RETURNING id, workflow_id, stage_id, group_id, stage_group_id,
	applicant_name, applicant_email, status, tags, data,
	stage_entered_at, version, created_at, updated_at`

const reviewReturning = `RETURNING id, application_id, stage_id, reviewer_id, reviewer_type_id, score, comment, submitted_at`

// Filters contains optional filtering criteria for application queries.
type Filters struct {
	WorkflowID   *uuid.UUID `json:"workflow_id,omitempty"`
	StageID      *uuid.UUID `json:"stage_id,omitempty"`
	GroupID      *uuid.UUID `json:"group_id,omitempty"`
	StageGroupID *uuid.UUID `json:"stage_group_id,omitempty"`
	Status       *string    `json:"status,omitempty"`
	Tag          *string    `json:"tag,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("WorkflowID", f.WorkflowID).
		WhereEquals("StageID", f.StageID).
		WhereEquals("GroupID", f.GroupID).
		WhereEquals("StageGroupID", f.StageGroupID).
		WhereEquals("Status", f.Status).
		WhereJSONContains("Tags", f.Tag)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// Malformed ids are ignored.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	f.WorkflowID = queryID(values, "workflow_id")
	f.StageID = queryID(values, "stage_id")
	f.GroupID = queryID(values, "group_id")
	f.StageGroupID = queryID(values, "stage_group_id")

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if t := values.Get("tag"); t != "" {
		f.Tag = &t
	}

	return f
}

func queryID(values url.Values, key string) *uuid.UUID {
	id, err := uuid.Parse(values.Get(key))
	if err != nil {
		return nil
	}
	return &id
}

func scanApplication(s repository.Scanner) (Application, error) {
	var (
		a          Application
		tags, data []byte
	)
	err := s.Scan(
		&a.ID,
		&a.WorkflowID,
		&a.StageID,
		&a.GroupID,
		&a.StageGroupID,
		&a.ApplicantName,
		&a.ApplicantEmail,
		&a.Status,
		&tags,
		&data,
		&a.StageEnteredAt,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return a, err
	}

	a.Tags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &a.Tags); err != nil {
			return a, fmt.Errorf("decode tags: %w", err)
		}
	}

	a.Data = map[string]any{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &a.Data); err != nil {
			return a, fmt.Errorf("decode data: %w", err)
		}
	}
	return a, nil
}

func scanReview(s repository.Scanner) (Review, error) {
	var r Review
	err := s.Scan(
		&r.ID,
		&r.ApplicationID,
		&r.StageID,
		&r.ReviewerID,
		&r.ReviewerTypeID,
		&r.Score,
		&r.Comment,
		&r.SubmittedAt,
	)
	return r, err
}

func encode(a Application) (tags, data string, err error) {
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Data == nil {
		a.Data = map[string]any{}
	}

	t, err := json.Marshal(a.Tags)
	if err != nil {
		return "", "", fmt.Errorf("encode tags: %w", err)
	}
	d, err := json.Marshal(a.Data)
	if err != nil {
		return "", "", fmt.Errorf("encode data: %w", err)
	}
	return string(t), string(d), nil
}
