// Package applications stores submitted applications, their pipeline
// location and the reviews left on them. Writes use an optimistic version
// check so concurrent automation never overwrites a newer state.
package applications

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/engine"
)

// Application is a submitted application and its current pipeline state.
// At most one of StageID, GroupID and StageGroupID is set.
type Application struct {
	ID             uuid.UUID      `json:"id"`
	WorkflowID     uuid.UUID      `json:"workflow_id"`
	StageID        *uuid.UUID     `json:"stage_id"`
	GroupID        *uuid.UUID     `json:"group_id"`
	StageGroupID   *uuid.UUID     `json:"stage_group_id"`
	ApplicantName  string         `json:"applicant_name"`
	ApplicantEmail string         `json:"applicant_email"`
	Status         string         `json:"status"`
	Tags           []string       `json:"tags"`
	Data           map[string]any `json:"data"`
	StageEnteredAt time.Time      `json:"stage_entered_at"`
	Version        int            `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// State returns the engine view of the application.
func (a Application) State() engine.State {
	return engine.State{
		WorkflowID: a.WorkflowID.String(),
		Location: engine.Location{
			StageID:      idString(a.StageID),
			GroupID:      idString(a.GroupID),
			StageGroupID: idString(a.StageGroupID),
		},
		Status: a.Status,
		Tags:   slices.Clone(a.Tags),
	}
}

// WithState returns a copy of a carrying the location, status and tags of s.
// A location change restarts the stage clock at now.
func (a Application) WithState(s engine.State, now time.Time) (Application, error) {
	if !s.Location.Valid() {
		return a, ErrInvalidLocation
	}

	stage, err := parseID(s.Location.StageID)
	if err != nil {
		return a, err
	}
	group, err := parseID(s.Location.GroupID)
	if err != nil {
		return a, err
	}
	stageGroup, err := parseID(s.Location.StageGroupID)
	if err != nil {
		return a, err
	}

	if s.Location != a.State().Location {
		a.StageEnteredAt = now
	}

	a.StageID, a.GroupID, a.StageGroupID = stage, group, stageGroup
	a.Status = s.Status
	a.Tags = slices.Clone(s.Tags)
	if a.Tags == nil {
		a.Tags = []string{}
	}
	return a, nil
}

// DaysInStage returns the whole days since the application entered its
// current location.
func (a Application) DaysInStage(now time.Time) int {
	d := now.Sub(a.StageEnteredAt)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}

// Values merges the intake data with the intrinsic fields rules observe.
// Score fields are absent until at least one review carries a score.
func (a Application) Values(scores Scores, now time.Time) engine.Values {
	v := make(engine.Values, len(a.Data)+6)
	for k, val := range a.Data {
		v[k] = val
	}

	v[engine.FieldStatus] = a.Status
	v[engine.FieldTags] = slices.Clone(a.Tags)
	v[engine.FieldDaysInStage] = float64(a.DaysInStage(now))
	v[engine.FieldReviewCount] = float64(scores.Count)
	if scores.Scored > 0 {
		v[engine.FieldAverageScore] = scores.Average
		v[engine.FieldTotalScore] = scores.Total
	}
	return v
}

// Scores aggregates the reviews of one application in one stage.
// Count includes reviews without a score; Scored does not.
type Scores struct {
	Average float64 `json:"average"`
	Total   float64 `json:"total"`
	Count   int     `json:"count"`
	Scored  int     `json:"scored"`
}

// Review is one reviewer's submission on an application in a stage.
type Review struct {
	ID             uuid.UUID `json:"id"`
	ApplicationID  uuid.UUID `json:"application_id"`
	StageID        uuid.UUID `json:"stage_id"`
	ReviewerID     string    `json:"reviewer_id"`
	ReviewerTypeID uuid.UUID `json:"reviewer_type_id"`
	Score          *float64  `json:"score"`
	Comment        string    `json:"comment"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// Submissions converts reviews to the engine's review progress input.
func Submissions(reviews []Review) []engine.Submission {
	out := make([]engine.Submission, len(reviews))
	for i, r := range reviews {
		out[i] = engine.Submission{
			ReviewerID:     r.ReviewerID,
			ReviewerTypeID: r.ReviewerTypeID.String(),
		}
	}
	return out
}

// CreateCommand carries the data to submit an application. Without a
// StageID the application enters the first stage of the workflow.
type CreateCommand struct {
	WorkflowID     uuid.UUID      `json:"workflow_id"`
	StageID        *uuid.UUID     `json:"stage_id"`
	ApplicantName  string         `json:"applicant_name"`
	ApplicantEmail string         `json:"applicant_email"`
	Tags           []string       `json:"tags"`
	Data           map[string]any `json:"data"`
}

// Validate checks required fields.
func (c CreateCommand) Validate() error {
	if c.WorkflowID == uuid.Nil || strings.TrimSpace(c.ApplicantName) == "" {
		return ErrInvalidApplication
	}
	return nil
}

// MoveCommand relocates an application. At most one target is set; none
// leaves the application unplaced.
type MoveCommand struct {
	StageID      *uuid.UUID `json:"stage_id"`
	GroupID      *uuid.UUID `json:"group_id"`
	StageGroupID *uuid.UUID `json:"stage_group_id"`
}

// Location converts the command to an engine location.
func (c MoveCommand) Location() engine.Location {
	return engine.Location{
		StageID:      idString(c.StageID),
		GroupID:      idString(c.GroupID),
		StageGroupID: idString(c.StageGroupID),
	}
}

// ReviewCommand carries one reviewer's submission. Resubmitting replaces
// the reviewer's earlier review in the same stage.
type ReviewCommand struct {
	ReviewerID     string    `json:"reviewer_id"`
	ReviewerTypeID uuid.UUID `json:"reviewer_type_id"`
	Score          *float64  `json:"score"`
	Comment        string    `json:"comment"`
}

// Validate checks the reviewer identity.
func (c ReviewCommand) Validate() error {
	if strings.TrimSpace(c.ReviewerID) == "" || c.ReviewerTypeID == uuid.Nil {
		return ErrInvalidReview
	}
	return nil
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func parseID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLocation, s)
	}
	return &id, nil
}
