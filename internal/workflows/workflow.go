// Package workflows implements the review workflow domain. A workflow owns
// an ordered pipeline of stages for one application type and names the
// rubric reviewers score against by default.
package workflows

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Workflow is a named review pipeline for one application type.
type Workflow struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	ApplicationType string     `json:"application_type"`
	DefaultRubricID *uuid.UUID `json:"default_rubric_id"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateCommand carries the data needed to create a workflow.
type CreateCommand struct {
	Name            string     `json:"name"`
	ApplicationType string     `json:"application_type"`
	DefaultRubricID *uuid.UUID `json:"default_rubric_id"`
}

// Validate checks required fields.
func (c CreateCommand) Validate() error {
	return validate(c.Name, c.ApplicationType)
}

// UpdateCommand carries the data needed to update a workflow.
type UpdateCommand struct {
	Name            string     `json:"name"`
	ApplicationType string     `json:"application_type"`
	DefaultRubricID *uuid.UUID `json:"default_rubric_id"`
}

// Validate checks required fields.
func (c UpdateCommand) Validate() error {
	return validate(c.Name, c.ApplicationType)
}

func validate(name, applicationType string) error {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(applicationType) == "" {
		return ErrInvalidWorkflow
	}
	return nil
}
