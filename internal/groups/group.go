// Package groups implements the buckets that hold applications outside the
// stage pipeline: workflow-scoped application groups and stage-scoped
// triage groups.
package groups

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/rules"
)

// SystemGroups are created for every workflow and cannot be deleted.
var SystemGroups = []GroupCommand{
	{Name: "Rejected", Color: "red", Icon: "x-circle", IsSystem: true},
	{Name: "Withdrawn", Color: "gray", Icon: "archive", IsSystem: true},
}

// Group is a workflow-scoped bucket outside the pipeline.
type Group struct {
	ID         uuid.UUID   `json:"id"`
	WorkflowID uuid.UUID   `json:"workflow_id"`
	Name       string      `json:"name"`
	Color      rules.Color `json:"color"`
	Icon       string      `json:"icon"`
	IsSystem   bool        `json:"is_system"`
	CreatedAt  time.Time   `json:"created_at"`
}

// StageGroup is a triage bucket scoped to one stage.
type StageGroup struct {
	ID        uuid.UUID   `json:"id"`
	StageID   uuid.UUID   `json:"stage_id"`
	Name      string      `json:"name"`
	Color     rules.Color `json:"color"`
	Icon      string      `json:"icon"`
	CreatedAt time.Time   `json:"created_at"`
}

// GroupCommand carries the data to create or update a workflow group.
// WorkflowID and IsSystem are ignored on update.
type GroupCommand struct {
	WorkflowID uuid.UUID   `json:"workflow_id"`
	Name       string      `json:"name"`
	Color      rules.Color `json:"color"`
	Icon       string      `json:"icon"`
	IsSystem   bool        `json:"-"`
}

// StageGroupCommand carries the data to create or update a stage group.
// StageID is ignored on update.
type StageGroupCommand struct {
	StageID uuid.UUID   `json:"stage_id"`
	Name    string      `json:"name"`
	Color   rules.Color `json:"color"`
	Icon    string      `json:"icon"`
}

func normalize(name string, color rules.Color) (string, rules.Color, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", ErrInvalidGroup
	}
	c, err := rules.ParseColor(string(color))
	if err != nil {
		return "", "", err
	}
	return name, c, nil
}
