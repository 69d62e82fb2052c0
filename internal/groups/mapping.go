package groups

import (
	"github.com/JaimeStill/stagehand/pkg/query"
	"github.com/JaimeStill/stagehand/pkg/repository"
)

var groupProjection = query.
	NewProjectionMap("public", "application_groups", "g").
	Project("id", "ID").
	Project("workflow_id", "WorkflowID").
	Project("name", "Name").
	Project("color", "Color").
	Project("icon", "Icon").
	Project("is_system", "IsSystem").
	Project("created_at", "CreatedAt")

var stageGroupProjection = query.
	NewProjectionMap("public", "stage_groups", "sg").
	Project("id", "ID").
	Project("stage_id", "StageID").
	Project("name", "Name").
	Project("color", "Color").
	Project("icon", "Icon").
	Project("created_at", "CreatedAt")

// workflowStageGroups reaches stage groups of a workflow through their stage.
var workflowStageGroups = query.
	NewProjectionMap("public", "stage_groups", "sg").
	Project("id", "ID").
	Project("stage_id", "StageID").
	Project("name", "Name").
	Project("color", "Color").
	Project("icon", "Icon").
	Project("created_at", "CreatedAt").
	Join("public", "stages", "s", "JOIN", "s.id = sg.stage_id")

var byName = query.SortField{Field: "Name"}

const (
	groupReturning      = `RETURNING id, workflow_id, name, color, icon, is_system, created_at`
	stageGroupReturning = `RETURNING id, stage_id, name, color, icon, created_at`
)

func scanGroup(s repository.Scanner) (Group, error) {
	var g Group
	err := s.Scan(&g.ID, &g.WorkflowID, &g.Name, &g.Color, &g.Icon, &g.IsSystem, &g.CreatedAt)
	return g, err
}

func scanStageGroup(s repository.Scanner) (StageGroup, error) {
	var g StageGroup
	err := s.Scan(&g.ID, &g.StageID, &g.Name, &g.Color, &g.Icon, &g.CreatedAt)
	return g, err
}
