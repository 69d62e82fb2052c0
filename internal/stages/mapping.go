package stages

import (
	"encoding/json"
	"fmt"

	"github.com/JaimeStill/stagehand/pkg/query"
	"github.com/JaimeStill/stagehand/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "stages", "s").
	Project("id", "ID").
	Project("workflow_id", "WorkflowID").
	Project("order_index", "OrderIndex").
	Project("name", "Name").
	Project("stage_type", "StageType").
	Project("color", "Color").
	Project("custom_statuses", "CustomStatuses").
	Project("custom_tags", "CustomTags").
	Project("hide_pii", "HidePII").
	Project("hidden_pii_fields", "HiddenPIIFields").
	Project("logic_rules", "LogicRules").
	Project("visibility_rule", "VisibilityRule").
	Project("start_at", "StartAt").
	Project("end_at", "EndAt").
	Project("deadline_days", "DeadlineDays").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var pipelineOrder = query.SortField{
	Field: "OrderIndex",
}

const returning = `
	RETURNING id, workflow_id, order_index, name, stage_type, color,
		custom_statuses, custom_tags, hide_pii, hidden_pii_fields,
		logic_rules, visibility_rule, start_at, end_at, deadline_days,
		created_at, updated_at`

func scanStage(s repository.Scanner) (Stage, error) {
	var (
		st       Stage
		statuses []byte
		tags     []byte
		hidden   []byte
	)

	err := s.Scan(
		&st.ID,
		&st.WorkflowID,
		&st.OrderIndex,
		&st.Name,
		&st.StageType,
		&st.Color,
		&statuses,
		&tags,
		&st.HidePII,
		&hidden,
		&st.LogicRules,
		&st.VisibilityRule,
		&st.Timeline.StartAt,
		&st.Timeline.EndAt,
		&st.Timeline.DeadlineDays,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return st, err
	}

	if err := json.Unmarshal(statuses, &st.CustomStatuses); err != nil {
		return st, fmt.Errorf("unmarshal custom_statuses: %w", err)
	}
	if err := json.Unmarshal(tags, &st.CustomTags); err != nil {
		return st, fmt.Errorf("unmarshal custom_tags: %w", err)
	}
	if err := json.Unmarshal(hidden, &st.HiddenPIIFields); err != nil {
		return st, fmt.Errorf("unmarshal hidden_pii_fields: %w", err)
	}

	return st, nil
}

// settingsArgs encodes the JSONB-backed settings columns in column order:
// custom_statuses, custom_tags, hidden_pii_fields.
func settingsArgs(s Settings) ([]any, error) {
	statuses, err := json.Marshal(s.CustomStatuses)
	if err != nil {
		return nil, fmt.Errorf("marshal custom_statuses: %w", err)
	}
	tags, err := json.Marshal(s.CustomTags)
	if err != nil {
		return nil, fmt.Errorf("marshal custom_tags: %w", err)
	}
	hidden, err := json.Marshal(s.HiddenPIIFields)
	if err != nil {
		return nil, fmt.Errorf("marshal hidden_pii_fields: %w", err)
	}
	return []any{string(statuses), string(tags), string(hidden)}, nil
}
