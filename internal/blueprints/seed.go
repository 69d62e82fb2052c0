package blueprints

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/internal/groups"
	"github.com/JaimeStill/stagehand/internal/stages"
	"github.com/JaimeStill/stagehand/internal/workflows"
	"github.com/JaimeStill/stagehand/rules"
)

// Workflows is the slice of the workflow system a seeder writes through.
type Workflows interface {
	Create(ctx context.Context, cmd workflows.CreateCommand) (*workflows.Workflow, error)
	Activate(ctx context.Context, id uuid.UUID) (*workflows.Workflow, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Stages is the slice of the stage system a seeder writes through.
type Stages interface {
	Create(ctx context.Context, cmd stages.CreateCommand) (*stages.Stage, error)
	Update(ctx context.Context, id uuid.UUID, cmd stages.UpdateCommand) (*stages.Stage, error)
	SetRules(ctx context.Context, id uuid.UUID, rs []rules.Rule) (*stages.Stage, error)
	SetVisibility(ctx context.Context, id uuid.UUID, cmd stages.VisibilityCommand) (*stages.Stage, error)
}

// Groups is the slice of the group system a seeder writes through.
type Groups interface {
	EnsureSystemGroups(ctx context.Context, workflowID uuid.UUID) ([]groups.Group, error)
	CreateGroup(ctx context.Context, cmd groups.GroupCommand) (*groups.Group, error)
	CreateStageGroup(ctx context.Context, cmd groups.StageGroupCommand) (*groups.StageGroup, error)
}

// Result lists everything a blueprint created.
type Result struct {
	Workflow    *workflows.Workflow `json:"workflow"`
	Groups      []groups.Group      `json:"groups"`
	Stages      []stages.Stage      `json:"stages"`
	StageGroups []groups.StageGroup `json:"stage_groups"`
}

// Seeder creates blueprints through the domain systems.
type Seeder struct {
	workflows Workflows
	stages    Stages
	groups    Groups
	logger    *slog.Logger
}

func NewSeeder(wf Workflows, st Stages, gr Groups, logger *slog.Logger) *Seeder {
	return &Seeder{
		workflows: wf,
		stages:    st,
		groups:    gr,
		logger:    logger.With("system", "blueprints"),
	}
}

// Apply creates the blueprint's workflow and everything under it. When a
// step fails the partially created workflow is deleted; stages, groups and
// stage groups go with it.
func (s *Seeder) Apply(ctx context.Context, bp *Blueprint) (*Result, error) {
	if err := bp.Validate(); err != nil {
		return nil, err
	}

	wf, err := s.workflows.Create(ctx, workflows.CreateCommand{
		Name:            bp.Workflow.Name,
		ApplicationType: bp.Workflow.ApplicationType,
	})
	if err != nil {
		return nil, fmt.Errorf("create workflow: %w", err)
	}

	result, err := s.populate(ctx, bp, wf)
	if err != nil {
		if cleanup := s.workflows.Delete(ctx, wf.ID); cleanup != nil {
			s.logger.Error("blueprint cleanup failed", "workflow", wf.ID, "error", cleanup)
		}
		return nil, err
	}

	s.logger.Info(
		"blueprint applied",
		"workflow", wf.ID,
		"name", wf.Name,
		"stages", len(result.Stages),
		"groups", len(result.Groups),
		"stage_groups", len(result.StageGroups),
	)
	return result, nil
}

func (s *Seeder) populate(ctx context.Context, bp *Blueprint, wf *workflows.Workflow) (*Result, error) {
	result := &Result{Workflow: wf}
	ids := make(map[rules.ActionType]map[string]string, 3)
	for _, t := range []rules.ActionType{rules.ActionMoveToStage, rules.ActionMoveToGroup, rules.ActionMoveToStageGroup} {
		ids[t] = make(map[string]string)
	}

	system, err := s.groups.EnsureSystemGroups(ctx, wf.ID)
	if err != nil {
		return nil, fmt.Errorf("create system groups: %w", err)
	}
	for _, g := range system {
		ids[rules.ActionMoveToGroup][g.Name] = g.ID.String()
	}
	result.Groups = append(result.Groups, system...)

	for _, spec := range bp.Groups {
		g, err := s.groups.CreateGroup(ctx, groups.GroupCommand{
			WorkflowID: wf.ID,
			Name:       spec.Name,
			Color:      spec.Color,
			Icon:       spec.Icon,
		})
		if err != nil {
			return nil, fmt.Errorf("create group %q: %w", spec.Name, err)
		}
		ids[rules.ActionMoveToGroup][g.Name] = g.ID.String()
		result.Groups = append(result.Groups, *g)
	}

	for _, spec := range bp.Stages {
		st, err := s.stages.Create(ctx, stages.CreateCommand{
			WorkflowID: wf.ID,
			Settings:   spec.Settings(nil),
		})
		if err != nil {
			return nil, fmt.Errorf("create stage %q: %w", spec.Name, err)
		}
		ids[rules.ActionMoveToStage][st.Name] = st.ID.String()
		result.Stages = append(result.Stages, *st)

		for _, gs := range spec.StageGroups {
			g, err := s.groups.CreateStageGroup(ctx, groups.StageGroupCommand{
				StageID: st.ID,
				Name:    gs.Name,
				Color:   gs.Color,
				Icon:    gs.Icon,
			})
			if err != nil {
				return nil, fmt.Errorf("create stage group %q: %w", gs.Name, err)
			}
			ids[rules.ActionMoveToStageGroup][g.Name] = g.ID.String()
			result.StageGroups = append(result.StageGroups, *g)
		}
	}

	// Statuses, rules and visibility are written once every target exists.
	for i, spec := range bp.Stages {
		st := &result.Stages[i]
		settings, rs, err := spec.decode()
		if err != nil {
			return nil, err
		}

		if len(settings.CustomStatuses) > 0 {
			for j := range settings.CustomStatuses {
				settings.CustomStatuses[j].Actions = resolve(settings.CustomStatuses[j].Actions, ids)
			}
			updated, err := s.stages.Update(ctx, st.ID, stages.UpdateCommand{Settings: settings})
			if err != nil {
				return nil, fmt.Errorf("stage %q statuses: %w", spec.Name, err)
			}
			*st = *updated
		}

		if len(rs) > 0 {
			for j := range rs {
				rs[j].Actions = resolve(rs[j].Actions, ids)
			}
			updated, err := s.stages.SetRules(ctx, st.ID, rs)
			if err != nil {
				return nil, fmt.Errorf("stage %q rules: %w", spec.Name, err)
			}
			*st = *updated
		}

		if len(spec.Visibility) > 0 {
			updated, err := s.stages.SetVisibility(ctx, st.ID, stages.VisibilityCommand{ReviewerTypes: spec.Visibility})
			if err != nil {
				return nil, fmt.Errorf("stage %q visibility: %w", spec.Name, err)
			}
			*st = *updated
		}
	}

	if bp.Workflow.Active {
		activated, err := s.workflows.Activate(ctx, wf.ID)
		if err != nil {
			return nil, fmt.Errorf("activate workflow: %w", err)
		}
		result.Workflow = activated
	}

	return result, nil
}

// resolve rewrites move targets from blueprint names to created ids.
func resolve(actions []rules.Action, ids map[rules.ActionType]map[string]string) []rules.Action {
	out := make([]rules.Action, len(actions))
	for i, a := range actions {
		out[i] = a
		id, ok := ids[a.Type][a.Target()]
		if !ok {
			continue
		}
		switch a.Type {
		case rules.ActionMoveToStage:
			out[i].TargetStageID = id
		case rules.ActionMoveToGroup:
			out[i].TargetGroupID = id
		case rules.ActionMoveToStageGroup:
			out[i].TargetStageGroupID = id
		}
	}
	return out
}
