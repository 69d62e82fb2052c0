package groups

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for application group and stage group operations.
type System interface {
	Handler() *Handler

	ListGroups(ctx context.Context, workflowID uuid.UUID) ([]Group, error)
	FindGroup(ctx context.Context, id uuid.UUID) (*Group, error)
	CreateGroup(ctx context.Context, cmd GroupCommand) (*Group, error)
	UpdateGroup(ctx context.Context, id uuid.UUID, cmd GroupCommand) (*Group, error)
	// DeleteGroup returns ErrSystemGroup for system groups and ErrOccupied
	// while applications reside in the group.
	DeleteGroup(ctx context.Context, id uuid.UUID) error
	// EnsureSystemGroups creates any missing SystemGroups for a workflow.
	EnsureSystemGroups(ctx context.Context, workflowID uuid.UUID) ([]Group, error)

	ListStageGroups(ctx context.Context, stageID uuid.UUID) ([]StageGroup, error)
	// WorkflowStageGroups returns the stage groups of every stage in a workflow.
	WorkflowStageGroups(ctx context.Context, workflowID uuid.UUID) ([]StageGroup, error)
	FindStageGroup(ctx context.Context, id uuid.UUID) (*StageGroup, error)
	CreateStageGroup(ctx context.Context, cmd StageGroupCommand) (*StageGroup, error)
	UpdateStageGroup(ctx context.Context, id uuid.UUID, cmd StageGroupCommand) (*StageGroup, error)
	DeleteStageGroup(ctx context.Context, id uuid.UUID) error
}
