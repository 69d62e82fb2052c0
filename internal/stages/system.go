package stages

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/rules"
)

// System defines the public contract for stage pipeline operations.
type System interface {
	Handler() *Handler

	// List returns the stages of a workflow in pipeline order.
	List(ctx context.Context, workflowID uuid.UUID) ([]Stage, error)
	Find(ctx context.Context, id uuid.UUID) (*Stage, error)
	// Create inserts a stage at its requested position and renumbers the pipeline.
	Create(ctx context.Context, cmd CreateCommand) (*Stage, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Stage, error)
	// Remove deletes an empty stage and renumbers the pipeline.
	// Returns ErrStageOccupied while applications reside in the stage or its stage groups.
	Remove(ctx context.Context, id uuid.UUID) error
	// Reorder moves a stage and returns the renumbered pipeline.
	Reorder(ctx context.Context, id uuid.UUID, cmd ReorderCommand) ([]Stage, error)

	// SetRules validates rs and stores it in the current wire format.
	SetRules(ctx context.Context, id uuid.UUID, rs []rules.Rule) (*Stage, error)
	SetVisibility(ctx context.Context, id uuid.UUID, cmd VisibilityCommand) (*Stage, error)

	// Rulebook decodes the rule sets of every stage in a workflow.
	Rulebook(ctx context.Context, workflowID uuid.UUID) (engine.Rulebook, error)
	// Scheduled returns every stage holding an active time_elapsed rule.
	Scheduled(ctx context.Context) ([]Stage, error)
}
