package workflows

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/pkg/pagination"
)

// System defines the public contract for workflow domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Workflow], error)

	Find(ctx context.Context, id uuid.UUID) (*Workflow, error)
	Create(ctx context.Context, cmd CreateCommand) (*Workflow, error)
	Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Workflow, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Activate(ctx context.Context, id uuid.UUID) (*Workflow, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*Workflow, error)
}
