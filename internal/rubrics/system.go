package rubrics

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/pkg/pagination"
)

// System defines the public contract for rubric operations.
type System interface {
	Handler() *Handler

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Rubric], error)
	Find(ctx context.Context, id uuid.UUID) (*Rubric, error)
	Create(ctx context.Context, cmd Command) (*Rubric, error)
	Update(ctx context.Context, id uuid.UUID, cmd Command) (*Rubric, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
