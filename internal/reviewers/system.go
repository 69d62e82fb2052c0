package reviewers

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/pkg/pagination"
)

// System defines the public contract for reviewer types and stage reviewer configs.
type System interface {
	Handler() *Handler

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[ReviewerType], error)
	Find(ctx context.Context, id uuid.UUID) (*ReviewerType, error)
	Create(ctx context.Context, cmd Command) (*ReviewerType, error)
	Update(ctx context.Context, id uuid.UUID, cmd Command) (*ReviewerType, error)
	Delete(ctx context.Context, id uuid.UUID) error

	StageConfigs(ctx context.Context, stageID uuid.UUID) ([]StageConfig, error)
	FindStageConfig(ctx context.Context, stageID, reviewerTypeID uuid.UUID) (*StageConfig, error)
	UpsertStageConfig(ctx context.Context, stageID, reviewerTypeID uuid.UUID, cmd ConfigCommand) (*StageConfig, error)
	DeleteStageConfig(ctx context.Context, stageID, reviewerTypeID uuid.UUID) error
}
