package applications

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/pkg/pagination"
)

// System defines the public contract for the application store.
type System interface {
	Handler() *Handler

	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[Application], error)
	Find(ctx context.Context, id uuid.UUID) (*Application, error)
	// Resident lists the applications currently in a stage, longest waiting first.
	Resident(ctx context.Context, stageID uuid.UUID) ([]Application, error)
	Create(ctx context.Context, cmd CreateCommand) (*Application, error)
	// Save persists a's mutable state. Returns ErrConflict when the stored
	// version no longer matches a.Version.
	Save(ctx context.Context, a Application) (*Application, error)
	// SaveWithReview records a review in the stored stage and saves a in
	// one transaction.
	SaveWithReview(ctx context.Context, a Application, review ReviewCommand) (*Application, error)
	Move(ctx context.Context, id uuid.UUID, cmd MoveCommand) (*Application, error)
	Delete(ctx context.Context, id uuid.UUID) error

	SubmitReview(ctx context.Context, id uuid.UUID, cmd ReviewCommand) (*Review, error)
	// Reviews lists the reviews of an application, optionally limited to one stage.
	Reviews(ctx context.Context, id uuid.UUID, stageID *uuid.UUID) ([]Review, error)
	Scores(ctx context.Context, id, stageID uuid.UUID) (Scores, error)
}
