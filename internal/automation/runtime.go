package automation

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/internal/applications"
	"github.com/JaimeStill/stagehand/internal/groups"
	"github.com/JaimeStill/stagehand/internal/notify"
	"github.com/JaimeStill/stagehand/internal/reviewers"
	"github.com/JaimeStill/stagehand/internal/stages"
	"github.com/JaimeStill/stagehand/internal/workflows"
)

// Runtime bundles the systems automation reads from and writes to.
// It is constructed by the API composition code from the domain systems.
type Runtime struct {
	Applications Applications
	Stages       Stages
	Workflows    Workflows
	Groups       Groups
	Reviewers    Reviewers
	Forms        Forms
	Notifier     Notifier
	Logger       *slog.Logger
}

// Applications is the application store as seen by automation.
type Applications interface {
	Find(ctx context.Context, id uuid.UUID) (*applications.Application, error)
	Save(ctx context.Context, a applications.Application) (*applications.Application, error)
	SaveWithReview(ctx context.Context, a applications.Application, review applications.ReviewCommand) (*applications.Application, error)
	SubmitReview(ctx context.Context, id uuid.UUID, cmd applications.ReviewCommand) (*applications.Review, error)
	Reviews(ctx context.Context, id uuid.UUID, stageID *uuid.UUID) ([]applications.Review, error)
	Scores(ctx context.Context, id, stageID uuid.UUID) (applications.Scores, error)
}

type Stages interface {
	Find(ctx context.Context, id uuid.UUID) (*stages.Stage, error)
	List(ctx context.Context, workflowID uuid.UUID) ([]stages.Stage, error)
}

type Workflows interface {
	Find(ctx context.Context, id uuid.UUID) (*workflows.Workflow, error)
}

type Groups interface {
	ListGroups(ctx context.Context, workflowID uuid.UUID) ([]groups.Group, error)
	WorkflowStageGroups(ctx context.Context, workflowID uuid.UUID) ([]groups.StageGroup, error)
}

type Reviewers interface {
	Find(ctx context.Context, id uuid.UUID) (*reviewers.ReviewerType, error)
	StageConfigs(ctx context.Context, stageID uuid.UUID) ([]reviewers.StageConfig, error)
	FindStageConfig(ctx context.Context, stageID, reviewerTypeID uuid.UUID) (*reviewers.StageConfig, error)
}

type Forms interface {
	Catalog(ctx context.Context, applicationType string) (*engine.FieldCatalog, error)
}

// Notifier delivers the emails requested by matched rules.
type Notifier interface {
	Send(ctx context.Context, req notify.Request) (*notify.Message, error)
}
