package groups

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/pkg/query"
	"github.com/JaimeStill/stagehand/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a group repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "groups"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) ListGroups(ctx context.Context, workflowID uuid.UUID) ([]Group, error) {
	q, args := query.
		NewBuilder(groupProjection, byName).
		WhereEquals("WorkflowID", workflowID).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanGroup)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	return items, nil
}

func (r *repo) FindGroup(ctx context.Context, id uuid.UUID) (*Group, error) {
	q, args := query.NewBuilder(groupProjection).BuildSingle("ID", id)

	g, err := repository.QueryOne(ctx, r.db, q, args, scanGroup)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &g, nil
}

func (r *repo) CreateGroup(ctx context.Context, cmd GroupCommand) (*Group, error) {
	name, color, err := normalize(cmd.Name, cmd.Color)
	if err != nil {
		return nil, err
	}

	q := `
		INSERT INTO application_groups(workflow_id, name, color, icon, is_system)
		VALUES ($1, $2, $3, $4, $5)
		` + groupReturning

	args := []any{cmd.WorkflowID, name, color, cmd.Icon, cmd.IsSystem}

	g, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Group, error) {
		return repository.QueryOne(ctx, tx, q, args, scanGroup)
	})

	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrParentNotFound
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("group created", "id", g.ID, "workflow_id", g.WorkflowID, "name", g.Name, "system", g.IsSystem)
	return &g, nil
}

func (r *repo) UpdateGroup(ctx context.Context, id uuid.UUID, cmd GroupCommand) (*Group, error) {
	name, color, err := normalize(cmd.Name, cmd.Color)
	if err != nil {
		return nil, err
	}

	q := `
		UPDATE application_groups SET name = $1, color = $2, icon = $3
		WHERE id = $4
		` + groupReturning

	g, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Group, error) {
		return repository.QueryOne(ctx, tx, q, []any{name, color, cmd.Icon, id}, scanGroup)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("group updated", "id", g.ID, "name", g.Name)
	return &g, nil
}

func (r *repo) DeleteGroup(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		var system bool
		if err := tx.QueryRowContext(ctx, "SELECT is_system FROM application_groups WHERE id = $1", id).Scan(&system); err != nil {
			return struct{}{}, err
		}
		if system {
			return struct{}{}, ErrSystemGroup
		}
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM application_groups WHERE id = $1", id)
	})

	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return ErrOccupied
		}
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("group deleted", "id", id)
	return nil
}

func (r *repo) EnsureSystemGroups(ctx context.Context, workflowID uuid.UUID) ([]Group, error) {
	q := `
		INSERT INTO application_groups(workflow_id, name, color, icon, is_system)
		VALUES ($1, $2, $3, $4, true)
		ON CONFLICT (workflow_id, name) DO UPDATE SET is_system = true
		` + groupReturning

	items, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) ([]Group, error) {
		out := make([]Group, 0, len(SystemGroups))
		for _, sg := range SystemGroups {
			g, err := repository.QueryOne(ctx, tx, q, []any{workflowID, sg.Name, sg.Color, sg.Icon}, scanGroup)
			if err != nil {
				return nil, err
			}
			out = append(out, g)
		}
		return out, nil
	})

	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrParentNotFound
		}
		return nil, fmt.Errorf("ensure system groups: %w", err)
	}
	return items, nil
}

func (r *repo) ListStageGroups(ctx context.Context, stageID uuid.UUID) ([]StageGroup, error) {
	q, args := query.
		NewBuilder(stageGroupProjection, byName).
		WhereEquals("StageID", stageID).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanStageGroup)
	if err != nil {
		return nil, fmt.Errorf("query stage groups: %w", err)
	}
	return items, nil
}

func (r *repo) WorkflowStageGroups(ctx context.Context, workflowID uuid.UUID) ([]StageGroup, error) {
	q, args := query.
		NewBuilder(workflowStageGroups, byName).
		WhereEquals("s.workflow_id", workflowID).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanStageGroup)
	if err != nil {
		return nil, fmt.Errorf("query workflow stage groups: %w", err)
	}
	return items, nil
}

func (r *repo) FindStageGroup(ctx context.Context, id uuid.UUID) (*StageGroup, error) {
	q, args := query.NewBuilder(stageGroupProjection).BuildSingle("ID", id)

	g, err := repository.QueryOne(ctx, r.db, q, args, scanStageGroup)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &g, nil
}

func (r *repo) CreateStageGroup(ctx context.Context, cmd StageGroupCommand) (*StageGroup, error) {
	name, color, err := normalize(cmd.Name, cmd.Color)
	if err != nil {
		return nil, err
	}

	q := `
		INSERT INTO stage_groups(stage_id, name, color, icon)
		VALUES ($1, $2, $3, $4)
		` + stageGroupReturning

	g, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (StageGroup, error) {
		return repository.QueryOne(ctx, tx, q, []any{cmd.StageID, name, color, cmd.Icon}, scanStageGroup)
	})

	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrParentNotFound
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("stage group created", "id", g.ID, "stage_id", g.StageID, "name", g.Name)
	return &g, nil
}

func (r *repo) UpdateStageGroup(ctx context.Context, id uuid.UUID, cmd StageGroupCommand) (*StageGroup, error) {
	name, color, err := normalize(cmd.Name, cmd.Color)
	if err != nil {
		return nil, err
	}

	q := `
		UPDATE stage_groups SET name = $1, color = $2, icon = $3
		WHERE id = $4
		` + stageGroupReturning

	g, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (StageGroup, error) {
		return repository.QueryOne(ctx, tx, q, []any{name, color, cmd.Icon, id}, scanStageGroup)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("stage group updated", "id", g.ID, "name", g.Name)
	return &g, nil
}

func (r *repo) DeleteStageGroup(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM stage_groups WHERE id = $1", id)
	})

	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return ErrOccupied
		}
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("stage group deleted", "id", id)
	return nil
}
