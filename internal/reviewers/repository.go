package reviewers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/pkg/pagination"
	"github.com/JaimeStill/stagehand/pkg/query"
	"github.com/JaimeStill/stagehand/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a reviewer repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "reviewers"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[ReviewerType], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count reviewer types: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanReviewerType)
	if err != nil {
		return nil, fmt.Errorf("query reviewer types: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*ReviewerType, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	rt, err := repository.QueryOne(ctx, r.db, q, args, scanReviewerType)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rt, nil
}

func (r *repo) Create(ctx context.Context, cmd Command) (*ReviewerType, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO reviewer_types(workspace_id, name, can_edit_score, can_edit_status, can_comment_only, can_tag)
		VALUES ($1, $2, $3, $4, $5, $6)
		` + returning

	args := []any{
		cmd.WorkspaceID, cmd.Name,
		cmd.CanEditScore, cmd.CanEditStatus, cmd.CanCommentOnly, cmd.CanTag,
	}

	rt, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ReviewerType, error) {
		return repository.QueryOne(ctx, tx, q, args, scanReviewerType)
	})

	if err != nil {
		return nil, mapWriteError(err)
	}

	r.logger.Info("reviewer type created", "id", rt.ID, "name", rt.Name)
	return &rt, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd Command) (*ReviewerType, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	q := `
		UPDATE reviewer_types
		SET name = $1, can_edit_score = $2, can_edit_status = $3, can_comment_only = $4, can_tag = $5
		WHERE id = $6
		` + returning

	args := []any{
		cmd.Name,
		cmd.CanEditScore, cmd.CanEditStatus, cmd.CanCommentOnly, cmd.CanTag,
		id,
	}

	rt, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ReviewerType, error) {
		return repository.QueryOne(ctx, tx, q, args, scanReviewerType)
	})

	if err != nil {
		return nil, mapWriteError(err)
	}

	r.logger.Info("reviewer type updated", "id", rt.ID, "name", rt.Name)
	return &rt, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM reviewer_types WHERE id = $1", id)
	})

	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("reviewer type deleted", "id", id)
	return nil
}

func (r *repo) StageConfigs(ctx context.Context, stageID uuid.UUID) ([]StageConfig, error) {
	q, args := query.
		NewBuilder(configProjection, configSort).
		WhereEquals("StageID", stageID).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanStageConfig)
	if err != nil {
		return nil, fmt.Errorf("query stage reviewer configs: %w", err)
	}
	return items, nil
}

func (r *repo) FindStageConfig(ctx context.Context, stageID, reviewerTypeID uuid.UUID) (*StageConfig, error) {
	c, err := findConfig(ctx, r.db, stageID, reviewerTypeID)
	if err != nil {
		return nil, repository.MapError(err, ErrConfigNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) UpsertStageConfig(
	ctx context.Context,
	stageID, reviewerTypeID uuid.UUID,
	cmd ConfigCommand,
) (*StageConfig, error) {
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	visibility, err := json.Marshal(cmd.FieldVisibility)
	if err != nil {
		return nil, fmt.Errorf("encode field visibility: %w", err)
	}

	q := `
		INSERT INTO stage_reviewer_configs(
			stage_id, reviewer_type_id, rubric_id, min_reviews_required,
			can_view_prior_scores, can_view_prior_comments, field_visibility_config
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (stage_id, reviewer_type_id) DO UPDATE SET
			rubric_id = EXCLUDED.rubric_id,
			min_reviews_required = EXCLUDED.min_reviews_required,
			can_view_prior_scores = EXCLUDED.can_view_prior_scores,
			can_view_prior_comments = EXCLUDED.can_view_prior_comments,
			field_visibility_config = EXCLUDED.field_visibility_config`

	args := []any{
		stageID, reviewerTypeID, cmd.RubricID, cmd.MinReviewsRequired,
		cmd.CanViewPriorScores, cmd.CanViewPriorComments, string(visibility),
	}

	c, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (StageConfig, error) {
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return StageConfig{}, err
		}
		return findConfig(ctx, tx, stageID, reviewerTypeID)
	})

	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrParentNotFound
		}
		return nil, repository.MapError(err, ErrConfigNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"stage reviewer config saved",
		"stage_id", stageID,
		"reviewer_type", c.ReviewerTypeName,
		"min_reviews", c.MinReviewsRequired,
	)
	return &c, nil
}

func (r *repo) DeleteStageConfig(ctx context.Context, stageID, reviewerTypeID uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM stage_reviewer_configs WHERE stage_id = $1 AND reviewer_type_id = $2",
			stageID, reviewerTypeID,
		)
	})

	if err != nil {
		return repository.MapError(err, ErrConfigNotFound, ErrDuplicate)
	}

	r.logger.Info("stage reviewer config deleted", "stage_id", stageID, "reviewer_type_id", reviewerTypeID)
	return nil
}

func findConfig(ctx context.Context, q repository.Querier, stageID, reviewerTypeID uuid.UUID) (StageConfig, error) {
	stmt, args := query.
		NewBuilder(configProjection).
		WhereEquals("StageID", stageID).
		WhereEquals("ReviewerTypeID", reviewerTypeID).
		BuildSingleOrNull()
	return repository.QueryOne(ctx, q, stmt, args, scanStageConfig)
}

func mapWriteError(err error) error {
	if repository.IsCheckViolation(err) {
		return ErrPermissionConflict
	}
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}
