package rubrics

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

// New creates a rubric repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "rubrics"),
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
) (*pagination.PageResult[Rubric], error) {
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
		return nil, fmt.Errorf("count rubrics: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanRubric)
	if err != nil {
		return nil, fmt.Errorf("query rubrics: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Rubric, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	rb, err := repository.QueryOne(ctx, r.db, q, args, scanRubric)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rb, nil
}

func (r *repo) Create(ctx context.Context, cmd Command) (*Rubric, error) {
	if err := prepare(&cmd); err != nil {
		return nil, err
	}

	categories, err := json.Marshal(cmd.Categories)
	if err != nil {
		return nil, fmt.Errorf("encode categories: %w", err)
	}

	q := `
		INSERT INTO rubrics(name, rubric_type, categories)
		VALUES ($1, $2, $3)
		` + returning

	rb, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Rubric, error) {
		return repository.QueryOne(ctx, tx, q, []any{cmd.Name, cmd.RubricType, string(categories)}, scanRubric)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("rubric created", "id", rb.ID, "name", rb.Name, "categories", len(rb.Categories))
	return &rb, nil
}

// Update replaces a rubric. Categories whose max_points changed have their
// bands rescaled from the stored version.
func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd Command) (*Rubric, error) {
	rb, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Rubric, error) {
		stmt, args := query.NewBuilder(projection).BuildSingle("ID", id)
		prev, err := repository.QueryOne(ctx, tx, stmt+" FOR UPDATE", args, scanRubric)
		if err != nil {
			return Rubric{}, err
		}

		if err := cmd.Normalize(); err != nil {
			return Rubric{}, err
		}
		if cmd.Categories, err = Reconcile(prev.Categories, cmd.Categories); err != nil {
			return Rubric{}, err
		}
		if err := cmd.Validate(); err != nil {
			return Rubric{}, err
		}

		categories, err := json.Marshal(cmd.Categories)
		if err != nil {
			return Rubric{}, fmt.Errorf("encode categories: %w", err)
		}

		q := `
			UPDATE rubrics
			SET name = $1, rubric_type = $2, categories = $3, updated_at = NOW()
			WHERE id = $4
			` + returning

		return repository.QueryOne(ctx, tx, q, []any{cmd.Name, cmd.RubricType, string(categories), id}, scanRubric)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("rubric updated", "id", rb.ID, "name", rb.Name)
	return &rb, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM rubrics WHERE id = $1", id)
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("rubric deleted", "id", id)
	return nil
}

func prepare(cmd *Command) error {
	if err := cmd.Normalize(); err != nil {
		return err
	}
	return cmd.Validate()
}
