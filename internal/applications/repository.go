package applications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/pkg/pagination"
	"github.com/JaimeStill/stagehand/pkg/query"
	"github.com/JaimeStill/stagehand/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// New creates an application repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "applications"),
		pagination: pagination,
		now:        time.Now,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Application], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "ApplicantName", "ApplicantEmail")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count applications: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanApplication)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Application, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	a, err := repository.QueryOne(ctx, r.db, q, args, scanApplication)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &a, nil
}

func (r *repo) Resident(ctx context.Context, stageID uuid.UUID) ([]Application, error) {
	q, args := query.
		NewBuilder(projection, residentSort).
		WhereEquals("StageID", stageID).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanApplication)
	if err != nil {
		return nil, fmt.Errorf("query stage residents: %w", err)
	}
	return items, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Application, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	draft := Application{Tags: cmd.Tags, Data: cmd.Data}
	tags, data, err := encode(draft)
	if err != nil {
		return nil, err
	}

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Application, error) {
		stageID := cmd.StageID
		if stageID == nil {
			first, err := firstStage(ctx, tx, cmd.WorkflowID)
			if err != nil {
				return Application{}, err
			}
			stageID = first
		}

		q := `
			INSERT INTO applications(workflow_id, stage_id, applicant_name, applicant_email, tags, data)
			VALUES ($1, $2, $3, $4, $5, $6)
			` + returning

		args := []any{cmd.WorkflowID, stageID, cmd.ApplicantName, cmd.ApplicantEmail, tags, data}
		return repository.QueryOne(ctx, tx, q, args, scanApplication)
	})

	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrLocationNotFound
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"application created",
		"id", a.ID,
		"workflow_id", a.WorkflowID,
		"stage_id", idString(a.StageID),
	)
	return &a, nil
}

// Save writes the mutable state of a when its version still matches the
// stored one, and returns the stored row with the incremented version.
func (r *repo) Save(ctx context.Context, a Application) (*Application, error) {
	if !a.State().Location.Valid() {
		return nil, ErrInvalidLocation
	}

	saved, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Application, error) {
		return update(ctx, tx, a)
	})
	if err != nil {
		return nil, saveError(err)
	}

	r.logSaved(saved)
	return &saved, nil
}

// SaveWithReview records review against the application's stored stage and
// writes the state of a in the same transaction. A stale version rolls back
// both writes.
func (r *repo) SaveWithReview(ctx context.Context, a Application, review ReviewCommand) (*Application, error) {
	if !a.State().Location.Valid() {
		return nil, ErrInvalidLocation
	}
	if err := review.Validate(); err != nil {
		return nil, err
	}

	var rv Review
	saved, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Application, error) {
		var err error
		if rv, err = insertReview(ctx, tx, a.ID, review); err != nil {
			return Application{}, err
		}
		return update(ctx, tx, a)
	})
	if err != nil {
		return nil, saveError(err)
	}

	r.logger.Info(
		"review submitted",
		"application_id", a.ID,
		"stage_id", rv.StageID,
		"reviewer_id", rv.ReviewerID,
	)
	r.logSaved(saved)
	return &saved, nil
}

func update(ctx context.Context, tx *sql.Tx, a Application) (Application, error) {
	tags, data, err := encode(a)
	if err != nil {
		return Application{}, err
	}

	q := `
		UPDATE applications
		SET stage_id = $1, group_id = $2, stage_group_id = $3,
			status = $4, tags = $5, data = $6, stage_entered_at = $7,
			version = version + 1, updated_at = NOW()
		WHERE id = $8 AND version = $9
		` + returning

	args := []any{
		a.StageID, a.GroupID, a.StageGroupID,
		a.Status, tags, data, a.StageEnteredAt,
		a.ID, a.Version,
	}

	out, err := repository.QueryOne(ctx, tx, q, args, scanApplication)
	if errors.Is(err, sql.ErrNoRows) {
		return Application{}, missingOrStale(ctx, tx, a.ID)
	}
	return out, err
}

func saveError(err error) error {
	if repository.IsForeignKeyViolation(err) {
		return ErrLocationNotFound
	}
	if repository.IsCheckViolation(err) {
		return ErrInvalidLocation
	}
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (r *repo) logSaved(a Application) {
	r.logger.Info(
		"application saved",
		"id", a.ID,
		"version", a.Version,
		"stage_id", idString(a.StageID),
		"group_id", idString(a.GroupID),
		"stage_group_id", idString(a.StageGroupID),
		"status", a.Status,
	)
}

// Move relocates an application without evaluating any rules.
func (r *repo) Move(ctx context.Context, id uuid.UUID, cmd MoveCommand) (*Application, error) {
	a, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	state := a.State()
	state.Location = cmd.Location()

	next, err := a.WithState(state, r.now())
	if err != nil {
		return nil, err
	}
	return r.Save(ctx, next)
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM applications WHERE id = $1", id)
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("application deleted", "id", id)
	return nil
}

// SubmitReview records a review against the application's current stage.
func (r *repo) SubmitReview(ctx context.Context, id uuid.UUID, cmd ReviewCommand) (*Review, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	rv, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Review, error) {
		return insertReview(ctx, tx, id, cmd)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"review submitted",
		"application_id", id,
		"stage_id", rv.StageID,
		"reviewer_id", rv.ReviewerID,
	)
	return &rv, nil
}

// insertReview upserts cmd against the stage the application is stored in.
func insertReview(ctx context.Context, tx *sql.Tx, id uuid.UUID, cmd ReviewCommand) (Review, error) {
	var stageID *uuid.UUID
	err := tx.QueryRowContext(ctx, "SELECT stage_id FROM applications WHERE id = $1", id).Scan(&stageID)
	if err != nil {
		return Review{}, err
	}
	if stageID == nil {
		return Review{}, ErrNotInStage
	}

	q := `
		INSERT INTO reviews(application_id, stage_id, reviewer_id, reviewer_type_id, score, comment)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (application_id, stage_id, reviewer_id) DO UPDATE SET
			reviewer_type_id = EXCLUDED.reviewer_type_id,
			score = EXCLUDED.score,
			comment = EXCLUDED.comment,
			submitted_at = NOW()
		` + reviewReturning

	args := []any{id, *stageID, cmd.ReviewerID, cmd.ReviewerTypeID, cmd.Score, cmd.Comment}
	rv, err := repository.QueryOne(ctx, tx, q, args, scanReview)
	if repository.IsForeignKeyViolation(err) {
		return Review{}, ErrInvalidReview
	}
	return rv, err
}

func (r *repo) Reviews(ctx context.Context, id uuid.UUID, stageID *uuid.UUID) ([]Review, error) {
	q, args := query.
		NewBuilder(reviewProjection, reviewSort).
		WhereEquals("ApplicationID", id).
		WhereEquals("StageID", stageID).
		Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanReview)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	return items, nil
}

func (r *repo) Scores(ctx context.Context, id, stageID uuid.UUID) (Scores, error) {
	var (
		s       Scores
		average sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT AVG(score), COALESCE(SUM(score), 0), COUNT(*), COUNT(score)
		FROM reviews
		WHERE application_id = $1 AND stage_id = $2`,
		id, stageID,
	).Scan(&average, &s.Total, &s.Count, &s.Scored)
	if err != nil {
		return Scores{}, fmt.Errorf("aggregate scores: %w", err)
	}

	s.Average = average.Float64
	return s, nil
}

func firstStage(ctx context.Context, tx *sql.Tx, workflowID uuid.UUID) (*uuid.UUID, error) {
	var id uuid.UUID
	err := tx.QueryRowContext(
		ctx,
		"SELECT id FROM stages WHERE workflow_id = $1 ORDER BY order_index LIMIT 1",
		workflowID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find first stage: %w", err)
	}
	return &id, nil
}

func missingOrStale(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM applications WHERE id = $1)", id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}
