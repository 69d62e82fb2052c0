package stages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/pkg/query"
	"github.com/JaimeStill/stagehand/pkg/repository"
	"github.com/JaimeStill/stagehand/rules"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a stage repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "stages"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) List(ctx context.Context, workflowID uuid.UUID) ([]Stage, error) {
	items, err := r.list(ctx, r.db, workflowID)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	return items, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Stage, error) {
	st, err := r.find(ctx, r.db, id)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &st, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Stage, error) {
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	jsonArgs, err := settingsArgs(cmd.Settings)
	if err != nil {
		return nil, err
	}

	st, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Stage, error) {
		pipeline, err := lockPipeline(ctx, tx, cmd.WorkflowID)
		if err != nil {
			return Stage{}, err
		}

		id := uuid.New()
		var next *engine.Pipeline[uuid.UUID]
		if cmd.Position != nil {
			next, err = pipeline.Insert(id, *cmd.Position)
		} else {
			next, err = pipeline.Append(id)
		}
		if err != nil {
			return Stage{}, err
		}
		if err := renumber(ctx, tx, next); err != nil {
			return Stage{}, err
		}

		q := `
			INSERT INTO stages(
				id, workflow_id, order_index, name, stage_type, color,
				custom_statuses, custom_tags, hide_pii, hidden_pii_fields,
				start_at, end_at, deadline_days
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)` + returning

		args := []any{
			id, cmd.WorkflowID, next.Index(id), cmd.Name, cmd.StageType, cmd.Color,
			jsonArgs[0], jsonArgs[1], cmd.HidePII, jsonArgs[2],
			cmd.Timeline.StartAt, cmd.Timeline.EndAt, cmd.Timeline.DeadlineDays,
		}

		return repository.QueryOne(ctx, tx, q, args, scanStage)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"stage created",
		"id", st.ID,
		"workflow_id", st.WorkflowID,
		"name", st.Name,
		"order_index", st.OrderIndex,
	)
	return &st, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Stage, error) {
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	jsonArgs, err := settingsArgs(cmd.Settings)
	if err != nil {
		return nil, err
	}

	q := `
		UPDATE stages
		SET name = $1, stage_type = $2, color = $3,
			custom_statuses = $4, custom_tags = $5,
			hide_pii = $6, hidden_pii_fields = $7,
			start_at = $8, end_at = $9, deadline_days = $10,
			updated_at = NOW()
		WHERE id = $11` + returning

	args := []any{
		cmd.Name, cmd.StageType, cmd.Color,
		jsonArgs[0], jsonArgs[1],
		cmd.HidePII, jsonArgs[2],
		cmd.Timeline.StartAt, cmd.Timeline.EndAt, cmd.Timeline.DeadlineDays,
		id,
	}

	st, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Stage, error) {
		return repository.QueryOne(ctx, tx, q, args, scanStage)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("stage updated", "id", st.ID, "name", st.Name)
	return &st, nil
}

func (r *repo) Remove(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		st, err := r.find(ctx, tx, id)
		if err != nil {
			return struct{}{}, err
		}

		pipeline, err := lockPipeline(ctx, tx, st.WorkflowID)
		if err != nil {
			return struct{}{}, err
		}

		var occupied bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM applications a
				WHERE a.stage_id = $1
				   OR a.stage_group_id IN (SELECT g.id FROM stage_groups g WHERE g.stage_id = $1)
			)`, id).Scan(&occupied)
		if err != nil {
			return struct{}{}, fmt.Errorf("check occupancy: %w", err)
		}
		if occupied {
			return struct{}{}, ErrStageOccupied
		}

		if err := repository.ExecExpectOne(ctx, tx, "DELETE FROM stages WHERE id = $1", id); err != nil {
			return struct{}{}, err
		}

		next, err := pipeline.Remove(id)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, renumber(ctx, tx, next)
	})

	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return ErrStageOccupied
		}
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("stage removed", "id", id)
	return nil
}

func (r *repo) Reorder(ctx context.Context, id uuid.UUID, cmd ReorderCommand) ([]Stage, error) {
	items, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) ([]Stage, error) {
		st, err := r.find(ctx, tx, id)
		if err != nil {
			return nil, err
		}

		pipeline, err := lockPipeline(ctx, tx, st.WorkflowID)
		if err != nil {
			return nil, err
		}

		next, err := pipeline.Reorder(id, cmd.Position)
		if err != nil {
			return nil, err
		}
		if err := renumber(ctx, tx, next); err != nil {
			return nil, err
		}

		return r.list(ctx, tx, st.WorkflowID)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("stage reordered", "id", id, "position", cmd.Position)
	return items, nil
}

func (r *repo) SetRules(ctx context.Context, id uuid.UUID, rs []rules.Rule) (*Stage, error) {
	rs = slices.Clone(rs)
	for i := range rs {
		if err := rs[i].Validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		if rs[i].ID == "" {
			rs[i].ID = uuid.NewString()
		}
	}

	encoded, err := rules.Encode(rs)
	if err != nil {
		return nil, err
	}

	q := `UPDATE stages SET logic_rules = $1, updated_at = NOW() WHERE id = $2` + returning

	st, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Stage, error) {
		return repository.QueryOne(ctx, tx, q, []any{encoded, id}, scanStage)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("stage rules saved", "id", st.ID, "rules", len(rs))
	return &st, nil
}

func (r *repo) SetVisibility(ctx context.Context, id uuid.UUID, cmd VisibilityCommand) (*Stage, error) {
	restriction := rules.FormatVisibility(cmd.ReviewerTypes)

	q := `UPDATE stages SET visibility_rule = $1, updated_at = NOW() WHERE id = $2` + returning

	st, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Stage, error) {
		return repository.QueryOne(ctx, tx, q, []any{restriction, id}, scanStage)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("stage visibility saved", "id", st.ID, "restriction", restriction)
	return &st, nil
}

func (r *repo) Rulebook(ctx context.Context, workflowID uuid.UUID) (engine.Rulebook, error) {
	items, err := r.List(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	book := make(engine.Rulebook, len(items))
	for _, st := range items {
		rs, err := st.Rules()
		if err != nil {
			r.logger.Warn("stage rules unreadable", "stage", st.ID, "error", err)
			continue
		}
		book[st.ID.String()] = rs
	}
	return book, nil
}

func (r *repo) Scheduled(ctx context.Context) ([]Stage, error) {
	marker := string(rules.TriggerTimeElapsed)
	q, args := query.
		NewBuilder(projection, pipelineOrder).
		WhereContains("LogicRules", &marker).
		Build()

	candidates, err := repository.QueryMany(ctx, r.db, q, args, scanStage)
	if err != nil {
		return nil, fmt.Errorf("query scheduled stages: %w", err)
	}

	return slices.DeleteFunc(candidates, func(st Stage) bool {
		rs, err := st.Rules()
		if err != nil {
			return true
		}
		return !slices.ContainsFunc(rs, func(rule rules.Rule) bool {
			return rule.Active && rule.Trigger.Type == rules.TriggerTimeElapsed
		})
	}), nil
}

func (r *repo) find(ctx context.Context, q repository.Querier, id uuid.UUID) (Stage, error) {
	stmt, args := query.NewBuilder(projection).BuildSingle("ID", id)
	return repository.QueryOne(ctx, q, stmt, args, scanStage)
}

func (r *repo) list(ctx context.Context, q repository.Querier, workflowID uuid.UUID) ([]Stage, error) {
	stmt, args := query.
		NewBuilder(projection, pipelineOrder).
		WhereEquals("WorkflowID", workflowID).
		Build()
	return repository.QueryMany(ctx, q, stmt, args, scanStage)
}

// lockPipeline locks the workflow row so pipeline mutations on the same
// workflow serialize, then loads its stage ids in order.
func lockPipeline(ctx context.Context, tx *sql.Tx, workflowID uuid.UUID) (*engine.Pipeline[uuid.UUID], error) {
	var locked uuid.UUID
	err := tx.QueryRowContext(ctx, "SELECT id FROM workflows WHERE id = $1 FOR UPDATE", workflowID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkflowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock workflow: %w", err)
	}

	ids, err := repository.QueryMany(
		ctx, tx,
		"SELECT id FROM stages WHERE workflow_id = $1 ORDER BY order_index, created_at",
		[]any{workflowID},
		scanID,
	)
	if err != nil {
		return nil, fmt.Errorf("load pipeline: %w", err)
	}

	return engine.NewPipeline(ids...)
}

// renumber writes every changed order index of the pipeline. The order
// uniqueness constraint is deferred to commit, so intermediate collisions are fine.
func renumber(ctx context.Context, tx *sql.Tx, p *engine.Pipeline[uuid.UUID]) error {
	for id, index := range p.Positions() {
		_, err := tx.ExecContext(
			ctx,
			"UPDATE stages SET order_index = $1, updated_at = NOW() WHERE id = $2 AND order_index <> $1",
			index, id,
		)
		if err != nil {
			return fmt.Errorf("renumber stage %s: %w", id, err)
		}
	}
	return nil
}

func scanID(s repository.Scanner) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.Scan(&id)
	return id, err
}
