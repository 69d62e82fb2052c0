package forms

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/pkg/query"
	"github.com/JaimeStill/stagehand/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates an intake form repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "forms"),
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) List(ctx context.Context) ([]Form, error) {
	q, args := query.NewBuilder(projection, defaultSort).Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanForm)
	if err != nil {
		return nil, fmt.Errorf("query forms: %w", err)
	}
	return items, nil
}

func (r *repo) Find(ctx context.Context, applicationType string) (*Form, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ApplicationType", applicationType)

	f, err := repository.QueryOne(ctx, r.db, q, args, scanForm)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &f, nil
}

func (r *repo) Save(ctx context.Context, applicationType string, cmd Command) (*Form, error) {
	if applicationType == "" {
		return nil, fmt.Errorf("%w: application type required", ErrInvalidForm)
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if cmd.Fields == nil {
		cmd.Fields = []Field{}
	}

	fields, err := json.Marshal(cmd.Fields)
	if err != nil {
		return nil, fmt.Errorf("encode form fields: %w", err)
	}

	q := `
		INSERT INTO intake_forms(application_type, fields)
		VALUES ($1, $2)
		ON CONFLICT (application_type) DO UPDATE SET
			fields = EXCLUDED.fields,
			updated_at = NOW()
		` + returning

	f, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Form, error) {
		return repository.QueryOne(ctx, tx, q, []any{applicationType, string(fields)}, scanForm)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("intake form saved", "application_type", f.ApplicationType, "fields", len(f.Fields))
	return &f, nil
}

func (r *repo) Delete(ctx context.Context, applicationType string) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM intake_forms WHERE application_type = $1", applicationType)
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("intake form deleted", "application_type", applicationType)
	return nil
}

func (r *repo) Catalog(ctx context.Context, applicationType string) (*engine.FieldCatalog, error) {
	f, err := r.Find(ctx, applicationType)
	if errors.Is(err, ErrNotFound) {
		r.logger.Warn("no intake form, using intrinsic fields", "application_type", applicationType)
		return engine.NewFieldCatalog(), nil
	}
	if err != nil {
		return nil, err
	}
	return f.Catalog(), nil
}
