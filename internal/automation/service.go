package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/internal/applications"
	"github.com/JaimeStill/stagehand/internal/notify"
	"github.com/JaimeStill/stagehand/internal/reviewers"
	"github.com/JaimeStill/stagehand/rules"
)

// plan mutates a working copy of the application and returns the actions
// to apply to it, or nil when nothing should run.
type plan func(a *applications.Application, snap *snapshot) (*engine.ActionBatch, *engine.Event, error)

type service struct {
	rt     *Runtime
	engine *engine.Engine
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates the automation host over rt. cfg must be finalized.
func New(rt *Runtime, cfg Config) System {
	return newService(rt, cfg, time.Now)
}

func newService(rt *Runtime, cfg Config, now func() time.Time) *service {
	cfg.loadDefaults()
	if cfg.validate() != nil {
		cfg = Config{}
		cfg.loadDefaults()
	}

	logger := rt.Logger.With("system", "automation")
	return &service{
		rt:     rt,
		engine: engine.New(logger),
		cfg:    cfg,
		logger: logger,
		now:    now,
	}
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.logger)
}

func (s *service) Handle(ctx context.Context, id uuid.UUID, event engine.Event) (*Outcome, error) {
	return s.run(ctx, id, s.dispatch(nil, event), true)
}

func (s *service) Preview(ctx context.Context, id uuid.UUID, event engine.Event) (*Outcome, error) {
	if _, err := rules.ParseTriggerType(string(event.Type)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}
	return s.run(ctx, id, s.dispatch(nil, event), false)
}

func (s *service) SetStatus(ctx context.Context, id uuid.UUID, cmd StatusCommand) (*Outcome, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	mutate := func(a *applications.Application) {
		a.Status = cmd.Status
	}
	event := engine.Event{Type: rules.TriggerManualStatus, Status: cmd.Status}

	return s.run(ctx, id, s.dispatch(mutate, event), true)
}

func (s *service) ApplyTag(ctx context.Context, id uuid.UUID, cmd TagCommand) (*Outcome, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	mutate := func(a *applications.Application) {
		if !slices.Contains(a.Tags, cmd.Tag) {
			a.Tags = append(slices.Clone(a.Tags), cmd.Tag)
		}
	}
	event := engine.Event{Type: rules.TriggerTagApplied, Tag: cmd.Tag}

	return s.run(ctx, id, s.dispatch(mutate, event), true)
}

func (s *service) UpdateData(ctx context.Context, id uuid.UUID, cmd DataCommand) (*Outcome, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	return s.run(ctx, id, func(a *applications.Application, snap *snapshot) (*engine.ActionBatch, *engine.Event, error) {
		data := maps.Clone(a.Data)
		if data == nil {
			data = make(map[string]any, len(cmd.Data))
		}

		var events []engine.Event
		for _, field := range slices.Sorted(maps.Keys(cmd.Data)) {
			prev, had := data[field]
			next := cmd.Data[field]
			if next == nil {
				if !had {
					continue
				}
				delete(data, field)
			} else {
				if had && reflect.DeepEqual(prev, next) {
					continue
				}
				data[field] = next
			}
			events = append(events, engine.Event{Type: rules.TriggerFieldChange, Field: field})
		}
		a.Data = data

		batch, event := s.first(*a, snap, events)
		return batch, event, nil
	}, true)
}

func (s *service) SubmitReview(ctx context.Context, id uuid.UUID, cmd applications.ReviewCommand) (*Outcome, error) {
	if _, err := s.rt.Applications.SubmitReview(ctx, id, cmd); err != nil {
		return nil, err
	}

	events := []engine.Event{
		{Type: rules.TriggerReviewComplete},
		{Type: rules.TriggerScoreThreshold},
		{Type: rules.TriggerAllReviewsDone},
	}

	return s.run(ctx, id, func(a *applications.Application, snap *snapshot) (*engine.ActionBatch, *engine.Event, error) {
		batch, event := s.first(*a, snap, events)
		return batch, event, nil
	}, true)
}

// InvokeStatus runs a custom status of the application's stage. The
// optional review is stored in the same transaction as the resulting state.
func (s *service) InvokeStatus(ctx context.Context, id uuid.UUID, cmd InvokeCommand) (*Outcome, error) {
	if cmd.Name == "" {
		return nil, ErrInvalidCommand
	}

	return s.runWith(ctx, id, func(a *applications.Application, snap *snapshot) (*engine.ActionBatch, *engine.Event, error) {
		if snap.stage == nil {
			return nil, nil, applications.ErrNotInStage
		}
		status, ok := snap.stage.Status(cmd.Name)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStatus, cmd.Name)
		}
		if err := cmd.Check(status); err != nil {
			return nil, nil, err
		}

		a.Status = status.Name
		event := engine.Event{Type: rules.TriggerManualStatus, Status: status.Name}
		return &engine.ActionBatch{
			StageID:  snap.stage.ID.String(),
			RuleName: status.Name,
			Actions:  status.Actions,
		}, &event, nil
	}, cmd.Review, true)
}

// dispatch builds a plan that applies mutate, then raises event.
func (s *service) dispatch(mutate func(*applications.Application), event engine.Event) plan {
	return func(a *applications.Application, snap *snapshot) (*engine.ActionBatch, *engine.Event, error) {
		if mutate != nil {
			mutate(a)
		}
		batch, matched := s.first(*a, snap, []engine.Event{event})
		if matched == nil {
			return nil, &event, nil
		}
		return batch, matched, nil
	}
}

// first dispatches events in order and returns the first matching batch
// with the event that matched it.
func (s *service) first(a applications.Application, snap *snapshot, events []engine.Event) (*engine.ActionBatch, *engine.Event) {
	if snap.stage == nil {
		return nil, nil
	}
	stageID := snap.stage.ID.String()
	for _, ev := range events {
		batch := s.engine.Dispatch(snap.book, stageID, snap.catalog, snap.context(a, ev, s.now()))
		if batch != nil {
			return batch, &ev
		}
	}
	return nil, nil
}

func (s *service) run(ctx context.Context, id uuid.UUID, p plan, commit bool) (*Outcome, error) {
	return s.runWith(ctx, id, p, nil, commit)
}

// runWith executes p with conflict retries. A non-nil review is written with
// the application state, and forces a write even when the state is unchanged.
func (s *service) runWith(ctx context.Context, id uuid.UUID, p plan, review *applications.ReviewCommand, commit bool) (*Outcome, error) {
	var (
		out      *Outcome
		attempts int
	)

	backoff := retry.WithMaxRetries(
		uint64(s.cfg.MaxAttempts-1),
		retry.NewConstant(s.cfg.RetryDelayDuration()),
	)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		o, err := s.attempt(ctx, id, p, review, commit)
		if errors.Is(err, applications.ErrConflict) {
			s.logger.Warn("application changed during evaluation", "id", id, "attempt", attempts)
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Attempts = attempts
	if commit {
		s.deliver(ctx, out)
	}
	return out, nil
}

func (s *service) attempt(ctx context.Context, id uuid.UUID, p plan, review *applications.ReviewCommand, commit bool) (*Outcome, error) {
	current, err := s.rt.Applications.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	snap, err := s.snapshot(ctx, *current)
	if err != nil {
		return nil, err
	}

	working := *current
	working.Tags = slices.Clone(current.Tags)
	batch, event, err := p(&working, snap)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Event: event}
	next := working

	if batch != nil {
		out.Matched = true
		out.StageID = batch.StageID
		out.RuleID = batch.RuleID
		out.RuleName = batch.RuleName
		out.Actions = batch.Actions

		result, err := engine.Apply(batch.Actions, working.State(), snap.targets)
		if err != nil {
			s.logger.Warn(
				"rule actions not applied",
				"id", id,
				"stage", batch.StageID,
				"rule", batch.RuleID,
				"error", err,
			)
			return nil, fmt.Errorf("%w: rule %q: %w", ErrRuleNotApplicable, batch.RuleName, err)
		}

		next, err = working.WithState(result.State, s.now())
		if err != nil {
			return nil, err
		}
		out.Emails = result.Emails
		out.Failures = append(out.Failures, result.Failures...)
	}

	if !commit || (review == nil && !changed(*current, next)) {
		out.Application = &next
		return out, nil
	}

	var saved *applications.Application
	if review != nil {
		saved, err = s.rt.Applications.SaveWithReview(ctx, next, *review)
	} else {
		saved, err = s.rt.Applications.Save(ctx, next)
	}
	if err != nil {
		return nil, err
	}
	out.Application = saved

	if out.Matched {
		s.logger.Info(
			"rule applied",
			"id", id,
			"stage", out.StageID,
			"rule", out.RuleID,
			"name", out.RuleName,
			"version", saved.Version,
		)
	}
	return out, nil
}

// deliver sends the requested emails. A failed email is recorded on the
// outcome and never undoes the saved state.
func (s *service) deliver(ctx context.Context, out *Outcome) {
	if len(out.Emails) == 0 || s.rt.Notifier == nil {
		return
	}

	stageName := ""
	if out.Application.StageID != nil {
		if st, err := s.rt.Stages.Find(ctx, *out.Application.StageID); err == nil {
			stageName = st.Name
		}
	}

	for _, email := range out.Emails {
		_, err := s.rt.Notifier.Send(ctx, notify.Request{
			Email:       email,
			Application: *out.Application,
			StageName:   stageName,
		})
		if err != nil {
			s.logger.Error("email delivery failed", "id", out.Application.ID, "error", err)
			out.Failures = append(out.Failures, engine.Failure{
				Action: rules.ActionSendEmail,
				Error:  err.Error(),
			})
		}
	}
}

func (s *service) Access(ctx context.Context, id, reviewerTypeID uuid.UUID) (*Access, error) {
	a, err := s.rt.Applications.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.StageID == nil {
		return nil, applications.ErrNotInStage
	}

	stage, err := s.rt.Stages.Find(ctx, *a.StageID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.catalog(ctx, a.WorkflowID)
	if err != nil {
		return nil, err
	}

	var config *engine.ReviewerConfig
	typeName := ""
	sc, err := s.rt.Reviewers.FindStageConfig(ctx, stage.ID, reviewerTypeID)
	switch {
	case err == nil:
		c := sc.Engine()
		config = &c
		typeName = sc.ReviewerTypeName
	case errors.Is(err, reviewers.ErrConfigNotFound):
		t, err := s.rt.Reviewers.Find(ctx, reviewerTypeID)
		if err != nil {
			return nil, err
		}
		typeName = t.Name
	default:
		return nil, err
	}

	if !stage.VisibleTo(typeName) {
		return nil, ErrStageHidden
	}

	visible := engine.ResolveVisibleFields(stage.Privacy(), config, catalog)
	return &Access{
		ApplicationID:  a.ID,
		StageID:        stage.ID,
		ReviewerTypeID: reviewerTypeID,
		VisibleFields:  visible,
		Data:           engine.Redact(a.Data, visible),
		Prior:          engine.ResolvePriorReviewAccess(config),
	}, nil
}

func (s *service) Audit(ctx context.Context, stageID uuid.UUID) ([]engine.RuleIssue, error) {
	stage, err := s.rt.Stages.Find(ctx, stageID)
	if err != nil {
		return nil, err
	}

	rs, err := stage.Rules()
	if err != nil {
		return []engine.RuleIssue{{
			StageID: stage.ID.String(),
			Reason:  err.Error(),
		}}, nil
	}

	catalog, err := s.catalog(ctx, stage.WorkflowID)
	if err != nil {
		return nil, err
	}

	targets, err := s.targets(ctx, stage.WorkflowID)
	if err != nil {
		return nil, err
	}

	book := engine.Rulebook{stage.ID.String(): rs}
	return s.engine.Audit(book, catalog, targets), nil
}

func (s *service) Fields(ctx context.Context, workflowID uuid.UUID) (*engine.FieldCatalog, error) {
	return s.catalog(ctx, workflowID)
}

func (s *service) catalog(ctx context.Context, workflowID uuid.UUID) (*engine.FieldCatalog, error) {
	wf, err := s.rt.Workflows.Find(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return s.rt.Forms.Catalog(ctx, wf.ApplicationType)
}

// changed reports whether next differs from the stored application in any
// field a save writes.
func changed(stored, next applications.Application) bool {
	return !stored.State().Equal(next.State()) || !reflect.DeepEqual(stored.Data, next.Data)
}
