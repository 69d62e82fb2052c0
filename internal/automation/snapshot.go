package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/internal/applications"
	"github.com/JaimeStill/stagehand/internal/reviewers"
	"github.com/JaimeStill/stagehand/internal/stages"
)

// snapshot is everything rule evaluation reads besides the application
// itself. stage is nil when the application is not in a stage.
type snapshot struct {
	stage    *stages.Stage
	book     engine.Rulebook
	catalog  *engine.FieldCatalog
	targets  engine.Targets
	required map[string]int
	reviews  []applications.Review
	scores   applications.Scores
}

func (snap *snapshot) context(a applications.Application, event engine.Event, now time.Time) engine.Context {
	return engine.Context{
		Event:  event,
		Values: a.Values(snap.scores, now),
		Reviews: engine.ReviewProgress{
			Required:  snap.required,
			Submitted: applications.Submissions(snap.reviews),
		},
	}
}

func (s *service) snapshot(ctx context.Context, a applications.Application) (*snapshot, error) {
	catalog, err := s.catalog(ctx, a.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("load field catalog: %w", err)
	}

	snap := &snapshot{catalog: catalog}
	if a.StageID == nil {
		return snap, nil
	}

	stage, err := s.rt.Stages.Find(ctx, *a.StageID)
	if err != nil {
		return nil, fmt.Errorf("load stage: %w", err)
	}
	snap.stage = stage

	rs, err := stage.Rules()
	if err != nil {
		s.logger.Warn("stage rules unreadable", "stage", stage.ID, "error", err)
	}
	snap.book = engine.Rulebook{stage.ID.String(): rs}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		targets, err := s.targets(gctx, a.WorkflowID)
		if err != nil {
			return fmt.Errorf("load targets: %w", err)
		}
		snap.targets = targets
		return nil
	})

	g.Go(func() error {
		configs, err := s.rt.Reviewers.StageConfigs(gctx, stage.ID)
		if err != nil {
			return fmt.Errorf("load reviewer configs: %w", err)
		}
		snap.required = engine.Requirements(reviewers.EngineConfigs(configs))
		return nil
	})

	g.Go(func() error {
		reviews, err := s.rt.Applications.Reviews(gctx, a.ID, &stage.ID)
		if err != nil {
			return fmt.Errorf("load reviews: %w", err)
		}
		snap.reviews = reviews
		return nil
	})

	g.Go(func() error {
		scores, err := s.rt.Applications.Scores(gctx, a.ID, stage.ID)
		if err != nil {
			return fmt.Errorf("load scores: %w", err)
		}
		snap.scores = scores
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// targets loads every move destination of a workflow.
func (s *service) targets(ctx context.Context, workflowID uuid.UUID) (engine.Targets, error) {
	sts, err := s.rt.Stages.List(ctx, workflowID)
	if err != nil {
		return engine.Targets{}, err
	}
	gs, err := s.rt.Groups.ListGroups(ctx, workflowID)
	if err != nil {
		return engine.Targets{}, err
	}
	sgs, err := s.rt.Groups.WorkflowStageGroups(ctx, workflowID)
	if err != nil {
		return engine.Targets{}, err
	}

	t := engine.Targets{
		Stages:      make([]engine.Target, len(sts)),
		Groups:      make([]engine.Target, len(gs)),
		StageGroups: make([]engine.Target, len(sgs)),
	}
	for i, st := range sts {
		t.Stages[i] = engine.Target{ID: st.ID.String(), Name: st.Name}
	}
	for i, g := range gs {
		t.Groups[i] = engine.Target{ID: g.ID.String(), Name: g.Name}
	}
	for i, sg := range sgs {
		t.StageGroups[i] = engine.Target{ID: sg.ID.String(), Name: sg.Name}
	}
	return t, nil
}
