package automation_test

import (
	"cmp"
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/internal/applications"
	"github.com/JaimeStill/stagehand/internal/automation"
	"github.com/JaimeStill/stagehand/internal/groups"
	"github.com/JaimeStill/stagehand/internal/notify"
	"github.com/JaimeStill/stagehand/internal/reviewers"
	"github.com/JaimeStill/stagehand/internal/stages"
	"github.com/JaimeStill/stagehand/internal/workflows"
	"github.com/JaimeStill/stagehand/rules"
)

// world is an in-memory stand-in for every system automation reads.
type world struct {
	mu sync.Mutex

	workflow    workflows.Workflow
	stages      map[uuid.UUID]*stages.Stage
	groups      []groups.Group
	stageGroups []groups.StageGroup
	types       map[uuid.UUID]reviewers.ReviewerType
	configs     []reviewers.StageConfig
	form        []engine.Field

	apps    map[uuid.UUID]applications.Application
	reviews []applications.Review
	saves   int
	// conflicts makes the next n saves lose a version race.
	conflicts int
	saveErr   error

	sent    []notify.Request
	sendErr error
}

func newWorld() *world {
	return &world{
		workflow: workflows.Workflow{
			ID:              uuid.New(),
			Name:            "Fellowship 2027",
			ApplicationType: "fellowship",
			IsActive:        true,
		},
		stages: make(map[uuid.UUID]*stages.Stage),
		types:  make(map[uuid.UUID]reviewers.ReviewerType),
		apps:   make(map[uuid.UUID]applications.Application),
		form: []engine.Field{
			{ID: "gpa", Label: "GPA", Type: engine.TypeNumber},
			{ID: "major", Label: "Major", Type: engine.TypeText},
			{ID: "email", Label: "Email", Type: engine.TypeText},
		},
	}
}

func (w *world) addStage(t *testing.T, name string, rs ...rules.Rule) *stages.Stage {
	t.Helper()
	encoded, err := rules.Encode(rs)
	if err != nil {
		t.Fatalf("encode rules: %v", err)
	}
	st := &stages.Stage{
		ID:              uuid.New(),
		WorkflowID:      w.workflow.ID,
		OrderIndex:      len(w.stages),
		Name:            name,
		StageType:       stages.TypeReview,
		Color:           "gray",
		CustomStatuses:  []rules.CustomStatus{},
		CustomTags:      []rules.TagOption{},
		HiddenPIIFields: []string{},
		LogicRules:      encoded,
	}
	w.stages[st.ID] = st
	return st
}

func (w *world) addGroup(name string) groups.Group {
	g := groups.Group{ID: uuid.New(), WorkflowID: w.workflow.ID, Name: name, Color: "red"}
	w.groups = append(w.groups, g)
	return g
}

func (w *world) addType(name string) reviewers.ReviewerType {
	rt := reviewers.ReviewerType{ID: uuid.New(), Name: name}
	w.types[rt.ID] = rt
	return rt
}

func (w *world) addApplication(stage *stages.Stage, entered time.Time) applications.Application {
	a := applications.Application{
		ID:             uuid.New(),
		WorkflowID:     w.workflow.ID,
		ApplicantName:  "Grace Hopper",
		ApplicantEmail: "grace@example.org",
		Status:         "Pending",
		Tags:           []string{},
		Data:           map[string]any{"gpa": 3.2, "major": "Physics", "email": "grace@example.org"},
		StageEnteredAt: entered,
		Version:        1,
	}
	if stage != nil {
		a.StageID = &stage.ID
	}
	w.apps[a.ID] = a
	return a
}

func (w *world) app(id uuid.UUID) applications.Application {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.apps[id]
}

func (w *world) runtime() *automation.Runtime {
	return &automation.Runtime{
		Applications: appStore{w},
		Stages:       stageStore{w},
		Workflows:    workflowStore{w},
		Groups:       groupStore{w},
		Reviewers:    reviewerStore{w},
		Forms:        formStore{w},
		Notifier:     notifier{w},
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func (w *world) service() automation.System {
	return automation.New(w.runtime(), automation.Config{MaxAttempts: 3, RetryDelay: "1ms"})
}

type appStore struct{ w *world }

func (s appStore) Find(_ context.Context, id uuid.UUID) (*applications.Application, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	a, ok := s.w.apps[id]
	if !ok {
		return nil, applications.ErrNotFound
	}
	a.Tags = slices.Clone(a.Tags)
	a.Data = maps.Clone(a.Data)
	return &a, nil
}

func (s appStore) Save(_ context.Context, a applications.Application) (*applications.Application, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	return s.save(a)
}

func (s appStore) SaveWithReview(_ context.Context, a applications.Application, cmd applications.ReviewCommand) (*applications.Application, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	r, err := s.review(a.ID, cmd)
	if err != nil {
		return nil, err
	}
	saved, err := s.save(a)
	if err != nil {
		return nil, err
	}
	s.store(r)
	return saved, nil
}

func (s appStore) SubmitReview(_ context.Context, id uuid.UUID, cmd applications.ReviewCommand) (*applications.Review, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	r, err := s.review(id, cmd)
	if err != nil {
		return nil, err
	}
	s.store(r)
	return &r, nil
}

func (s appStore) save(a applications.Application) (*applications.Application, error) {
	if s.w.saveErr != nil {
		return nil, s.w.saveErr
	}
	stored, ok := s.w.apps[a.ID]
	if !ok {
		return nil, applications.ErrNotFound
	}
	if s.w.conflicts > 0 {
		s.w.conflicts--
		stored.Version++
		s.w.apps[a.ID] = stored
	}
	if stored.Version != a.Version {
		return nil, applications.ErrConflict
	}
	a.Version++
	s.w.apps[a.ID] = a
	s.w.saves++
	return &a, nil
}

// review builds the review cmd records against the stored stage.
func (s appStore) review(id uuid.UUID, cmd applications.ReviewCommand) (applications.Review, error) {
	a, ok := s.w.apps[id]
	if !ok {
		return applications.Review{}, applications.ErrNotFound
	}
	if a.StageID == nil {
		return applications.Review{}, applications.ErrNotInStage
	}
	return applications.Review{
		ID:             uuid.New(),
		ApplicationID:  id,
		StageID:        *a.StageID,
		ReviewerID:     cmd.ReviewerID,
		ReviewerTypeID: cmd.ReviewerTypeID,
		Score:          cmd.Score,
		Comment:        cmd.Comment,
	}, nil
}

func (s appStore) store(r applications.Review) {
	s.w.reviews = slices.DeleteFunc(s.w.reviews, func(x applications.Review) bool {
		return x.ApplicationID == r.ApplicationID && x.StageID == r.StageID && x.ReviewerID == r.ReviewerID
	})
	s.w.reviews = append(s.w.reviews, r)
}

func (s appStore) Reviews(_ context.Context, id uuid.UUID, stageID *uuid.UUID) ([]applications.Review, error) {
	s.w.mu.Lock()
	defer s.w.mu.Unlock()
	var out []applications.Review
	for _, r := range s.w.reviews {
		if r.ApplicationID == id && (stageID == nil || r.StageID == *stageID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s appStore) Scores(ctx context.Context, id, stageID uuid.UUID) (applications.Scores, error) {
	reviews, _ := s.Reviews(ctx, id, &stageID)
	var sc applications.Scores
	for _, r := range reviews {
		sc.Count++
		if r.Score != nil {
			sc.Scored++
			sc.Total += *r.Score
		}
	}
	if sc.Scored > 0 {
		sc.Average = sc.Total / float64(sc.Scored)
	}
	return sc, nil
}

type stageStore struct{ w *world }

func (s stageStore) Find(_ context.Context, id uuid.UUID) (*stages.Stage, error) {
	st, ok := s.w.stages[id]
	if !ok {
		return nil, stages.ErrNotFound
	}
	return st, nil
}

func (s stageStore) List(_ context.Context, workflowID uuid.UUID) ([]stages.Stage, error) {
	out := make([]stages.Stage, 0, len(s.w.stages))
	for _, st := range s.w.stages {
		if st.WorkflowID == workflowID {
			out = append(out, *st)
		}
	}
	slices.SortFunc(out, func(a, b stages.Stage) int { return cmp.Compare(a.OrderIndex, b.OrderIndex) })
	return out, nil
}

type workflowStore struct{ w *world }

func (s workflowStore) Find(_ context.Context, id uuid.UUID) (*workflows.Workflow, error) {
	if id != s.w.workflow.ID {
		return nil, workflows.ErrNotFound
	}
	wf := s.w.workflow
	return &wf, nil
}

type groupStore struct{ w *world }

func (s groupStore) ListGroups(context.Context, uuid.UUID) ([]groups.Group, error) {
	return s.w.groups, nil
}

func (s groupStore) WorkflowStageGroups(context.Context, uuid.UUID) ([]groups.StageGroup, error) {
	return s.w.stageGroups, nil
}

type reviewerStore struct{ w *world }

func (s reviewerStore) Find(_ context.Context, id uuid.UUID) (*reviewers.ReviewerType, error) {
	rt, ok := s.w.types[id]
	if !ok {
		return nil, reviewers.ErrNotFound
	}
	return &rt, nil
}

func (s reviewerStore) StageConfigs(_ context.Context, stageID uuid.UUID) ([]reviewers.StageConfig, error) {
	var out []reviewers.StageConfig
	for _, c := range s.w.configs {
		if c.StageID == stageID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s reviewerStore) FindStageConfig(_ context.Context, stageID, typeID uuid.UUID) (*reviewers.StageConfig, error) {
	for _, c := range s.w.configs {
		if c.StageID == stageID && c.ReviewerTypeID == typeID {
			return &c, nil
		}
	}
	return nil, reviewers.ErrConfigNotFound
}

type formStore struct{ w *world }

func (s formStore) Catalog(_ context.Context, applicationType string) (*engine.FieldCatalog, error) {
	if applicationType != s.w.workflow.ApplicationType {
		return engine.NewFieldCatalog(), nil
	}
	return engine.NewFieldCatalog(s.w.form...), nil
}

type notifier struct{ w *world }

func (n notifier) Send(_ context.Context, req notify.Request) (*notify.Message, error) {
	n.w.mu.Lock()
	defer n.w.mu.Unlock()
	if n.w.sendErr != nil {
		return nil, n.w.sendErr
	}
	n.w.sent = append(n.w.sent, req)
	return &notify.Message{ID: uuid.New(), ApplicationID: req.Application.ID}, nil
}

var errRelayDown = errors.New("relay unavailable")
