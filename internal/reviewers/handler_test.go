package reviewers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/internal/reviewers"
	"github.com/JaimeStill/stagehand/pkg/pagination"
	"github.com/JaimeStill/stagehand/pkg/routes"
)

type mockSystem struct {
	listFn         func(ctx context.Context, page pagination.PageRequest, filters reviewers.Filters) (*pagination.PageResult[reviewers.ReviewerType], error)
	createFn       func(ctx context.Context, cmd reviewers.Command) (*reviewers.ReviewerType, error)
	deleteFn       func(ctx context.Context, id uuid.UUID) error
	stageConfigsFn func(ctx context.Context, stageID uuid.UUID) ([]reviewers.StageConfig, error)
	upsertFn       func(ctx context.Context, stageID, typeID uuid.UUID, cmd reviewers.ConfigCommand) (*reviewers.StageConfig, error)
}

func (m *mockSystem) Handler() *reviewers.Handler { return newTestHandler(m) }

func (m *mockSystem) List(ctx context.Context, page pagination.PageRequest, filters reviewers.Filters) (*pagination.PageResult[reviewers.ReviewerType], error) {
	return m.listFn(ctx, page, filters)
}

func (m *mockSystem) Find(context.Context, uuid.UUID) (*reviewers.ReviewerType, error) {
	return nil, reviewers.ErrNotFound
}

func (m *mockSystem) Create(ctx context.Context, cmd reviewers.Command) (*reviewers.ReviewerType, error) {
	return m.createFn(ctx, cmd)
}

func (m *mockSystem) Update(context.Context, uuid.UUID, reviewers.Command) (*reviewers.ReviewerType, error) {
	return nil, reviewers.ErrNotFound
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func (m *mockSystem) StageConfigs(ctx context.Context, stageID uuid.UUID) ([]reviewers.StageConfig, error) {
	return m.stageConfigsFn(ctx, stageID)
}

func (m *mockSystem) FindStageConfig(context.Context, uuid.UUID, uuid.UUID) (*reviewers.StageConfig, error) {
	return nil, reviewers.ErrConfigNotFound
}

func (m *mockSystem) UpsertStageConfig(ctx context.Context, stageID, typeID uuid.UUID, cmd reviewers.ConfigCommand) (*reviewers.StageConfig, error) {
	return m.upsertFn(ctx, stageID, typeID, cmd)
}

func (m *mockSystem) DeleteStageConfig(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func newTestHandler(sys reviewers.System) *reviewers.Handler {
	return reviewers.NewHandler(
		sys,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

func setupMux(h *reviewers.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes(), h.ConfigRoutes())
	return mux
}

func TestHandlerCreatePermissionConflict(t *testing.T) {
	sys := &mockSystem{
		createFn: func(_ context.Context, cmd reviewers.Command) (*reviewers.ReviewerType, error) {
			if err := cmd.Validate(); err != nil {
				return nil, err
			}
			return &reviewers.ReviewerType{ID: uuid.New(), Name: cmd.Name, Permissions: cmd.Permissions}, nil
		},
	}

	mux := setupMux(newTestHandler(sys))

	tests := []struct {
		name string
		body string
		want int
	}{
		{"teacher", `{"name":"Teacher","can_edit_score":true,"can_tag":true}`, http.StatusCreated},
		{"conflict", `{"name":"Observer","can_edit_score":true,"can_comment_only":true}`, http.StatusBadRequest},
		{"malformed", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("POST", "/reviewer-types", bytes.NewBufferString(tt.body)))

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHandlerListFilters(t *testing.T) {
	var captured reviewers.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, _ pagination.PageRequest, f reviewers.Filters) (*pagination.PageResult[reviewers.ReviewerType], error) {
			captured = f
			result := pagination.NewPageResult([]reviewers.ReviewerType{}, 0, 1, 20)
			return &result, nil
		},
	}

	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/reviewer-types?name=pan&workspace_id=ws1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.Name == nil || *captured.Name != "pan" {
		t.Errorf("name filter = %v, want pan", captured.Name)
	}
	if captured.WorkspaceID == nil || *captured.WorkspaceID != "ws1" {
		t.Errorf("workspace filter = %v, want ws1", captured.WorkspaceID)
	}
}

func TestHandlerDeleteInUse(t *testing.T) {
	sys := &mockSystem{
		deleteFn: func(context.Context, uuid.UUID) error { return reviewers.ErrInUse },
	}

	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/reviewer-types/"+uuid.NewString(), nil))

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestHandlerUpsertStageConfig(t *testing.T) {
	stageID, typeID := uuid.New(), uuid.New()

	var gotStage, gotType uuid.UUID
	var gotCmd reviewers.ConfigCommand
	sys := &mockSystem{
		upsertFn: func(_ context.Context, s, rt uuid.UUID, cmd reviewers.ConfigCommand) (*reviewers.StageConfig, error) {
			gotStage, gotType, gotCmd = s, rt, cmd
			return &reviewers.StageConfig{StageID: s, ReviewerTypeID: rt, MinReviewsRequired: cmd.MinReviewsRequired}, nil
		},
	}

	mux := setupMux(newTestHandler(sys))

	body := `{"min_reviews_required":2,"can_view_prior_scores":true,"field_visibility_config":{"email":false}}`
	path := "/stages/" + stageID.String() + "/reviewers/" + typeID.String()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("PUT", path, bytes.NewBufferString(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if gotStage != stageID || gotType != typeID {
		t.Errorf("key = (%s, %s), want (%s, %s)", gotStage, gotType, stageID, typeID)
	}
	if gotCmd.MinReviewsRequired != 2 || !gotCmd.CanViewPriorScores || gotCmd.FieldVisibility["email"] {
		t.Errorf("command = %+v", gotCmd)
	}

	var c reviewers.StageConfig
	if err := json.NewDecoder(rec.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.MinReviewsRequired != 2 {
		t.Errorf("min reviews = %d, want 2", c.MinReviewsRequired)
	}
}

func TestHandlerStageConfigsBadStage(t *testing.T) {
	sys := &mockSystem{}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/stages/not-a-uuid/reviewers", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
