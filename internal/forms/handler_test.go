package forms_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/internal/forms"
	"github.com/JaimeStill/stagehand/pkg/routes"
)

type mockSystem struct {
	saveFn    func(ctx context.Context, applicationType string, cmd forms.Command) (*forms.Form, error)
	catalogFn func(ctx context.Context, applicationType string) (*engine.FieldCatalog, error)
}

func (m *mockSystem) Handler() *forms.Handler { return newTestHandler(m) }

func (m *mockSystem) List(context.Context) ([]forms.Form, error) { return []forms.Form{}, nil }

func (m *mockSystem) Find(context.Context, string) (*forms.Form, error) {
	return nil, forms.ErrNotFound
}

func (m *mockSystem) Save(ctx context.Context, applicationType string, cmd forms.Command) (*forms.Form, error) {
	return m.saveFn(ctx, applicationType, cmd)
}

func (m *mockSystem) Delete(context.Context, string) error { return nil }

func (m *mockSystem) Catalog(ctx context.Context, applicationType string) (*engine.FieldCatalog, error) {
	return m.catalogFn(ctx, applicationType)
}

func newTestHandler(sys forms.System) *forms.Handler {
	return forms.NewHandler(sys, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupMux(h *forms.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())
	return mux
}

func TestHandlerSave(t *testing.T) {
	var gotType string
	sys := &mockSystem{
		saveFn: func(_ context.Context, appType string, cmd forms.Command) (*forms.Form, error) {
			gotType = appType
			if err := cmd.Validate(); err != nil {
				return nil, err
			}
			return &forms.Form{ApplicationType: appType, Fields: cmd.Fields}, nil
		},
	}

	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	body := `{"fields":[{"id":"gpa","label":"GPA","input_type":"number"}]}`
	mux.ServeHTTP(rec, httptest.NewRequest("PUT", "/forms/scholarship", bytes.NewBufferString(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotType != "scholarship" {
		t.Errorf("application type = %q, want scholarship", gotType)
	}

	rec = httptest.NewRecorder()
	body = `{"fields":[{"id":"tags","input_type":"text"}]}`
	mux.ServeHTTP(rec, httptest.NewRequest("PUT", "/forms/scholarship", bytes.NewBufferString(body)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("reserved id: status = %d, want 400", rec.Code)
	}
}

func TestHandlerCatalogListsOperators(t *testing.T) {
	sys := &mockSystem{
		catalogFn: func(context.Context, string) (*engine.FieldCatalog, error) {
			return engine.NewFieldCatalog(engine.Field{ID: "gpa", Label: "GPA", Type: engine.TypeNumber}), nil
		},
	}

	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/forms/scholarship/catalog", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var fields []engine.Field
	if err := json.NewDecoder(rec.Body).Decode(&fields); err != nil {
		t.Fatalf("decode: %v", err)
	}

	last := fields[len(fields)-1]
	if last.ID != "gpa" || last.Intrinsic || len(last.Operators) != 6 {
		t.Errorf("gpa field = %+v", last)
	}
	if !fields[0].Intrinsic {
		t.Errorf("first field %q not intrinsic", fields[0].ID)
	}
}
