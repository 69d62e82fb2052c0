package forms

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/stagehand/pkg/handlers"
	"github.com/JaimeStill/stagehand/pkg/routes"
)

// Handler provides HTTP endpoints for intake forms.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "forms"),
	}
}

// Routes returns the route group definition for intake form endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/forms",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{type}", Handler: h.Find},
			{Method: "PUT", Pattern: "/{type}", Handler: h.Save},
			{Method: "DELETE", Pattern: "/{type}", Handler: h.Delete},
			{Method: "GET", Pattern: "/{type}/catalog", Handler: h.Catalog},
		},
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.sys.List(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	f, err := h.sys.Find(r.Context(), r.PathValue("type"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, f)
}

// Save replaces the form of the application type in the path.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	f, err := h.sys.Save(r.Context(), r.PathValue("type"), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, f)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sys.Delete(r.Context(), r.PathValue("type")); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Catalog returns the evaluable fields, intrinsic first, with their legal operators.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.sys.Catalog(r.Context(), r.PathValue("type"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, catalog)
}
