package reviewers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/pkg/handlers"
	"github.com/JaimeStill/stagehand/pkg/pagination"
	"github.com/JaimeStill/stagehand/pkg/routes"
)

// Handler provides HTTP endpoints for reviewer types and stage assignments.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "reviewers"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for reviewer type endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/reviewer-types",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "PUT", Pattern: "/{id}", Handler: h.Update},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.Delete},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
		},
	}
}

// ConfigRoutes returns the stage-scoped reviewer assignment endpoints.
func (h *Handler) ConfigRoutes() routes.Group {
	return routes.Group{
		Prefix: "/stages/{id}/reviewers",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.StageConfigs},
			{Method: "GET", Pattern: "/{typeId}", Handler: h.FindStageConfig},
			{Method: "PUT", Pattern: "/{typeId}", Handler: h.UpsertStageConfig},
			{Method: "DELETE", Pattern: "/{typeId}", Handler: h.DeleteStageConfig},
		},
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	rt, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rt)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	rt, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, rt)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	var cmd Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	rt, err := h.sys.Update(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rt)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	if err := h.sys.Delete(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Search processes a JSON body with pagination and filter criteria.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// StageConfigs lists the reviewer types assigned to a stage.
func (h *Handler) StageConfigs(w http.ResponseWriter, r *http.Request) {
	stageID, err := handlers.PathID(r, "id")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrParentNotFound)
		return
	}

	items, err := h.sys.StageConfigs(r.Context(), stageID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

func (h *Handler) FindStageConfig(w http.ResponseWriter, r *http.Request) {
	stageID, typeID, ok := h.configKey(w, r)
	if !ok {
		return
	}

	c, err := h.sys.FindStageConfig(r.Context(), stageID, typeID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, c)
}

// UpsertStageConfig assigns a reviewer type to a stage or replaces its config.
func (h *Handler) UpsertStageConfig(w http.ResponseWriter, r *http.Request) {
	stageID, typeID, ok := h.configKey(w, r)
	if !ok {
		return
	}

	var cmd ConfigCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	c, err := h.sys.UpsertStageConfig(r.Context(), stageID, typeID, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteStageConfig(w http.ResponseWriter, r *http.Request) {
	stageID, typeID, ok := h.configKey(w, r)
	if !ok {
		return
	}

	if err := h.sys.DeleteStageConfig(r.Context(), stageID, typeID); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) configKey(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	stageID, err := handlers.PathID(r, "id")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrConfigNotFound)
		return uuid.Nil, uuid.Nil, false
	}
	typeID, err := handlers.PathID(r, "typeId")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrConfigNotFound)
		return uuid.Nil, uuid.Nil, false
	}
	return stageID, typeID, true
}
