package groups

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/pkg/handlers"
	"github.com/JaimeStill/stagehand/pkg/routes"
)

// Handler provides HTTP endpoints for application groups and stage groups.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "groups"),
	}
}

// Routes returns the route group for workflow-scoped application groups.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/groups",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.ListGroups},
			{Method: "GET", Pattern: "/{id}", Handler: h.FindGroup},
			{Method: "POST", Pattern: "", Handler: h.CreateGroup},
			{Method: "PUT", Pattern: "/{id}", Handler: h.UpdateGroup},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.DeleteGroup},
			{Method: "POST", Pattern: "/system", Handler: h.EnsureSystemGroups},
		},
	}
}

// StageRoutes returns the route group for stage-scoped triage groups.
func (h *Handler) StageRoutes() routes.Group {
	return routes.Group{
		Prefix: "/stage-groups",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.ListStageGroups},
			{Method: "GET", Pattern: "/{id}", Handler: h.FindStageGroup},
			{Method: "POST", Pattern: "", Handler: h.CreateStageGroup},
			{Method: "PUT", Pattern: "/{id}", Handler: h.UpdateStageGroup},
			{Method: "DELETE", Pattern: "/{id}", Handler: h.DeleteStageGroup},
		},
	}
}

// ListGroups returns the groups of the workflow named by the workflow_id query parameter.
func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.URL.Query().Get("workflow_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrParentRequired)
		return
	}

	items, err := h.sys.ListGroups(r.Context(), workflowID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

func (h *Handler) FindGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	g, err := h.sys.FindGroup(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, g)
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var cmd GroupCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	g, err := h.sys.CreateGroup(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, g)
}

func (h *Handler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	var cmd GroupCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	g, err := h.sys.UpdateGroup(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, g)
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	if err := h.sys.DeleteGroup(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// EnsureSystemGroups creates the missing system groups for the workflow_id query parameter.
func (h *Handler) EnsureSystemGroups(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(r.URL.Query().Get("workflow_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrParentRequired)
		return
	}

	items, err := h.sys.EnsureSystemGroups(r.Context(), workflowID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

// ListStageGroups returns the stage groups of the stage named by the stage_id
// query parameter, or of every stage in the workflow named by workflow_id.
func (h *Handler) ListStageGroups(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		items []StageGroup
		err   error
	)

	if stageID, perr := uuid.Parse(q.Get("stage_id")); perr == nil {
		items, err = h.sys.ListStageGroups(r.Context(), stageID)
	} else if workflowID, perr := uuid.Parse(q.Get("workflow_id")); perr == nil {
		items, err = h.sys.WorkflowStageGroups(r.Context(), workflowID)
	} else {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrParentRequired)
		return
	}

	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

func (h *Handler) FindStageGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	g, err := h.sys.FindStageGroup(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, g)
}

func (h *Handler) CreateStageGroup(w http.ResponseWriter, r *http.Request) {
	var cmd StageGroupCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	g, err := h.sys.CreateStageGroup(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, g)
}

func (h *Handler) UpdateStageGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	var cmd StageGroupCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	g, err := h.sys.UpdateStageGroup(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, g)
}

func (h *Handler) DeleteStageGroup(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	if err := h.sys.DeleteStageGroup(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
