package automation

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/stagehand/engine"
	"github.com/JaimeStill/stagehand/internal/applications"
	"github.com/JaimeStill/stagehand/pkg/handlers"
	"github.com/JaimeStill/stagehand/pkg/routes"
	"github.com/JaimeStill/stagehand/rules"
)

// Handler serves the endpoints whose writes run automation rules, and the
// read models derived from rule configuration.
type Handler struct {
	sys    System
	logger *slog.Logger
}

func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "automation"),
	}
}

// Routes returns the automation endpoints. They extend the application,
// stage and workflow resources, so patterns carry their full paths.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/applications/{id}/status", Handler: h.SetStatus},
			{Method: "POST", Pattern: "/applications/{id}/tags", Handler: h.ApplyTag},
			{Method: "PUT", Pattern: "/applications/{id}/data", Handler: h.UpdateData},
			{Method: "POST", Pattern: "/applications/{id}/reviews", Handler: h.SubmitReview},
			{Method: "POST", Pattern: "/applications/{id}/custom-status", Handler: h.InvokeStatus},
			{Method: "POST", Pattern: "/applications/{id}/evaluate", Handler: h.Evaluate},
			{Method: "GET", Pattern: "/applications/{id}/visible-fields", Handler: h.VisibleFields},
			{Method: "GET", Pattern: "/applications/{id}/prior-access", Handler: h.PriorAccess},
			{Method: "GET", Pattern: "/stages/{id}/rules/audit", Handler: h.Audit},
			{Method: "GET", Pattern: "/workflows/{id}/fields", Handler: h.Fields},
			{Method: "GET", Pattern: "/automation/vocabulary", Handler: h.Vocabulary},
		},
	}
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	mutate(h, w, r, h.sys.SetStatus)
}

func (h *Handler) ApplyTag(w http.ResponseWriter, r *http.Request) {
	mutate(h, w, r, h.sys.ApplyTag)
}

func (h *Handler) UpdateData(w http.ResponseWriter, r *http.Request) {
	mutate(h, w, r, h.sys.UpdateData)
}

func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	mutate(h, w, r, h.sys.SubmitReview)
}

func (h *Handler) InvokeStatus(w http.ResponseWriter, r *http.Request) {
	mutate(h, w, r, h.sys.InvokeStatus)
}

// Evaluate dry-runs an event against the application's current stage.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	mutate(h, w, r, h.sys.Preview)
}

// VisibleFields returns the redacted intake data a reviewer type may see.
// Requires the reviewer_type_id query parameter.
func (h *Handler) VisibleFields(w http.ResponseWriter, r *http.Request) {
	access, ok := h.access(w, r)
	if !ok {
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"application_id": access.ApplicationID,
		"stage_id":       access.StageID,
		"visible_fields": access.VisibleFields,
		"data":           access.Data,
	})
}

// PriorAccess reports whether a reviewer type may see earlier scores and comments.
func (h *Handler) PriorAccess(w http.ResponseWriter, r *http.Request) {
	access, ok := h.access(w, r)
	if !ok {
		return
	}

	handlers.RespondJSON(w, http.StatusOK, access.Prior)
}

func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidCommand)
		return
	}

	issues, err := h.sys.Audit(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, issues)
}

func (h *Handler) Fields(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidCommand)
		return
	}

	catalog, err := h.sys.Fields(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, catalog)
}

// Vocabulary lists the trigger types, action types and stage colors a rule
// editor can offer.
func (h *Handler) Vocabulary(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, map[string]any{
		"triggers": rules.TriggerTypes(),
		"actions":  rules.ActionTypes(),
		"colors":   rules.Palette(),
	})
}

func (h *Handler) access(w http.ResponseWriter, r *http.Request) (*Access, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, applications.ErrNotFound)
		return nil, false
	}

	typeID, err := uuid.Parse(r.URL.Query().Get("reviewer_type_id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidCommand)
		return nil, false
	}

	access, err := h.sys.Access(r.Context(), id, typeID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return nil, false
	}
	return access, true
}

type command interface {
	StatusCommand | TagCommand | DataCommand | InvokeCommand | applications.ReviewCommand | engine.Event
}

// mutate decodes the request body as C and runs it against the application
// named by the id path value.
func mutate[C command](
	h *Handler,
	w http.ResponseWriter,
	r *http.Request,
	run func(ctx context.Context, id uuid.UUID, cmd C) (*Outcome, error),
) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, applications.ErrNotFound)
		return
	}

	var cmd C
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	out, err := run(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, out)
}
