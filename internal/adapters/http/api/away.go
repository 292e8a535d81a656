package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/adapters/repository"
	service "github.com/okian/commitquest/internal/app"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/pkg/errs"
)

// AwayDependencies defines the away period operations.
type AwayDependencies interface {
	SubmitAway(ctx context.Context, actor service.Actor, req service.AwayRequest) (model.AwayPeriod, error)
	ListAway(ctx context.Context, actor service.Actor) ([]model.AwayPeriod, error)
	ListAllAway(ctx context.Context, actor service.Actor) ([]repository.AwayWithOwner, error)
	DecideAway(ctx context.Context, actor service.Actor, id uuid.UUID, status model.AwayStatus) (model.AwayPeriod, error)
}

// AwayHandler serves leave requests and their review.
type AwayHandler struct {
	deps AwayDependencies
}

// NewAwayHandler creates a new away handler.
func NewAwayHandler(deps AwayDependencies) *AwayHandler {
	return &AwayHandler{deps: deps}
}

// HandleSubmit handles POST /api/away.
func (h *AwayHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req service.AwayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errs.WrapKind("api.away_submit", errs.ErrValidation, err))
		return
	}
	p, err := h.deps.SubmitAway(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleList handles GET /api/away.
func (h *AwayHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	out, err := h.deps.ListAway(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleListAll handles GET /api/admin/away.
func (h *AwayHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	out, err := h.deps.ListAllAway(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type decisionRequest struct {
	Status model.AwayStatus `json:"status"`
}

// HandleDecide handles PATCH /api/admin/away/{id}.
func (h *AwayHandler) HandleDecide(w http.ResponseWriter, r *http.Request) {
	const op = "api.away_decide"
	actor, _ := actorFrom(r)
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errs.Newf(op, errs.ErrValidation, "invalid away period id"))
		return
	}
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errs.WrapKind(op, errs.ErrValidation, err))
		return
	}
	p, err := h.deps.DecideAway(r.Context(), actor, id, req.Status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
