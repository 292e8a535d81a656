package api

import (
	"context"
	"net/http"

	"github.com/okian/commitquest/internal/adapters/repository"
	service "github.com/okian/commitquest/internal/app"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/pkg/errs"
)

// GoalsDependencies defines the weekly goal and user roster operations.
type GoalsDependencies interface {
	AssignGoal(ctx context.Context, actor service.Actor, req service.GoalRequest) (model.WeeklyGoal, error)
	ListGoals(ctx context.Context, actor service.Actor) ([]model.WeeklyGoal, error)
	ListUsers(ctx context.Context, actor service.Actor) ([]repository.UserSummary, error)
}

// GoalsHandler serves weekly goals.
type GoalsHandler struct {
	deps GoalsDependencies
}

// NewGoalsHandler creates a new goals handler.
func NewGoalsHandler(deps GoalsDependencies) *GoalsHandler {
	return &GoalsHandler{deps: deps}
}

// HandleAssign handles POST /api/admin/goals.
func (h *GoalsHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	var req service.GoalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errs.WrapKind("api.goal_assign", errs.ErrValidation, err))
		return
	}
	g, err := h.deps.AssignGoal(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// HandleList handles GET /api/goals.
func (h *GoalsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	out, err := h.deps.ListGoals(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleUsers handles GET /api/admin/users.
func (h *GoalsHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r)
	out, err := h.deps.ListUsers(r.Context(), actor)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
