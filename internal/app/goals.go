package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/adapters/repository"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/pkg/errs"
	"github.com/okian/commitquest/pkg/metrics"
)

// GoalRequest assigns a weekly goal to a user.
type GoalRequest struct {
	UserID      string `json:"userId"`
	Description string `json:"description"`
	Target      int    `json:"target"`
}

// AssignGoal creates a PENDING goal for the current week. Admin only.
func (s *Service) AssignGoal(ctx context.Context, actor Actor, req GoalRequest) (model.WeeklyGoal, error) {
	const op = "service.AssignGoal"
	if err := actor.requireAdmin(op); err != nil {
		return model.WeeklyGoal{}, err
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		return model.WeeklyGoal{}, errs.Newf(op, errs.ErrValidation, "invalid userId")
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		return model.WeeklyGoal{}, errs.Newf(op, errs.ErrValidation, "description is required")
	}
	if req.Target <= 0 {
		return model.WeeklyGoal{}, errs.Newf(op, errs.ErrValidation, "target must be positive")
	}
	if _, err := s.store.UserByID(ctx, userID); err != nil {
		return model.WeeklyGoal{}, errs.Wrap(op, err)
	}

	g, err := s.store.CreateGoal(ctx, model.WeeklyGoal{
		UserID:        userID,
		AssignedBy:    actor.ID,
		Description:   desc,
		Target:        req.Target,
		WeekStartDate: s.agg.Today(s.now()).Time(),
	})
	if err != nil {
		return model.WeeklyGoal{}, errs.Wrap(op, err)
	}
	metrics.RecordGoalAssigned()
	return g, nil
}

// ListGoals returns the actor's goals, newest first.
func (s *Service) ListGoals(ctx context.Context, actor Actor) ([]model.WeeklyGoal, error) {
	out, err := s.store.GoalsByUser(ctx, actor.ID)
	if err != nil {
		return nil, errs.Wrap("service.ListGoals", err)
	}
	if out == nil {
		out = []model.WeeklyGoal{}
	}
	return out, nil
}

// ListUsers returns every user with their pending goal. Admin only.
func (s *Service) ListUsers(ctx context.Context, actor Actor) ([]repository.UserSummary, error) {
	const op = "service.ListUsers"
	if err := actor.requireAdmin(op); err != nil {
		return nil, err
	}
	out, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if out == nil {
		out = []repository.UserSummary{}
	}
	return out, nil
}
