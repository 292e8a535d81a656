package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/domain/model"
)

// CreateGoal stores g as PENDING.
func (s *Store) CreateGoal(ctx context.Context, g model.WeeklyGoal) (model.WeeklyGoal, error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	g.Status = model.GoalPending
	g.WeekStartDate = utc(g.WeekStartDate)
	if err := s.db.WithContext(ctx).Create(&g).Error; err != nil {
		return model.WeeklyGoal{}, storeErr("repository.CreateGoal", err)
	}
	return g, nil
}

// GoalsByUser returns the goals of userID, newest first.
func (s *Store) GoalsByUser(ctx context.Context, userID uuid.UUID) ([]model.WeeklyGoal, error) {
	var out []model.WeeklyGoal
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").Find(&out).Error
	if err != nil {
		return nil, storeErr("repository.GoalsByUser", err)
	}
	return out, nil
}
