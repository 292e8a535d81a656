package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/domain/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserSummary is a user row with the most recent pending weekly goal.
type UserSummary struct {
	model.User
	PendingGoal *model.WeeklyGoal `json:"pendingGoal"`
}

// UpsertUser inserts u or refreshes the profile fields of the user with the
// same GitHub id. XP, level, role and credits of an existing user are kept.
func (s *Store) UpsertUser(ctx context.Context, u model.User) (model.User, error) {
	const op = "repository.UpsertUser"
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = model.RoleUser
	}
	if u.Level < 1 {
		u.Level = 1
	}
	u.XP, u.Credits = 0, 0

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "github_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"login", "name", "email", "image", "updated_at"}),
	}).Create(&u).Error
	if err != nil {
		return model.User{}, storeErr(op, err)
	}
	return s.UserByGitHubID(ctx, u.GitHubID)
}

// UserByGitHubID resolves a GitHub sender id.
func (s *Store) UserByGitHubID(ctx context.Context, githubID string) (model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("github_id = ?", githubID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, storeErr("repository.UserByGitHubID", err)
	}
	return u, nil
}

// UserByID loads a user by primary key.
func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var u model.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, storeErr("repository.UserByID", err)
	}
	return u, nil
}

// PromoteAdmin grants the ADMIN role to the user with email, or to the
// earliest registered user when email is empty.
func (s *Store) PromoteAdmin(ctx context.Context, email string) (model.User, error) {
	const op = "repository.PromoteAdmin"
	var u model.User
	q := s.db.WithContext(ctx)
	if email = strings.TrimSpace(email); email != "" {
		q = q.Where("LOWER(email) = ?", strings.ToLower(email))
	}
	err := q.Order("created_at ASC").Order("id ASC").First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, storeErr(op, err)
	}
	if err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", u.ID).
		Update("role", model.RoleAdmin).Error; err != nil {
		return model.User{}, storeErr(op, err)
	}
	u.Role = model.RoleAdmin
	return u, nil
}

// CountUsers returns the number of registered users.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).Count(&n).Error; err != nil {
		return 0, storeErr("repository.CountUsers", err)
	}
	return n, nil
}

// ListUsers returns every user ordered by XP descending, each with their most
// recently created pending goal.
func (s *Store) ListUsers(ctx context.Context) ([]UserSummary, error) {
	const op = "repository.ListUsers"
	var users []model.User
	if err := s.db.WithContext(ctx).Order("xp DESC").Order("created_at ASC").Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, storeErr(op, err)
	}

	var goals []model.WeeklyGoal
	if err := s.db.WithContext(ctx).Where("status = ?", model.GoalPending).
		Order("created_at DESC").Find(&goals).Error; err != nil {
		return nil, storeErr(op, err)
	}
	pending := make(map[uuid.UUID]*model.WeeklyGoal, len(goals))
	for i := range goals {
		if _, ok := pending[goals[i].UserID]; !ok {
			pending[goals[i].UserID] = &goals[i]
		}
	}

	out := make([]UserSummary, len(users))
	for i, u := range users {
		out[i] = UserSummary{User: u, PendingGoal: pending[u.ID]}
	}
	return out, nil
}

// usersByID loads the users named by ids into a map.
func (s *Store) usersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.User, error) {
	out := make(map[uuid.UUID]model.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []model.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func utc(t time.Time) time.Time { return t.UTC() }
