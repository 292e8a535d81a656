package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/pkg/errs"
	"github.com/okian/commitquest/pkg/logger"
	"github.com/okian/commitquest/pkg/metrics"
)

// Registration is the identity asserted by the OAuth provider.
type Registration struct {
	GitHubID string `json:"githubId"`
	Login    string `json:"login"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Image    string `json:"image"`
}

// RegisterUser creates the user for a GitHub account or refreshes its profile.
func (s *Service) RegisterUser(ctx context.Context, r Registration) (model.User, error) {
	const op = "service.RegisterUser"
	githubID := strings.TrimSpace(r.GitHubID)
	if githubID == "" {
		return model.User{}, errs.Newf(op, errs.ErrValidation, "githubId is required")
	}
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = strings.TrimSpace(r.Login)
	}
	u, err := s.store.UpsertUser(ctx, model.User{
		GitHubID: githubID,
		Login:    strings.TrimSpace(r.Login),
		Name:     name,
		Email:    strings.TrimSpace(r.Email),
		Image:    strings.TrimSpace(r.Image),
	})
	if err != nil {
		return model.User{}, errs.Wrap(op, err)
	}
	if n, err := s.store.CountUsers(ctx); err == nil {
		metrics.UpdateUsersTotal(n)
	}
	s.logger.Info(ctx, "user registered", logger.String("id", u.ID.String()), logger.String("github", githubID))
	return u, nil
}

// PromoteAdmin grants ADMIN to the user with email, or to the earliest
// registered user when email is empty.
func (s *Service) PromoteAdmin(ctx context.Context, email string) (model.User, error) {
	u, err := s.store.PromoteAdmin(ctx, email)
	if err != nil {
		return model.User{}, errs.Wrap("service.PromoteAdmin", err)
	}
	s.logger.Info(ctx, "user promoted", logger.String("id", u.ID.String()))
	return u, nil
}

// RoleOf returns the stored role of userID.
func (s *Service) RoleOf(ctx context.Context, userID uuid.UUID) (model.Role, error) {
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return "", errs.Wrap("service.RoleOf", err)
	}
	return u.Role, nil
}
