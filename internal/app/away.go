package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/adapters/repository"
	"github.com/okian/commitquest/internal/domain/calendar"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/pkg/errs"
	"github.com/okian/commitquest/pkg/logger"
	"github.com/okian/commitquest/pkg/metrics"
)

// AwayRequest is a leave request with YYYY-MM-DD dates. EndDate is inclusive.
type AwayRequest struct {
	Reason    string `json:"reason"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// SubmitAway records a PENDING away period owned by the actor.
func (s *Service) SubmitAway(ctx context.Context, actor Actor, req AwayRequest) (model.AwayPeriod, error) {
	const op = "service.SubmitAway"
	reason := strings.TrimSpace(req.Reason)
	if reason == "" || strings.TrimSpace(req.StartDate) == "" || strings.TrimSpace(req.EndDate) == "" {
		return model.AwayPeriod{}, errs.Newf(op, errs.ErrValidation, "reason, startDate and endDate are required")
	}
	start, err := calendar.ParseDate(strings.TrimSpace(req.StartDate))
	if err != nil {
		return model.AwayPeriod{}, errs.WrapKind(op, errs.ErrValidation, err)
	}
	end, err := calendar.ParseDate(strings.TrimSpace(req.EndDate))
	if err != nil {
		return model.AwayPeriod{}, errs.WrapKind(op, errs.ErrValidation, err)
	}
	if end.Before(start) {
		return model.AwayPeriod{}, errs.Newf(op, errs.ErrValidation, "endDate %s is before startDate %s", end, start)
	}

	p, err := s.store.CreateAway(ctx, model.AwayPeriod{
		UserID:    actor.ID,
		Reason:    reason,
		StartDate: start.Time(),
		EndDate:   end.Time(),
	})
	if err != nil {
		return model.AwayPeriod{}, errs.Wrap(op, err)
	}
	return p, nil
}

// ListAway returns the actor's own away periods, newest first.
func (s *Service) ListAway(ctx context.Context, actor Actor) ([]model.AwayPeriod, error) {
	out, err := s.store.AwayByUser(ctx, actor.ID)
	if err != nil {
		return nil, errs.Wrap("service.ListAway", err)
	}
	if out == nil {
		out = []model.AwayPeriod{}
	}
	return out, nil
}

// ListAllAway returns every away period. Admin only.
func (s *Service) ListAllAway(ctx context.Context, actor Actor) ([]repository.AwayWithOwner, error) {
	const op = "service.ListAllAway"
	if err := actor.requireAdmin(op); err != nil {
		return nil, err
	}
	out, err := s.store.AwayAll(ctx)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	if out == nil {
		out = []repository.AwayWithOwner{}
	}
	return out, nil
}

// DecideAway approves or rejects a PENDING away period. Admin only.
func (s *Service) DecideAway(ctx context.Context, actor Actor, id uuid.UUID, status model.AwayStatus) (model.AwayPeriod, error) {
	const op = "service.DecideAway"
	if err := actor.requireAdmin(op); err != nil {
		return model.AwayPeriod{}, err
	}
	status = model.AwayStatus(strings.ToUpper(strings.TrimSpace(string(status))))
	if !status.IsDecision() {
		return model.AwayPeriod{}, errs.Newf(op, errs.ErrValidation, "status must be APPROVED or REJECTED")
	}

	p, err := s.store.DecideAway(ctx, id, status, actor.ID, s.now())
	if err != nil {
		return p, errs.Wrap(op, err)
	}
	metrics.RecordAwayDecision(string(status))
	s.logger.Info(ctx, "away period decided",
		logger.String("id", id.String()),
		logger.String("status", string(status)),
		logger.String("reviewer", actor.ID.String()),
	)
	return p, nil
}
