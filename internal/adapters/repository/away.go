package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/domain/model"
	"gorm.io/gorm"
)

// AwayWithOwner is an away period joined with the owner's contact fields.
type AwayWithOwner struct {
	model.AwayPeriod
	OwnerName  string `json:"ownerName"`
	OwnerEmail string `json:"ownerEmail"`
}

// CreateAway stores p. A missing id is generated and the status forced to PENDING.
func (s *Store) CreateAway(ctx context.Context, p model.AwayPeriod) (model.AwayPeriod, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.Status = model.AwayPending
	p.DecidedBy, p.DecidedAt = nil, nil
	p.StartDate, p.EndDate = utc(p.StartDate), utc(p.EndDate)
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.AwayPeriod{}, storeErr("repository.CreateAway", err)
	}
	return p, nil
}

// AwayByUser returns the periods owned by userID, newest first.
func (s *Store) AwayByUser(ctx context.Context, userID uuid.UUID) ([]model.AwayPeriod, error) {
	var out []model.AwayPeriod
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").Find(&out).Error
	if err != nil {
		return nil, storeErr("repository.AwayByUser", err)
	}
	return out, nil
}

// AwayOverlapping returns the PENDING and APPROVED periods of userID that
// intersect [from, to].
func (s *Store) AwayOverlapping(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.AwayPeriod, error) {
	var out []model.AwayPeriod
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND status IN ? AND start_date <= ? AND end_date >= ?",
			userID, []model.AwayStatus{model.AwayPending, model.AwayApproved}, utc(to), utc(from)).
		Order("start_date ASC").Find(&out).Error
	if err != nil {
		return nil, storeErr("repository.AwayOverlapping", err)
	}
	return out, nil
}

// AwayAll returns every period with its owner, newest first.
func (s *Store) AwayAll(ctx context.Context) ([]AwayWithOwner, error) {
	const op = "repository.AwayAll"
	var periods []model.AwayPeriod
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&periods).Error; err != nil {
		return nil, storeErr(op, err)
	}

	ids := make([]uuid.UUID, 0, len(periods))
	for _, p := range periods {
		ids = append(ids, p.UserID)
	}
	owners, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, storeErr(op, err)
	}

	out := make([]AwayWithOwner, len(periods))
	for i, p := range periods {
		o := owners[p.UserID]
		out[i] = AwayWithOwner{AwayPeriod: p, OwnerName: o.Name, OwnerEmail: o.Email}
	}
	return out, nil
}

// DecideAway moves a PENDING period to status. The transition is a single
// conditional update, so two reviewers racing on the same record cannot both
// succeed.
func (s *Store) DecideAway(ctx context.Context, id uuid.UUID, status model.AwayStatus, decider uuid.UUID, at time.Time) (model.AwayPeriod, error) {
	const op = "repository.DecideAway"
	at = utc(at)
	res := s.db.WithContext(ctx).Model(&model.AwayPeriod{}).
		Where("id = ? AND status = ?", id, model.AwayPending).
		Updates(map[string]any{"status": status, "decided_by": decider, "decided_at": at})
	if res.Error != nil {
		return model.AwayPeriod{}, storeErr(op, res.Error)
	}

	var p model.AwayPeriod
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.AwayPeriod{}, ErrAwayNotFound
	}
	if err != nil {
		return model.AwayPeriod{}, storeErr(op, err)
	}
	if res.RowsAffected == 0 {
		return p, ErrAlreadyDecided
	}
	return p, nil
}
