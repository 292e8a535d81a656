package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/internal/domain/progression"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LeaderboardRow is one ranked user.
type LeaderboardRow struct {
	Rank              int       `json:"rank"`
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Image             string    `json:"image"`
	XP                int64     `json:"xp"`
	Level             int       `json:"level"`
	ContributionCount int64     `json:"contributionCount"`
}

// Credit appends ev to the ledger and increments the owner's XP and level in
// place, in one transaction. Either both writes commit or neither does. An
// event whose DeliveryID is already in the ledger writes nothing and returns
// ErrDuplicateDelivery.
func (s *Store) Credit(ctx context.Context, ev model.ContributionEvent) (model.User, error) {
	const op = "repository.Credit"
	if ev.XPDelta <= 0 {
		return model.User{}, ErrNothingToCredit
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.Timestamp = utc(ev.Timestamp)
	if ev.DeliveryID != nil && *ev.DeliveryID == "" {
		ev.DeliveryID = nil
	}

	var out model.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ins := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "delivery_id"}},
			DoNothing: true,
		}).Create(&ev)
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 0 {
			return ErrDuplicateDelivery
		}
		res := tx.Model(&model.User{}).Where("id = ?", ev.UserID).Updates(map[string]any{
			"xp":    gorm.Expr("xp + ?", ev.XPDelta),
			"level": gorm.Expr("(xp + ?) / ? + 1", ev.XPDelta, progression.XPPerLevel),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}
		return tx.Where("id = ?", ev.UserID).First(&out).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrDuplicateDelivery) {
			return model.User{}, err
		}
		return model.User{}, storeErr(op, err)
	}
	return out, nil
}

// RecentContributions returns at most limit events of userID, newest first.
func (s *Store) RecentContributions(ctx context.Context, userID uuid.UUID, limit int) ([]model.ContributionEvent, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	var out []model.ContributionEvent
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&out).Error
	if err != nil {
		return nil, storeErr("repository.RecentContributions", err)
	}
	return out, nil
}

// ContributionsBetween returns the events of userID in [from, to), oldest first.
func (s *Store) ContributionsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.ContributionEvent, error) {
	var out []model.ContributionEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND timestamp >= ? AND timestamp < ?", userID, utc(from), utc(to)).
		Order("timestamp ASC").Find(&out).Error
	if err != nil {
		return nil, storeErr("repository.ContributionsBetween", err)
	}
	return out, nil
}

// SumXP returns the ledger total for userID.
func (s *Store) SumXP(ctx context.Context, userID uuid.UUID) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&model.ContributionEvent{}).Where("user_id = ?", userID).
		Select("COALESCE(SUM(xp_delta), 0)").Scan(&total).Error
	if err != nil {
		return 0, storeErr("repository.SumXP", err)
	}
	return total, nil
}

// CountContributions returns the size of the whole ledger.
func (s *Store) CountContributions(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&model.ContributionEvent{}).Count(&n).Error; err != nil {
		return 0, storeErr("repository.CountContributions", err)
	}
	return n, nil
}

// Leaderboard returns the top limit users by XP. Ties go to the earlier
// registered user, then to the smaller id.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	var rows []LeaderboardRow
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Select("users.id, users.name, users.image, users.xp, users.level, " +
			"(SELECT COUNT(*) FROM contributions c WHERE c.user_id = users.id) AS contribution_count").
		Order("users.xp DESC").Order("users.created_at ASC").Order("users.id ASC").
		Limit(limit).Scan(&rows).Error
	if err != nil {
		return nil, storeErr("repository.Leaderboard", err)
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows, nil
}
