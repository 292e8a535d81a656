package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/adapters/repository"
	"github.com/okian/commitquest/internal/domain/calendar"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/internal/domain/progression"
	"github.com/okian/commitquest/pkg/errs"
)

// Profile is the read model of one user.
type Profile struct {
	ID    uuid.UUID  `json:"id"`
	Name  string     `json:"name"`
	Login string     `json:"login"`
	Image string     `json:"image"`
	Role  model.Role `json:"role"`
	progression.State
	Contributions []model.ContributionEvent `json:"contributions"`
}

// Profile returns progression and the most recent contributions of userID.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (Profile, error) {
	const op = "service.Profile"
	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return Profile{}, errs.Wrap(op, err)
	}
	recent, err := s.store.RecentContributions(ctx, userID, s.contribPageSize)
	if err != nil {
		return Profile{}, errs.Wrap(op, err)
	}
	if recent == nil {
		recent = []model.ContributionEvent{}
	}
	return Profile{
		ID:            u.ID,
		Name:          u.Name,
		Login:         u.Login,
		Image:         u.Image,
		Role:          u.Role,
		State:         progression.Derive(u.XP),
		Contributions: recent,
	}, nil
}

// CalendarQuery selects the calendar window. Zero values pick the defaults:
// the configured window length ending today in the reference time zone.
type CalendarQuery struct {
	End  calendar.Date
	Days int
}

// Calendar aggregates the contributions and away periods of userID.
func (s *Service) Calendar(ctx context.Context, userID uuid.UUID, q CalendarQuery) (calendar.Calendar, error) {
	const op = "service.Calendar"
	days := q.Days
	if days == 0 {
		days = s.windowDays
	}
	if days < 0 || days > maxWindowDays {
		return calendar.Calendar{}, errs.Newf(op, errs.ErrValidation, "days must be between 1 and %d", maxWindowDays)
	}
	end := q.End
	if end.IsZero() {
		end = s.agg.Today(s.now())
	}

	if _, err := s.store.UserByID(ctx, userID); err != nil {
		return calendar.Calendar{}, errs.Wrap(op, err)
	}

	// The grid may start up to six days before end-days once aligned to the
	// week start; one extra week of events covers that.
	first := end.AddDays(-days - 7)
	loc := s.agg.Location()
	since := time.Date(first.Year, first.Month, first.Day, 0, 0, 0, 0, loc)
	next := end.AddDays(1)
	until := time.Date(next.Year, next.Month, next.Day, 0, 0, 0, 0, loc)

	rows, err := s.store.ContributionsBetween(ctx, userID, since, until)
	if err != nil {
		return calendar.Calendar{}, errs.Wrap(op, err)
	}
	events := make([]calendar.Event, len(rows))
	for i, r := range rows {
		events[i] = calendar.Event{Timestamp: r.Timestamp, XP: r.XPDelta}
	}

	periods, err := s.store.AwayOverlapping(ctx, userID, first.Time(), end.Time())
	if err != nil {
		return calendar.Calendar{}, errs.Wrap(op, err)
	}
	away := make([]calendar.AwayPeriod, len(periods))
	for i, p := range periods {
		away[i] = calendar.AwayPeriod{
			Start:  calendar.CivilDate(p.StartDate.UTC()),
			End:    calendar.CivilDate(p.EndDate.UTC()),
			Status: p.Status,
		}
	}

	return s.agg.Aggregate(events, away, end, days), nil
}

// Leaderboard returns the top users. A limit outside (0, max] yields the max.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardRow, error) {
	if limit <= 0 || limit > s.leaderboardLimit {
		limit = s.leaderboardLimit
	}
	rows, err := s.store.Leaderboard(ctx, limit)
	if err != nil {
		return nil, errs.Wrap("service.Leaderboard", err)
	}
	if rows == nil {
		rows = []repository.LeaderboardRow{}
	}
	return rows, nil
}
