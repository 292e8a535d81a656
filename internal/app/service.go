// Package service implements the commitquest use cases on top of the store
// and the pure scoring, progression and calendar packages.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/adapters/repository"
	"github.com/okian/commitquest/internal/domain/calendar"
	"github.com/okian/commitquest/internal/domain/dedupe"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/internal/domain/scoring"
	"github.com/okian/commitquest/pkg/errs"
	"github.com/okian/commitquest/pkg/logger"
	"github.com/okian/commitquest/pkg/metrics"
)

// Defaults applied when the matching option is not given.
const (
	DefaultLeaderboardLimit      = 20
	DefaultContributionsPageSize = 50
	DefaultMessagesPageSize      = 50
	DefaultMaxMessageLength      = 1000
	maxWindowDays                = 3660
)

// Store is the persistence the service needs. *repository.Store implements it.
type Store interface {
	UpsertUser(ctx context.Context, u model.User) (model.User, error)
	UserByGitHubID(ctx context.Context, githubID string) (model.User, error)
	UserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	PromoteAdmin(ctx context.Context, email string) (model.User, error)
	CountUsers(ctx context.Context) (int64, error)
	ListUsers(ctx context.Context) ([]repository.UserSummary, error)

	Credit(ctx context.Context, ev model.ContributionEvent) (model.User, error)
	RecentContributions(ctx context.Context, userID uuid.UUID, limit int) ([]model.ContributionEvent, error)
	ContributionsBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.ContributionEvent, error)
	CountContributions(ctx context.Context) (int64, error)
	Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardRow, error)

	CreateAway(ctx context.Context, p model.AwayPeriod) (model.AwayPeriod, error)
	AwayByUser(ctx context.Context, userID uuid.UUID) ([]model.AwayPeriod, error)
	AwayOverlapping(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.AwayPeriod, error)
	AwayAll(ctx context.Context) ([]repository.AwayWithOwner, error)
	DecideAway(ctx context.Context, id uuid.UUID, status model.AwayStatus, decider uuid.UUID, at time.Time) (model.AwayPeriod, error)

	CreateGoal(ctx context.Context, g model.WeeklyGoal) (model.WeeklyGoal, error)
	GoalsByUser(ctx context.Context, userID uuid.UUID) ([]model.WeeklyGoal, error)

	CreateMessage(ctx context.Context, m model.Message) (model.Message, error)
	Messages(ctx context.Context, after *time.Time, limit int) ([]repository.MessageWithAuthor, error)

	Ping(ctx context.Context) error
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID
	Role model.Role
}

func (a Actor) requireAdmin(op string) error {
	if a.Role != model.RoleAdmin {
		return errs.New(op, errs.ErrForbidden)
	}
	return nil
}

// Service is safe for concurrent use once constructed.
type Service struct {
	store   Store
	scorer  scoring.Scorer
	deduper dedupe.Deduper
	agg     *calendar.Aggregator
	allow   map[string]struct{}

	windowDays       int
	leaderboardLimit int
	contribPageSize  int
	messagesPageSize int
	maxMessageLen    int

	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithScorer replaces the GitHub scoring table.
func WithScorer(sc scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithDeduper enables delivery-id deduplication.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) { s.deduper = d }
}

// WithAggregator sets the calendar aggregator, which fixes the reference time zone.
func WithAggregator(a *calendar.Aggregator) Option {
	return func(s *Service) {
		if a != nil {
			s.agg = a
		}
	}
}

// WithAllowedRepos restricts crediting to the given "owner/repo" names.
// An empty list allows every repository.
func WithAllowedRepos(repos []string) Option {
	return func(s *Service) {
		s.allow = make(map[string]struct{}, len(repos))
		for _, r := range repos {
			if r = strings.TrimSpace(r); r != "" {
				s.allow[strings.ToLower(r)] = struct{}{}
			}
		}
	}
}

// WithWindowDays sets the default calendar window.
func WithWindowDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.windowDays = days
		}
	}
}

// WithLeaderboardLimit sets the default and maximum leaderboard size.
func WithLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.leaderboardLimit = n
		}
	}
}

// WithContributionsPageSize bounds the contributions returned with a profile.
func WithContributionsPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.contribPageSize = n
		}
	}
}

// WithMessagesPageSize bounds a chat poll.
func WithMessagesPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.messagesPageSize = n
		}
	}
}

// WithMaxMessageLength bounds chat message length in runes.
func WithMaxMessageLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxMessageLen = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over store.
func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:            store,
		scorer:           scoring.NewGitHubScorer(),
		agg:              calendar.New(),
		allow:            map[string]struct{}{},
		windowDays:       calendar.DefaultWindowDays,
		leaderboardLimit: DefaultLeaderboardLimit,
		contribPageSize:  DefaultContributionsPageSize,
		messagesPageSize: DefaultMessagesPageSize,
		maxMessageLen:    DefaultMaxMessageLength,
		now:              time.Now,
		logger:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	stats := map[string]any{
		"allowedRepos":     len(s.allow),
		"timezone":         s.agg.Location().String(),
		"windowDays":       s.windowDays,
		"leaderboardLimit": s.leaderboardLimit,
	}
	if s.deduper != nil {
		stats["dedupeSize"] = s.deduper.Size()
	}
	if n, err := s.store.CountUsers(ctx); err == nil {
		stats["users"] = n
		metrics.UpdateUsersTotal(n)
	} else {
		s.logger.Warn(ctx, "count users failed", logger.Error(err))
	}
	if n, err := s.store.CountContributions(ctx); err == nil {
		stats["contributions"] = n
	}
	return stats
}
