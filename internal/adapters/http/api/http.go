// Package api exposes the commitquest HTTP interface.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/adapters/auth"
	"github.com/okian/commitquest/internal/adapters/repository"
	service "github.com/okian/commitquest/internal/app"
	"github.com/okian/commitquest/internal/domain/calendar"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/pkg/logger"
)

const (
	maxWebhookBody = 10 << 20
	maxRequestBody = 1 << 20
)

// Service is the set of use cases the handlers call. *service.Service implements it.
type Service interface {
	IngestWebhook(ctx context.Context, d service.WebhookDelivery) (service.WebhookResult, error)

	Profile(ctx context.Context, userID uuid.UUID) (service.Profile, error)
	Calendar(ctx context.Context, userID uuid.UUID, q service.CalendarQuery) (calendar.Calendar, error)
	Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardRow, error)

	SubmitAway(ctx context.Context, actor service.Actor, req service.AwayRequest) (model.AwayPeriod, error)
	ListAway(ctx context.Context, actor service.Actor) ([]model.AwayPeriod, error)
	ListAllAway(ctx context.Context, actor service.Actor) ([]repository.AwayWithOwner, error)
	DecideAway(ctx context.Context, actor service.Actor, id uuid.UUID, status model.AwayStatus) (model.AwayPeriod, error)

	AssignGoal(ctx context.Context, actor service.Actor, req service.GoalRequest) (model.WeeklyGoal, error)
	ListGoals(ctx context.Context, actor service.Actor) ([]model.WeeklyGoal, error)
	ListUsers(ctx context.Context, actor service.Actor) ([]repository.UserSummary, error)

	PostMessage(ctx context.Context, actor service.Actor, content string) (model.Message, error)
	ListMessages(ctx context.Context, after *time.Time) ([]repository.MessageWithAuthor, error)

	RoleOf(ctx context.Context, userID uuid.UUID) (model.Role, error)
	GetStats(ctx context.Context) map[string]any
	Ping(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	svc      Service
	verifier auth.Verifier
	logger   logger.Logger

	webhook     *WebhookHandler
	profile     *ProfileHandler
	leaderboard *LeaderboardHandler
	away        *AwayHandler
	goals       *GoalsHandler
	messages    *MessagesHandler
	health      *HealthHandler
	stats       *StatsHandler
	docs        http.Handler

	webhookSecret string
	chatRate      float64
	chatBurst     int
}

// Option configures a Server.
type Option func(*Server)

// WithWebhookSecret requires every webhook to carry a valid
// X-Hub-Signature-256 computed with secret.
func WithWebhookSecret(secret string) Option {
	return func(s *Server) { s.webhookSecret = secret }
}

// WithChatRate sets the per-user chat posting rate.
func WithChatRate(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond > 0 {
			s.chatRate = perSecond
		}
		if burst > 0 {
			s.chatBurst = burst
		}
	}
}

// WithDocs mounts the API document handler at /openapi.yaml and /api-docs.
func WithDocs(h http.Handler) Option {
	return func(s *Server) { s.docs = h }
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(svc Service, verifier auth.Verifier, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		verifier:  verifier,
		logger:    logger.Nop(),
		chatRate:  1,
		chatBurst: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.webhook = NewWebhookHandler(svc, s.webhookSecret, s.logger)
	s.profile = NewProfileHandler(svc)
	s.leaderboard = NewLeaderboardHandler(svc)
	s.away = NewAwayHandler(svc)
	s.goals = NewGoalsHandler(svc)
	s.messages = NewMessagesHandler(svc, newChatLimiter(s.chatRate, s.chatBurst))
	s.health = NewHealthHandler(svc)
	s.stats = NewStatsHandler(svc)
	return s
}

// Router returns the HTTP handler with every route attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.health.HandleHealth)
	r.Handle("/metrics", s.health.MetricsHandler())
	r.Get("/stats", s.stats.HandleStats)
	if s.docs != nil {
		r.Handle("/openapi.yaml", s.docs)
		r.Handle("/api-docs", s.docs)
	}

	r.Post("/webhooks/github", s.webhook.HandleGitHub)

	authn := auth.Authenticate(s.verifier,
		auth.WithRoleLookup(s.svc.RoleOf),
		auth.WithErrorWriter(writeAuthError))
	admin := auth.RequireRole([]model.Role{model.RoleAdmin}, auth.WithErrorWriter(writeAuthError))

	r.Route("/api", func(api chi.Router) {
		api.Get("/leaderboard", s.leaderboard.HandleGetLeaderboard)

		api.Group(func(p chi.Router) {
			p.Use(authn)
			p.Get("/me", s.profile.HandleMe)
			p.Get("/me/calendar", s.profile.HandleCalendar)
			p.Get("/users/{id}", s.profile.HandleUser)

			p.Post("/away", s.away.HandleSubmit)
			p.Get("/away", s.away.HandleList)
			p.Get("/goals", s.goals.HandleList)

			p.Get("/messages", s.messages.HandleList)
			p.Post("/messages", s.messages.HandlePost)

			p.Route("/admin", func(a chi.Router) {
				a.Use(admin)
				a.Get("/away", s.away.HandleListAll)
				a.Patch("/away/{id}", s.away.HandleDecide)
				a.Post("/goals", s.goals.HandleAssign)
				a.Get("/users", s.goals.HandleUsers)
			})
		})
	})
	return r
}

// actorFrom returns the authenticated caller. Routes behind Authenticate
// always have one.
func actorFrom(r *http.Request) (service.Actor, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		return service.Actor{}, false
	}
	return service.Actor{ID: id.UserID, Role: id.Role}, true
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decodeJSON reads a bounded JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer body.Close()
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return ErrTrailingData
	}
	return nil
}
