package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/adapters/repository"
	service "github.com/okian/commitquest/internal/app"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/pkg/errs"
	"golang.org/x/time/rate"
)

// MessagesDependencies defines the chat operations.
type MessagesDependencies interface {
	PostMessage(ctx context.Context, actor service.Actor, content string) (model.Message, error)
	ListMessages(ctx context.Context, after *time.Time) ([]repository.MessageWithAuthor, error)
}

// chatLimiter keeps one token bucket per user.
type chatLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[uuid.UUID]*rate.Limiter
}

func newChatLimiter(perSecond float64, burst int) *chatLimiter {
	return &chatLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[uuid.UUID]*rate.Limiter),
	}
}

func (c *chatLimiter) allow(user uuid.UUID) bool {
	c.mu.Lock()
	l, ok := c.limiters[user]
	if !ok {
		l = rate.NewLimiter(c.limit, c.burst)
		c.limiters[user] = l
	}
	c.mu.Unlock()
	return l.Allow()
}

// MessagesHandler serves the polling chat.
type MessagesHandler struct {
	deps    MessagesDependencies
	limiter *chatLimiter
}

// NewMessagesHandler creates a new messages handler.
func NewMessagesHandler(deps MessagesDependencies, limiter *chatLimiter) *MessagesHandler {
	return &MessagesHandler{deps: deps, limiter: limiter}
}

// HandleList handles GET /api/messages?after=RFC3339.
func (h *MessagesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	var after *time.Time
	if s := r.URL.Query().Get("after"); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", errs.Newf("api.messages", errs.ErrValidation, "after must be RFC3339"))
			return
		}
		after = &t
	}
	out, err := h.deps.ListMessages(r.Context(), after)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type messageRequest struct {
	Content string `json:"content"`
}

// HandlePost handles POST /api/messages.
func (h *MessagesHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.message_post"
	actor, _ := actorFrom(r)
	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errs.WrapKind(op, errs.ErrValidation, err))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeServiceError(w, errs.Newf(op, errs.ErrValidation, "message content is required"))
		return
	}
	// Only well-formed posts spend a token.
	if !h.limiter.allow(actor.ID) {
		writeServiceError(w, errs.New(op, errs.ErrRateLimited))
		return
	}
	m, err := h.deps.PostMessage(r.Context(), actor, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}
