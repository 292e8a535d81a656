package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/okian/commitquest/internal/adapters/repository"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/pkg/errs"
	"github.com/okian/commitquest/pkg/metrics"
)

// PostMessage stores a chat message from the actor.
func (s *Service) PostMessage(ctx context.Context, actor Actor, content string) (model.Message, error) {
	const op = "service.PostMessage"
	content = strings.TrimSpace(content)
	if content == "" {
		return model.Message{}, errs.Newf(op, errs.ErrValidation, "content is required")
	}
	if n := utf8.RuneCountInString(content); n > s.maxMessageLen {
		return model.Message{}, errs.Newf(op, errs.ErrValidation, "content is %d characters, limit is %d", n, s.maxMessageLen)
	}
	m, err := s.store.CreateMessage(ctx, model.Message{
		UserID:    actor.ID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return model.Message{}, errs.Wrap(op, err)
	}
	metrics.RecordMessagePosted()
	return m, nil
}

// ListMessages returns messages created after the given instant, or the
// latest page when after is nil. Messages are in ascending creation order.
func (s *Service) ListMessages(ctx context.Context, after *time.Time) ([]repository.MessageWithAuthor, error) {
	out, err := s.store.Messages(ctx, after, s.messagesPageSize)
	if err != nil {
		return nil, errs.Wrap("service.ListMessages", err)
	}
	if out == nil {
		out = []repository.MessageWithAuthor{}
	}
	return out, nil
}
