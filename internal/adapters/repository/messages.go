package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/okian/commitquest/internal/domain/model"
)

// Author is the public part of a message sender.
type Author struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// MessageWithAuthor is a chat message ready for display.
type MessageWithAuthor struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	User      Author    `json:"user"`
}

// CreateMessage stores m.
func (s *Store) CreateMessage(ctx context.Context, m model.Message) (model.Message, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return model.Message{}, storeErr("repository.CreateMessage", err)
	}
	return m, nil
}

// Messages returns up to limit messages in ascending creation order. With a
// non-nil after only newer messages are returned; otherwise the latest page.
func (s *Store) Messages(ctx context.Context, after *time.Time, limit int) ([]MessageWithAuthor, error) {
	const op = "repository.Messages"
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	var msgs []model.Message
	q := s.db.WithContext(ctx).Limit(limit)
	if after != nil {
		q = q.Where("created_at > ?", utc(*after)).Order("created_at ASC").Order("id ASC")
	} else {
		q = q.Order("created_at DESC").Order("id DESC")
	}
	if err := q.Find(&msgs).Error; err != nil {
		return nil, storeErr(op, err)
	}
	if after == nil {
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
	}

	ids := make([]uuid.UUID, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.UserID)
	}
	authors, err := s.usersByID(ctx, ids)
	if err != nil {
		return nil, storeErr(op, err)
	}

	out := make([]MessageWithAuthor, len(msgs))
	for i, m := range msgs {
		a := authors[m.UserID]
		out[i] = MessageWithAuthor{
			ID:        m.ID,
			Content:   m.Content,
			CreatedAt: m.CreatedAt,
			User:      Author{Name: a.Name, Image: a.Image},
		}
	}
	return out, nil
}
