package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/okian/commitquest/internal/adapters/repository"
	"github.com/okian/commitquest/internal/domain/model"
	"github.com/okian/commitquest/internal/domain/scoring"
	"github.com/okian/commitquest/pkg/errs"
	"github.com/okian/commitquest/pkg/logger"
	"github.com/okian/commitquest/pkg/metrics"
)

// WebhookDelivery is an inbound GitHub delivery whose signature has already
// been checked.
type WebhookDelivery struct {
	EventType  string
	DeliveryID string
	Body       []byte
}

// WebhookResult is returned to the sender. Every accepted delivery gets a 200.
type WebhookResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	XPAdded   int64  `json:"xpAdded"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// Result messages for deliveries that credit nothing.
const (
	msgRepoSkipped  = "Repository not in allow-list"
	msgNoXP         = "Event earns no XP"
	msgDuplicate    = "Delivery already processed"
	msgUnknownActor = "Sender is not a registered user"
)

// IngestWebhook scores a delivery and credits its sender. Unknown senders,
// repositories outside the allow-list and zero-XP events are accepted without
// effect. Only a non-object body and store failures are errors.
func (s *Service) IngestWebhook(ctx context.Context, d WebhookDelivery) (WebhookResult, error) {
	const op = "service.IngestWebhook"
	eventType := strings.TrimSpace(d.EventType)
	metrics.RecordWebhookReceived(eventType)

	p, err := scoring.ParsePayload(d.Body)
	if err != nil {
		metrics.RecordWebhookOutcome(metrics.OutcomeBadPayload)
		return WebhookResult{}, errs.WrapKind(op, errs.ErrValidation, err)
	}

	if !s.repoAllowed(p.Repository) {
		s.logger.Debug(ctx, "repository not allowed", logger.String("repository", p.Repository))
		metrics.RecordWebhookOutcome(metrics.OutcomeRepoSkipped)
		return WebhookResult{Success: false, Message: msgRepoSkipped}, nil
	}

	res := s.scorer.Score(eventType, p)
	if res.XP <= 0 {
		metrics.RecordWebhookOutcome(metrics.OutcomeNoXP)
		return WebhookResult{Success: true, Message: msgNoXP}, nil
	}

	if s.cachedDuplicate(ctx, d.DeliveryID) {
		s.logger.Debug(ctx, "duplicate delivery", logger.String("delivery", d.DeliveryID))
		metrics.RecordWebhookOutcome(metrics.OutcomeDuplicate)
		return WebhookResult{Success: true, Duplicate: true, Message: msgDuplicate}, nil
	}

	user, err := s.resolveSender(ctx, p)
	if err != nil {
		if errors.Is(err, errs.ErrUnknownActor) {
			s.logger.Info(ctx, "discarding event from unknown sender",
				logger.String("sender", p.SenderID),
				logger.String("login", p.SenderLogin),
				logger.String("event", eventType),
			)
			metrics.RecordWebhookOutcome(metrics.OutcomeUnknownActor)
			return WebhookResult{Success: true, Message: msgUnknownActor}, nil
		}
		metrics.RecordWebhookOutcome(metrics.OutcomeStoreError)
		return WebhookResult{}, errs.Wrap(op, err)
	}

	ev := model.ContributionEvent{
		UserID:      user.ID,
		EventType:   eventType,
		Description: res.Message,
		XPDelta:     res.XP,
		Timestamp:   s.now(),
	}
	if d.DeliveryID != "" {
		id := d.DeliveryID
		ev.DeliveryID = &id
	}
	start := time.Now()
	updated, err := s.store.Credit(ctx, ev)
	if errors.Is(err, repository.ErrDuplicateDelivery) {
		s.rememberDelivery(ctx, d.DeliveryID)
		s.logger.Debug(ctx, "delivery already in ledger", logger.String("delivery", d.DeliveryID))
		metrics.RecordWebhookOutcome(metrics.OutcomeDuplicate)
		return WebhookResult{Success: true, Duplicate: true, Message: msgDuplicate}, nil
	}
	if err != nil {
		s.logger.Error(ctx, "credit failed", logger.String("user", user.ID.String()), logger.Error(err))
		metrics.RecordWebhookOutcome(metrics.OutcomeStoreError)
		return WebhookResult{}, errs.Wrap(op, err)
	}
	s.rememberDelivery(ctx, d.DeliveryID)

	metrics.RecordWebhookOutcome(metrics.OutcomeCredited)
	metrics.RecordXPAwarded(eventType, res.XP)
	metrics.RecordCreditLatency(metrics.ElapsedMs(start))
	s.logger.Debug(ctx, "credited contribution",
		logger.String("user", user.ID.String()),
		logger.Int64("xp", res.XP),
		logger.Int64("total", updated.XP),
		logger.Int("level", updated.Level),
	)
	return WebhookResult{Success: true, Message: res.Message, XPAdded: res.XP}, nil
}

// cachedDuplicate consults the delivery cache. A cache failure is logged and
// treated as a miss; Credit still rejects the duplicate.
func (s *Service) cachedDuplicate(ctx context.Context, id string) bool {
	if s.deduper == nil || id == "" {
		return false
	}
	seen, err := s.deduper.Seen(ctx, id)
	if err != nil {
		s.logger.Warn(ctx, "delivery cache lookup failed", logger.String("delivery", id), logger.Error(err))
		return false
	}
	return seen
}

func (s *Service) rememberDelivery(ctx context.Context, id string) {
	if s.deduper == nil || id == "" {
		return
	}
	if err := s.deduper.Record(ctx, id); err != nil {
		s.logger.Warn(ctx, "delivery cache record failed", logger.String("delivery", id), logger.Error(err))
	}
}

func (s *Service) repoAllowed(repo string) bool {
	if len(s.allow) == 0 {
		return true
	}
	_, ok := s.allow[strings.ToLower(strings.TrimSpace(repo))]
	return ok
}

// resolveSender maps the payload sender to a user. A missing or unknown
// sender yields errs.ErrUnknownActor.
func (s *Service) resolveSender(ctx context.Context, p scoring.Payload) (model.User, error) {
	const op = "service.resolveSender"
	if p.SenderID == "" {
		return model.User{}, errs.New(op, errs.ErrUnknownActor)
	}
	u, err := s.store.UserByGitHubID(ctx, p.SenderID)
	if errors.Is(err, errs.ErrNotFound) {
		return model.User{}, errs.WrapKind(op, errs.ErrUnknownActor, err)
	}
	return u, err
}
