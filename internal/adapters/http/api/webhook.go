package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	service "github.com/okian/commitquest/internal/app"
	"github.com/okian/commitquest/pkg/errs"
	"github.com/okian/commitquest/pkg/logger"
	"github.com/okian/commitquest/pkg/metrics"
)

// GitHub delivery headers.
const (
	HeaderEvent     = "X-GitHub-Event"
	HeaderSignature = "X-Hub-Signature-256"
	HeaderDelivery  = "X-GitHub-Delivery"

	signaturePrefix = "sha256="
)

// WebhookHandler receives GitHub deliveries.
type WebhookHandler struct {
	svc    Service
	secret []byte
	logger logger.Logger
}

// NewWebhookHandler creates a webhook handler. An empty secret disables
// signature checks.
func NewWebhookHandler(svc Service, secret string, l logger.Logger) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: []byte(secret), logger: l}
}

// HandleGitHub handles POST /webhooks/github.
func (h *WebhookHandler) HandleGitHub(w http.ResponseWriter, r *http.Request) {
	const op = "api.webhook"
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", errs.WrapKind(op, ErrBadRequest, err))
		return
	}
	if len(body) > maxWebhookBody {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", ErrBodyTooLarge)
		return
	}

	if len(h.secret) > 0 && !VerifySignature(h.secret, body, r.Header.Get(HeaderSignature)) {
		metrics.RecordWebhookOutcome(metrics.OutcomeInvalidSignature)
		h.logger.Warn(r.Context(), "webhook signature rejected",
			logger.String("delivery", r.Header.Get(HeaderDelivery)))
		writeError(w, http.StatusUnauthorized, "invalid_signature", ErrInvalidSignature)
		return
	}

	res, err := h.svc.IngestWebhook(r.Context(), service.WebhookDelivery{
		EventType:  r.Header.Get(HeaderEvent),
		DeliveryID: strings.TrimSpace(r.Header.Get(HeaderDelivery)),
		Body:       body,
	})
	if err != nil {
		if !errors.Is(err, errs.ErrValidation) {
			h.logger.Error(r.Context(), "webhook processing failed", logger.Error(err))
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Sign returns the X-Hub-Signature-256 value of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether header is the sha256 HMAC of body.
// The comparison is constant time.
func VerifySignature(secret, body []byte, header string) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
