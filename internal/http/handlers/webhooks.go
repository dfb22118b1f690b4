package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zealits/bulkpayout-sub001/internal/metrics"
	"github.com/zealits/bulkpayout-sub001/internal/modules/payouts"
	"github.com/zealits/bulkpayout-sub001/internal/providers"
)

type WebhookHandler struct {
	Logger     *slog.Logger
	WebhookSvc *payouts.WebhookService
	Secret     string // shared HMAC secret; empty disables verification
}

func NewWebhookHandler(logger *slog.Logger, svc *payouts.WebhookService, secret string) *WebhookHandler {
	return &WebhookHandler{Logger: logger, WebhookSvc: svc, Secret: secret}
}

// paypalEvent is the subset of the PayPal webhook envelope we act on.
type paypalEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		PayoutItemID      string `json:"payout_item_id"`
		TransactionStatus string `json:"transaction_status"`
		PayoutBatchID     string `json:"payout_batch_id"`
		PayoutItem        struct {
			SenderItemID string `json:"sender_item_id"`
		} `json:"payout_item"`
		Errors struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"resource"`
}

// POST /webhooks/paypal
// A 200 acknowledges the event (including replays); a 500 asks the provider
// to redeliver.
func (h *WebhookHandler) HandlePayPal(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	if !h.verify(c, body) {
		metrics.WebhookEvents.WithLabelValues(providers.NamePayPal, "rejected").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid signature"})
		return
	}

	var raw paypalEvent
	if err := json.Unmarshal(body, &raw); err != nil || raw.ID == "" {
		metrics.WebhookEvents.WithLabelValues(providers.NamePayPal, "malformed").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid payload"})
		return
	}

	ev := payouts.WebhookEvent{
		EventID:       raw.ID,
		Type:          raw.EventType,
		PayoutItemID:  raw.Resource.PayoutItemID,
		PayoutBatchID: raw.Resource.PayoutBatchID,
		ItemStatus:    raw.Resource.TransactionStatus,
		ErrorCode:     raw.Resource.Errors.Name,
		ErrorMessage:  raw.Resource.Errors.Message,
	}

	if err := h.WebhookSvc.Handle(c.Request.Context(), providers.NamePayPal, ev, body); err != nil {
		metrics.WebhookEvents.WithLabelValues(providers.NamePayPal, "failed").Inc()
		h.Logger.ErrorContext(c.Request.Context(), "webhook apply failed",
			"event_id", ev.EventID, "type", ev.Type, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}

	metrics.WebhookEvents.WithLabelValues(providers.NamePayPal, "applied").Inc()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// verify checks the hex HMAC-SHA256 of the body against X-Webhook-Signature.
func (h *WebhookHandler) verify(c *gin.Context, body []byte) bool {
	if h.Secret == "" {
		return true
	}
	sig := c.GetHeader("X-Webhook-Signature")
	if sig == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(want), []byte(sig))
}
