// Package webhookhttp is the one HTTP surface the core retains: provider
// webhook ingestion. This package only verifies the webhook signature,
// parses the event envelope, and dispatches to the orchestrator; no
// auth/JWT or other HTTP transport concerns live here.
package webhookhttp

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	portssvc "github.com/bigfin/core/internal/core/ports/services"
	"github.com/bigfin/core/internal/platform/logging"
	"github.com/bigfin/core/internal/platform/metrics"
	"github.com/gin-gonic/gin"
)

// rawEvent is the wire shape of an inbound provider webhook.
type rawEvent struct {
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	CreatedOn time.Time       `json:"created_on"`
}

// transferEventData is the payload shape for transfer.* event types.
type transferEventData struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	AmountCents *int64 `json:"amount_cents"`
}

// Handler verifies, parses, and dispatches provider webhooks to an
// Orchestrator.
type Handler struct {
	orchestrator portssvc.Orchestrator
	sharedSecret string
}

// NewHandler constructs a webhook Handler. sharedSecret is the HMAC key
// used to verify the provider's signature header.
func NewHandler(orchestrator portssvc.Orchestrator, sharedSecret string) *Handler {
	return &Handler{orchestrator: orchestrator, sharedSecret: sharedSecret}
}

// RegisterRoutes attaches the webhook endpoint to a gin engine, preceded by
// any caller-supplied middleware (a rate limiter, typically).
func (h *Handler) RegisterRoutes(r gin.IRouter, mw ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, mw...), h.handle)
	r.POST("/webhooks/transfer", handlers...)
}

func (h *Handler) handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body"})
		return
	}

	timestamp := c.GetHeader("X-Webhook-Timestamp")
	signature := c.GetHeader("X-Webhook-Signature")
	if !h.verifySignature(timestamp, body, signature) {
		metrics.WebhookRejectedTotal.WithLabelValues("bad_signature").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "signature verification failed"})
		return
	}

	var raw rawEvent
	if err := json.Unmarshal(body, &raw); err != nil || raw.EventID == "" || raw.Type == "" || len(raw.Data) == 0 {
		metrics.WebhookRejectedTotal.WithLabelValues("malformed_payload").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed webhook payload"})
		return
	}

	logger := logging.FromContext(c.Request.Context())

	update, ok := parseStatusUpdate(raw)
	if !ok {
		// Unknown or non-transfer event type: acknowledge so the provider
		// does not retry.
		logger.Info("ignoring unrecognized webhook event type", "type", raw.Type)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err := h.orchestrator.ProcessStatusUpdate(c.Request.Context(), update); err != nil {
		logger.Error("status update processing failed", "error", err.Error(), "event_id", raw.EventID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// verifySignature checks HMAC-SHA256(shared_secret, timestamp + "." + body)
// in lowercase hex against the provided signature, using a constant-time
// comparison that rejects length mismatches before any byte comparison.
func (h *Handler) verifySignature(timestamp string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.sharedSecret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if len(expected) != len(signature) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// parseStatusUpdate maps a recognized transfer.* event into a StatusUpdate,
// returning ok=false for any other event type (bank-account.*, card.*,
// payment-method.*, or unknown), which is acknowledged without dispatch.
func parseStatusUpdate(raw rawEvent) (portssvc.StatusUpdate, bool) {
	switch raw.Type {
	case "transfer.created", "transfer.pending", "transfer.completed", "transfer.failed", "transfer.reversed":
	default:
		return portssvc.StatusUpdate{}, false
	}

	var data transferEventData
	if err := json.Unmarshal(raw.Data, &data); err != nil || data.ID == "" {
		return portssvc.StatusUpdate{}, false
	}

	status := data.Status
	if status == "" {
		status = eventTypeToStatus(raw.Type)
	}

	return portssvc.StatusUpdate{
		ProviderRef:    data.ID,
		ProviderStatus: status,
		AmountCents:    data.AmountCents,
		Now:            raw.CreatedOn,
	}, true
}

func eventTypeToStatus(eventType string) string {
	switch eventType {
	case "transfer.created":
		return "pending"
	case "transfer.pending":
		return "pending"
	case "transfer.completed":
		return "completed"
	case "transfer.failed":
		return "failed"
	case "transfer.reversed":
		return "returned"
	default:
		return "pending"
	}
}
