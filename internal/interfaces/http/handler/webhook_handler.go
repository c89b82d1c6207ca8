package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billingapp "github.com/portal/backend/internal/application/billing"
	"github.com/portal/backend/internal/domain/billing"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/infrastructure/webhook"
)

// Maximum webhook payload size. Gateway events are small; anything larger is
// not a legitimate delivery.
const maxWebhookPayloadSize = 65536

// Gateway webhook transmission headers
const (
	headerTransmissionID   = "Paypal-Transmission-Id"
	headerTransmissionTime = "Paypal-Transmission-Time"
	headerCertURL          = "Paypal-Cert-Url"
	headerAuthAlgo         = "Paypal-Auth-Algo"
	headerTransmissionSig  = "Paypal-Transmission-Sig"
)

// Tracker and identity webhook headers
const (
	headerTrackerSignature = "X-Tracker-Signature"
	headerIdentityID       = "Webhook-Id"
	headerIdentityTime     = "Webhook-Timestamp"
	headerIdentitySig      = "Webhook-Signature"
)

// WebhookHandler handles inbound webhook endpoints. These are called by
// external systems and authenticate by signature, never by bearer token.
// Rejections are opaque: a caller that fails verification learns nothing
// beyond the status code.
type WebhookHandler struct {
	BaseHandler
	webhookService   *billingapp.WebhookService
	trackerVerifier  *webhook.TrackerVerifier
	identityVerifier *webhook.IdentityVerifier
	logger           *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(
	webhookService *billingapp.WebhookService,
	trackerVerifier *webhook.TrackerVerifier,
	identityVerifier *webhook.IdentityVerifier,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		webhookService:   webhookService,
		trackerVerifier:  trackerVerifier,
		identityVerifier: identityVerifier,
		logger:           logger,
	}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/gateway", h.HandleGatewayWebhook)
		webhooks.POST("/tracker", h.HandleTrackerWebhook)
		webhooks.POST("/identity", h.HandleIdentityWebhook)
	}
}

// WebhookAck is the response body for webhook deliveries
type WebhookAck struct {
	Received  bool   `json:"received"`
	EventID   string `json:"event_id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (h *WebhookHandler) readPayload(c *gin.Context) ([]byte, bool) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookPayloadSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, WebhookAck{Message: "Failed to read request body"})
		return nil, false
	}
	if len(payload) > maxWebhookPayloadSize {
		c.JSON(http.StatusRequestEntityTooLarge, WebhookAck{Message: "Payload too large"})
		return nil, false
	}
	return payload, true
}

// HandleGatewayWebhook processes payment gateway events. The signature is
// verified remotely against the gateway before any event is applied.
func (h *WebhookHandler) HandleGatewayWebhook(c *gin.Context) {
	payload, ok := h.readPayload(c)
	if !ok {
		return
	}

	transmission := billing.WebhookTransmission{
		TransmissionID:   c.GetHeader(headerTransmissionID),
		TransmissionTime: c.GetHeader(headerTransmissionTime),
		CertURL:          c.GetHeader(headerCertURL),
		AuthAlgo:         c.GetHeader(headerAuthAlgo),
		Signature:        c.GetHeader(headerTransmissionSig),
	}

	result, err := h.webhookService.HandleGatewayWebhook(c.Request.Context(), payload, transmission)
	if err != nil {
		if errors.Is(err, shared.ErrSignatureRejected) {
			c.JSON(http.StatusUnauthorized, WebhookAck{Message: "Signature verification failed"})
			return
		}
		// Malformed payloads never become valid; a 400 stops redelivery.
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) && domainErr.Code == "INVALID_EVENT" {
			c.JSON(http.StatusBadRequest, WebhookAck{Message: "Malformed event payload"})
			return
		}
		// Transient failure. The idempotency claim was released, so a 500
		// tells the gateway to redeliver.
		c.JSON(http.StatusInternalServerError, WebhookAck{Message: "Event processing failed"})
		return
	}

	c.JSON(http.StatusOK, WebhookAck{
		Received:  true,
		EventID:   result.EventID,
		EventType: result.EventType,
		Message:   result.Message,
	})
}

// HandleTrackerWebhook verifies and acknowledges issue-tracker deliveries
func (h *WebhookHandler) HandleTrackerWebhook(c *gin.Context) {
	payload, ok := h.readPayload(c)
	if !ok {
		return
	}

	if !h.trackerVerifier.Verify(payload, c.GetHeader(headerTrackerSignature)) {
		c.JSON(http.StatusUnauthorized, WebhookAck{Message: "Signature verification failed"})
		return
	}

	h.logger.Info("Tracker webhook received",
		zap.String("event", c.GetHeader("X-Tracker-Event")),
		zap.Int("size", len(payload)))

	c.JSON(http.StatusOK, WebhookAck{Received: true})
}

// HandleIdentityWebhook verifies and acknowledges identity-provider
// deliveries
func (h *WebhookHandler) HandleIdentityWebhook(c *gin.Context) {
	payload, ok := h.readPayload(c)
	if !ok {
		return
	}

	id := c.GetHeader(headerIdentityID)
	timestamp := c.GetHeader(headerIdentityTime)
	signature := c.GetHeader(headerIdentitySig)
	if !h.identityVerifier.Verify(id, timestamp, payload, signature) {
		c.JSON(http.StatusUnauthorized, WebhookAck{Message: "Signature verification failed"})
		return
	}

	h.logger.Info("Identity webhook received",
		zap.String("delivery_id", id),
		zap.Int("size", len(payload)))

	c.JSON(http.StatusOK, WebhookAck{Received: true, EventID: id})
}
