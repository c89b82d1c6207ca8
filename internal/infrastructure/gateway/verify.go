package gateway

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/portal/backend/internal/domain/billing"
)

// VerifyWebhookSignature forwards a webhook delivery's signature headers and
// raw event body to the gateway's verification endpoint. The decision is the
// gateway's alone; every local failure mode (missing headers, transport
// error, timeout, unexpected status) fails closed.
func (c *Client) VerifyWebhookSignature(ctx context.Context, t billing.WebhookTransmission, event []byte) (bool, error) {
	if t.TransmissionID == "" || t.Signature == "" || t.CertURL == "" ||
		t.AuthAlgo == "" || t.TransmissionTime == "" {
		return false, nil
	}

	var resp verifyWebhookResponse
	err := c.do(ctx, http.MethodPost, verifyPath, verifyWebhookRequest{
		AuthAlgo:         t.AuthAlgo,
		CertURL:          t.CertURL,
		TransmissionID:   t.TransmissionID,
		TransmissionSig:  t.Signature,
		TransmissionTime: t.TransmissionTime,
		WebhookID:        c.config.WebhookID,
		WebhookEvent:     event,
	}, &resp)
	if err != nil {
		c.logger.Warn("Webhook verification call failed, rejecting delivery",
			zap.String("transmission_id", t.TransmissionID),
			zap.Error(err),
		)
		return false, err
	}

	return resp.VerificationStatus == "SUCCESS", nil
}
