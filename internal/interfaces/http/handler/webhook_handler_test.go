package handler

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	billingapp "github.com/portal/backend/internal/application/billing"
	"github.com/portal/backend/internal/domain/billing"
	"github.com/portal/backend/internal/infrastructure/webhook"
)

// stubGatewayClient implements billing.GatewayClient with a fixed
// verification outcome. No other method is expected to be called.
type stubGatewayClient struct {
	verified  bool
	verifyErr error
}

func (s *stubGatewayClient) CreateProduct(context.Context, string, string) (string, error) {
	panic("unexpected gateway call")
}

func (s *stubGatewayClient) CreatePlan(context.Context, string, string, decimal.Decimal, string, billing.BillingCycle) (string, error) {
	panic("unexpected gateway call")
}

func (s *stubGatewayClient) CreateSubscription(context.Context, string) (*billing.GatewaySubscription, error) {
	panic("unexpected gateway call")
}

func (s *stubGatewayClient) GetSubscription(context.Context, string) (*billing.GatewaySubscription, error) {
	panic("unexpected gateway call")
}

func (s *stubGatewayClient) CancelSubscription(context.Context, string, string) error {
	panic("unexpected gateway call")
}

func (s *stubGatewayClient) SuspendSubscription(context.Context, string, string) error {
	panic("unexpected gateway call")
}

func (s *stubGatewayClient) ActivateSubscription(context.Context, string, string) error {
	panic("unexpected gateway call")
}

func (s *stubGatewayClient) CreateOrder(context.Context, uuid.UUID, string, decimal.Decimal, string) (*billing.GatewayOrder, error) {
	panic("unexpected gateway call")
}

func (s *stubGatewayClient) CaptureOrder(context.Context, string) (*billing.GatewayCapture, error) {
	panic("unexpected gateway call")
}

func (s *stubGatewayClient) VerifyWebhookSignature(context.Context, billing.WebhookTransmission, []byte) (bool, error) {
	return s.verified, s.verifyErr
}

func newWebhookRouter(t *testing.T, gateway *stubGatewayClient) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	service := billingapp.NewWebhookService(billingapp.WebhookServiceConfig{
		Gateway: gateway,
		Logger:  zap.NewNop(),
	})
	h := NewWebhookHandler(service,
		webhook.NewTrackerVerifier("tracker-secret"),
		webhook.NewIdentityVerifier("identity-secret", 5*time.Minute),
		zap.NewNop())

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func postWebhook(r *gin.Engine, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func gatewayHeaders() map[string]string {
	return map[string]string{
		headerTransmissionID:   "tx-1",
		headerTransmissionTime: "2026-08-28T10:00:00Z",
		headerCertURL:          "https://gateway.example/cert.pem",
		headerAuthAlgo:         "SHA256withRSA",
		headerTransmissionSig:  "c2ln",
	}
}

func TestGatewayWebhook_RejectedSignatureIsOpaque401(t *testing.T) {
	r := newWebhookRouter(t, &stubGatewayClient{verified: false})

	body := []byte(`{"id":"EVT-1","event_type":"BILLING.SUBSCRIPTION.ACTIVATED","resource":{"id":"I-1"}}`)
	w := postWebhook(r, "/api/v1/webhooks/gateway", body, gatewayHeaders())

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotContains(t, w.Body.String(), "EVT-1")
}

func TestGatewayWebhook_UnhandledEventTypeAcknowledged(t *testing.T) {
	r := newWebhookRouter(t, &stubGatewayClient{verified: true})

	body := []byte(`{"id":"EVT-2","event_type":"CUSTOMER.DISPUTE.CREATED","create_time":"2026-08-28T10:00:00Z","resource":{"id":"D-1"}}`)
	w := postWebhook(r, "/api/v1/webhooks/gateway", body, gatewayHeaders())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"received":true`)
}

func TestGatewayWebhook_MalformedKnownEventRejected(t *testing.T) {
	r := newWebhookRouter(t, &stubGatewayClient{verified: true})

	// Known event type but no create_time; redelivery cannot fix it.
	body := []byte(`{"id":"EVT-3","event_type":"BILLING.SUBSCRIPTION.ACTIVATED","resource":{"id":"I-1"}}`)
	w := postWebhook(r, "/api/v1/webhooks/gateway", body, gatewayHeaders())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGatewayWebhook_OversizedPayloadRejected(t *testing.T) {
	r := newWebhookRouter(t, &stubGatewayClient{verified: true})

	body := bytes.Repeat([]byte("a"), maxWebhookPayloadSize+1)
	w := postWebhook(r, "/api/v1/webhooks/gateway", body, gatewayHeaders())

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestTrackerWebhook_ValidSignature(t *testing.T) {
	r := newWebhookRouter(t, &stubGatewayClient{})

	body := []byte(`{"action":"opened","issue":{"id":7}}`)
	mac := hmac.New(sha256.New, []byte("tracker-secret"))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	w := postWebhook(r, "/api/v1/webhooks/tracker", body, map[string]string{
		headerTrackerSignature: signature,
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTrackerWebhook_BadSignature(t *testing.T) {
	r := newWebhookRouter(t, &stubGatewayClient{})

	w := postWebhook(r, "/api/v1/webhooks/tracker", []byte(`{}`), map[string]string{
		headerTrackerSignature: hex.EncodeToString(bytes.Repeat([]byte{0xab}, 32)),
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrackerWebhook_MissingSignature(t *testing.T) {
	r := newWebhookRouter(t, &stubGatewayClient{})

	w := postWebhook(r, "/api/v1/webhooks/tracker", []byte(`{}`), nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestIdentityWebhook_ValidSignature(t *testing.T) {
	r := newWebhookRouter(t, &stubGatewayClient{})

	body := []byte(`{"type":"user.created"}`)
	id := "msg-1"
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	mac := hmac.New(sha256.New, []byte("identity-secret"))
	fmt.Fprintf(mac, "%s.%s.%s", id, timestamp, body)
	signature := "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))

	w := postWebhook(r, "/api/v1/webhooks/identity", body, map[string]string{
		headerIdentityID:   id,
		headerIdentityTime: timestamp,
		headerIdentitySig:  signature,
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdentityWebhook_StaleTimestampRejected(t *testing.T) {
	r := newWebhookRouter(t, &stubGatewayClient{})

	body := []byte(`{"type":"user.created"}`)
	id := "msg-1"
	timestamp := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)

	mac := hmac.New(sha256.New, []byte("identity-secret"))
	fmt.Fprintf(mac, "%s.%s.%s", id, timestamp, body)
	signature := "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))

	w := postWebhook(r, "/api/v1/webhooks/identity", body, map[string]string{
		headerIdentityID:   id,
		headerIdentityTime: timestamp,
		headerIdentitySig:  signature,
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
