package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/portal/backend/internal/domain/billing"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/infrastructure/config"
)

// newTestClient wires a client against a stub gateway. The stub always
// serves the token endpoint; api handles everything else.
func newTestClient(t *testing.T, tokenCalls *int32, api http.HandlerFunc) *Client {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		if tokenCalls != nil {
			atomic.AddInt32(tokenCalls, 1)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "invalid_client", "error_description": "Client authentication failed",
			})
			return
		}
		json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: "test-token", TokenType: "Bearer", ExpiresIn: 3600,
		})
	})
	mux.HandleFunc("/", api)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewClient(config.GatewayConfig{
		BaseURL:      server.URL,
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		WebhookID:    "WH-123",
		Timeout:      5 * time.Second,
	}, zap.NewNop())
}

func TestClient_TokenCachedAcrossCalls(t *testing.T) {
	var tokenCalls int32
	client := newTestClient(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(createProductResponse{ID: "PROD-1"})
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := client.CreateProduct(ctx, "Support Gold", "Gold support tier")
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestClient_TokenRefetchedAfterExpiry(t *testing.T) {
	var tokenCalls int32
	client := newTestClient(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(createProductResponse{ID: "PROD-1"})
	})

	ctx := context.Background()
	_, err := client.CreateProduct(ctx, "Support Gold", "")
	require.NoError(t, err)

	// Force expiry; the next call must re-authenticate.
	client.mu.Lock()
	client.tokenExpiry = time.Now().Add(-time.Minute)
	client.mu.Unlock()

	_, err = client.CreateProduct(ctx, "Support Gold", "")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&tokenCalls))
}

func TestClient_TokenFetchFailure(t *testing.T) {
	client := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("api must not be reached without a token")
	})
	client.config.ClientSecret = "wrong"

	_, err := client.CreateProduct(context.Background(), "Support Gold", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrGatewayAuth)
}

func TestClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"unauthorized maps to auth error", http.StatusUnauthorized, shared.ErrGatewayAuth},
		{"bad request maps to invalid input", http.StatusBadRequest, shared.ErrInvalidInput},
		{"not found maps to not found", http.StatusNotFound, shared.ErrNotFound},
		{"server error maps to gateway rejected", http.StatusInternalServerError, shared.ErrGatewayRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(apiErrorBody{
					Name: "TEST_ERROR", Message: "test failure", DebugID: "dbg-1",
				})
			})

			_, err := client.GetSubscription(context.Background(), "I-XYZ")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "TEST_ERROR", apiErr.Name)
		})
	}
}

func TestClient_CreatePlan(t *testing.T) {
	client := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, plansPath, r.URL.Path)

		var req createPlanRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "PROD-1", req.ProductID)
		require.Len(t, req.BillingCycles, 1)
		assert.Equal(t, "YEAR", req.BillingCycles[0].Frequency.IntervalUnit)
		assert.Equal(t, "499.00", req.BillingCycles[0].PricingScheme.FixedPrice.Value)
		assert.Equal(t, "USD", req.BillingCycles[0].PricingScheme.FixedPrice.CurrencyCode)
		assert.Zero(t, req.BillingCycles[0].TotalCycles)

		json.NewEncoder(w).Encode(createPlanResponse{ID: "P-1"})
	})

	planID, err := client.CreatePlan(context.Background(), "PROD-1", "Support Gold (annual)",
		decimal.NewFromInt(499), "USD", billing.BillingCycleAnnual)
	require.NoError(t, err)
	assert.Equal(t, "P-1", planID)
}

func TestClient_CreateSubscription(t *testing.T) {
	client := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, subscriptionsPath, r.URL.Path)
		json.NewEncoder(w).Encode(subscriptionResponse{
			ID:     "I-SUB1",
			Status: "APPROVAL_PENDING",
			PlanID: "P-1",
			Links: []link{
				{Rel: "self", Href: "https://gateway.example/self"},
				{Rel: "approve", Href: "https://gateway.example/approve/I-SUB1"},
			},
		})
	})

	sub, err := client.CreateSubscription(context.Background(), "P-1")
	require.NoError(t, err)
	assert.Equal(t, "I-SUB1", sub.ID)
	assert.Equal(t, "APPROVAL_PENDING", sub.Status)
	assert.Equal(t, "https://gateway.example/approve/I-SUB1", sub.ApprovalURL)
}

func TestClient_CancelSubscriptionNoContent(t *testing.T) {
	client := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, subscriptionsPath+"/I-SUB1/cancel", r.URL.Path)

		var req subscriptionStatusRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "customer request", req.Reason)

		w.WriteHeader(http.StatusNoContent)
	})

	err := client.CancelSubscription(context.Background(), "I-SUB1", "customer request")
	require.NoError(t, err)
}

func TestClient_CreateAndCaptureOrder(t *testing.T) {
	invoiceID := uuid.New()
	client := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ordersPath:
			var req createOrderRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "CAPTURE", req.Intent)
			require.Len(t, req.PurchaseUnits, 1)
			assert.Equal(t, "INV-2026-0006", req.PurchaseUnits[0].InvoiceID)
			assert.Equal(t, invoiceID.String(), req.PurchaseUnits[0].CustomID)
			assert.Equal(t, "1296.00", req.PurchaseUnits[0].Amount.Value)

			json.NewEncoder(w).Encode(orderResponse{
				ID:     "ORD-1",
				Status: "CREATED",
				Links:  []link{{Rel: "approve", Href: "https://gateway.example/approve/ORD-1"}},
			})
		case ordersPath + "/ORD-1/capture":
			resp := orderResponse{ID: "ORD-1", Status: "COMPLETED"}
			resp.PurchaseUnits = []purchaseUnitsResp{{}}
			resp.PurchaseUnits[0].Payments.Captures = []captureResp{{
				ID: "CAP-1", Status: "COMPLETED",
				Amount: money{CurrencyCode: "USD", Value: "1296.00"},
			}}
			json.NewEncoder(w).Encode(resp)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	ctx := context.Background()
	order, err := client.CreateOrder(ctx, invoiceID, "INV-2026-0006", decimal.NewFromInt(1296), "USD")
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", order.ID)
	assert.Equal(t, "https://gateway.example/approve/ORD-1", order.ApprovalURL)

	capture, err := client.CaptureOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "CAP-1", capture.CaptureID)
	assert.Equal(t, "ORD-1", capture.OrderID)
	assert.True(t, capture.Amount.Equal(decimal.RequireFromString("1296.00")))
	assert.Equal(t, "USD", capture.Currency)
}

func TestClient_VerifyWebhookSignature(t *testing.T) {
	transmission := billing.WebhookTransmission{
		TransmissionID:   "tx-1",
		TransmissionTime: "2026-08-28T10:00:00Z",
		CertURL:          "https://gateway.example/cert.pem",
		AuthAlgo:         "SHA256withRSA",
		Signature:        "c2ln",
	}
	event := []byte(`{"id":"WH-EVT-1"}`)

	t.Run("verified delivery", func(t *testing.T) {
		client := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, verifyPath, r.URL.Path)

			var req verifyWebhookRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "WH-123", req.WebhookID)
			assert.Equal(t, "tx-1", req.TransmissionID)
			assert.JSONEq(t, string(event), string(req.WebhookEvent))

			json.NewEncoder(w).Encode(verifyWebhookResponse{VerificationStatus: "SUCCESS"})
		})

		ok, err := client.VerifyWebhookSignature(context.Background(), transmission, event)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("gateway says failure", func(t *testing.T) {
		client := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(verifyWebhookResponse{VerificationStatus: "FAILURE"})
		})

		ok, err := client.VerifyWebhookSignature(context.Background(), transmission, event)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing headers fail closed without a call", func(t *testing.T) {
		client := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("verification endpoint must not be called")
		})

		incomplete := transmission
		incomplete.Signature = ""
		ok, err := client.VerifyWebhookSignature(context.Background(), incomplete, event)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("gateway error fails closed", func(t *testing.T) {
		client := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		ok, err := client.VerifyWebhookSignature(context.Background(), transmission, event)
		require.Error(t, err)
		assert.False(t, ok)
	})
}
