package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GatewaySubscription is the gateway-side view of a recurring subscription.
// ApprovalURL is the user-facing link the subscriber must visit to approve
// the new subscription; it is only set on creation.
type GatewaySubscription struct {
	ID          string
	Status      string
	PlanID      string
	ApprovalURL string
}

// GatewayOrder is a one-off payment order created for an invoice
type GatewayOrder struct {
	ID          string
	Status      string
	ApprovalURL string
}

// GatewayCapture is the result of capturing an approved order
type GatewayCapture struct {
	OrderID   string
	CaptureID string
	Status    string
	Amount    decimal.Decimal
	Currency  string
}

// WebhookTransmission carries the signature headers of a gateway webhook
// delivery. They are forwarded verbatim to the gateway's verification
// endpoint; nothing here is trusted locally.
type WebhookTransmission struct {
	TransmissionID   string
	TransmissionTime string
	CertURL          string
	AuthAlgo         string
	Signature        string
}

// GatewayClient is the outbound port to the payment gateway. Implementations
// manage their own access token; callers never see or cache credentials.
type GatewayClient interface {
	// CreateProduct registers a catalog product at the gateway. Recurring
	// plans must reference a product.
	CreateProduct(ctx context.Context, name, description string) (productID string, err error)

	// CreatePlan creates a recurring billing plan for a product with the
	// given per-cycle price
	CreatePlan(ctx context.Context, productID, name string, price decimal.Decimal, currency string, cycle BillingCycle) (planID string, err error)

	// CreateSubscription starts a subscription on a plan. The returned
	// subscription is pending until the subscriber approves it via the
	// approval URL and the gateway delivers an activation event.
	CreateSubscription(ctx context.Context, planID string) (*GatewaySubscription, error)

	GetSubscription(ctx context.Context, subscriptionID string) (*GatewaySubscription, error)
	CancelSubscription(ctx context.Context, subscriptionID, reason string) error
	SuspendSubscription(ctx context.Context, subscriptionID, reason string) error
	ActivateSubscription(ctx context.Context, subscriptionID, reason string) error

	// CreateOrder creates a one-off payment order for an invoice total. The
	// invoice UUID is stamped on the order and echoed back by capture
	// webhooks so they can be correlated without a lookup table.
	CreateOrder(ctx context.Context, invoiceID uuid.UUID, invoiceNumber string, amount decimal.Decimal, currency string) (*GatewayOrder, error)

	// CaptureOrder captures an approved order. The capture ID in the result
	// is the transaction identifier payments are deduplicated on.
	CaptureOrder(ctx context.Context, orderID string) (*GatewayCapture, error)

	// VerifyWebhookSignature asks the gateway whether a webhook delivery is
	// authentic. Any transport or gateway error fails closed: the caller
	// must treat (false, err) and (false, nil) identically.
	VerifyWebhookSignature(ctx context.Context, t WebhookTransmission, event []byte) (bool, error)
}
