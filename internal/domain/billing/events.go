package billing

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/portal/backend/internal/domain/shared"
)

// GatewayEventType enumerates the gateway webhook events the lifecycle
// controller understands. Anything else is acknowledged and ignored.
type GatewayEventType string

const (
	EventSubscriptionActivated GatewayEventType = "BILLING.SUBSCRIPTION.ACTIVATED"
	EventSubscriptionCancelled GatewayEventType = "BILLING.SUBSCRIPTION.CANCELLED"
	EventSubscriptionSuspended GatewayEventType = "BILLING.SUBSCRIPTION.SUSPENDED"
	EventSubscriptionExpired   GatewayEventType = "BILLING.SUBSCRIPTION.EXPIRED"
	EventSubscriptionPaymentOK GatewayEventType = "PAYMENT.SALE.COMPLETED"
	EventOrderCaptureCompleted GatewayEventType = "PAYMENT.CAPTURE.COMPLETED"
)

// IsKnown reports whether the event type belongs to the handled set
func (t GatewayEventType) IsKnown() bool {
	switch t {
	case EventSubscriptionActivated, EventSubscriptionCancelled, EventSubscriptionSuspended,
		EventSubscriptionExpired, EventSubscriptionPaymentOK, EventOrderCaptureCompleted:
		return true
	}
	return false
}

// GatewayEvent is a verified, validated webhook event: the dynamic payload is
// parsed at the boundary into this tagged variant so the lifecycle controller
// matches over a closed set instead of duck-typing JSON.
type GatewayEvent struct {
	// ID is the gateway-assigned event identifier, the idempotency key for
	// at-least-once delivery.
	ID   string
	Type GatewayEventType
	// EventTime is when the gateway observed the underlying change. Used for
	// the ordering watermark, not the network arrival time.
	EventTime time.Time

	// SubscriptionID is set for subscription lifecycle and cycle-paid events
	SubscriptionID string
	// OrderID and CaptureID are set for one-off capture events
	OrderID   string
	CaptureID string
	// InvoiceID is the invoice UUID stamped on the order as custom_id,
	// echoed back on capture events. Empty when the order was created
	// outside this system.
	InvoiceID string
	// TransactionID is the dedup key for monetary events (sale/capture ID)
	TransactionID string
	// Amount and Currency are set for monetary events
	Amount   decimal.Decimal
	Currency string
}

// rawGatewayEvent mirrors the gateway's wire envelope
type rawGatewayEvent struct {
	ID           string          `json:"id"`
	EventType    string          `json:"event_type"`
	CreateTime   time.Time       `json:"create_time"`
	ResourceType string          `json:"resource_type"`
	Resource     json.RawMessage `json:"resource"`
}

type rawResource struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	BillingAgreementID string `json:"billing_agreement_id"`
	// CustomID carries the invoice UUID we stamped on the order
	CustomID string `json:"custom_id"`
	Amount   struct {
		Total        string `json:"total"`
		Value        string `json:"value"`
		CurrencyCode string `json:"currency_code"`
		Currency     string `json:"currency"`
	} `json:"amount"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
}

// ParseGatewayEvent validates a raw webhook body into a tagged GatewayEvent.
// Unknown event types return (nil, nil): the sender gets a success response
// and no state changes. Malformed payloads of known types are invalid input.
func ParseGatewayEvent(body []byte) (*GatewayEvent, error) {
	var raw rawGatewayEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, shared.NewDomainError("INVALID_EVENT", "Webhook payload is not valid JSON")
	}
	if raw.ID == "" {
		return nil, shared.NewDomainError("INVALID_EVENT", "Webhook event is missing its event ID")
	}
	eventType := GatewayEventType(raw.EventType)
	if !eventType.IsKnown() {
		return nil, nil
	}
	if raw.CreateTime.IsZero() {
		return nil, shared.NewDomainError("INVALID_EVENT", "Webhook event is missing its create time")
	}

	var res rawResource
	if err := json.Unmarshal(raw.Resource, &res); err != nil {
		return nil, shared.NewDomainError("INVALID_EVENT", "Webhook resource is not valid JSON")
	}

	event := &GatewayEvent{
		ID:        raw.ID,
		Type:      eventType,
		EventTime: raw.CreateTime,
	}

	switch eventType {
	case EventSubscriptionActivated, EventSubscriptionCancelled,
		EventSubscriptionSuspended, EventSubscriptionExpired:
		if res.ID == "" {
			return nil, shared.NewDomainError("INVALID_EVENT", "Subscription event is missing the subscription ID")
		}
		event.SubscriptionID = res.ID

	case EventSubscriptionPaymentOK:
		// A sale completed against a billing agreement (subscription cycle).
		if res.BillingAgreementID == "" {
			return nil, shared.NewDomainError("INVALID_EVENT", "Sale event is missing the billing agreement ID")
		}
		if res.ID == "" {
			return nil, shared.NewDomainError("INVALID_EVENT", "Sale event is missing the transaction ID")
		}
		event.SubscriptionID = res.BillingAgreementID
		event.TransactionID = res.ID
		amount, currency, err := parseAmount(res.Amount.Total, res.Amount.Currency)
		if err != nil {
			return nil, err
		}
		event.Amount = amount
		event.Currency = currency

	case EventOrderCaptureCompleted:
		if res.ID == "" {
			return nil, shared.NewDomainError("INVALID_EVENT", "Capture event is missing the capture ID")
		}
		event.CaptureID = res.ID
		event.TransactionID = res.ID
		event.OrderID = res.SupplementaryData.RelatedIDs.OrderID
		event.InvoiceID = res.CustomID
		amount, currency, err := parseAmount(res.Amount.Value, res.Amount.CurrencyCode)
		if err != nil {
			return nil, err
		}
		event.Amount = amount
		event.Currency = currency
	}

	return event, nil
}

func parseAmount(value, currency string) (decimal.Decimal, string, error) {
	if value == "" {
		return decimal.Zero, "", shared.NewDomainError("INVALID_EVENT", "Monetary event is missing the amount")
	}
	amount, err := decimal.NewFromString(value)
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, "", shared.NewDomainError("INVALID_EVENT", "Monetary event amount is not a positive number")
	}
	if currency == "" {
		return decimal.Zero, "", shared.NewDomainError("INVALID_EVENT", "Monetary event is missing the currency")
	}
	return amount, currency, nil
}

// SubscriptionEventFor maps a gateway lifecycle event type onto the state
// machine input it drives. Monetary events do not map to a transition.
func SubscriptionEventFor(t GatewayEventType, current SubscriptionStatus) (SubscriptionEvent, bool) {
	switch t {
	case EventSubscriptionActivated:
		if current == SubscriptionStatusSuspended {
			return SubscriptionEventReactivate, true
		}
		return SubscriptionEventActivate, true
	case EventSubscriptionCancelled:
		return SubscriptionEventCancel, true
	case EventSubscriptionSuspended:
		return SubscriptionEventSuspend, true
	case EventSubscriptionExpired:
		return SubscriptionEventExpire, true
	}
	return "", false
}
