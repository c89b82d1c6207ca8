package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/shared/valueobject"
)

// PaymentMethod identifies how a payment was collected
type PaymentMethod string

const (
	PaymentMethodGateway PaymentMethod = "GATEWAY" // Online payment via the external gateway
	PaymentMethodManual  PaymentMethod = "MANUAL"  // Recorded by an admin (wire, cheque)
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodGateway || m == PaymentMethodManual
}

// Payment records one captured monetary transfer. There is no pending payment
// state: a Payment row exists only after a verified successful capture, and
// the gateway transaction ID is the deduplication key - at most one row is
// ever created per transaction regardless of webhook redelivery.
type Payment struct {
	shared.TenantEntity
	InvoiceID      *uuid.UUID           `json:"invoice_id,omitempty"`
	SubscriptionID *uuid.UUID           `json:"subscription_id,omitempty"`
	Amount         decimal.Decimal      `json:"amount"`
	Currency       valueobject.Currency `json:"currency"`
	TransactionID  string               `json:"transaction_id"` // Gateway-assigned, unique
	Method         PaymentMethod        `json:"method"`
	CapturedAt     time.Time            `json:"captured_at"`
}

// NewInvoicePayment creates a succeeded payment record against an invoice
func NewInvoicePayment(tenantID, invoiceID uuid.UUID, amount decimal.Decimal, currency valueobject.Currency, transactionID string, capturedAt time.Time) (*Payment, error) {
	return newPayment(tenantID, &invoiceID, nil, amount, currency, transactionID, capturedAt)
}

// NewSubscriptionPayment creates a succeeded payment record for a
// subscription billing cycle
func NewSubscriptionPayment(tenantID, subscriptionID uuid.UUID, amount decimal.Decimal, currency valueobject.Currency, transactionID string, capturedAt time.Time) (*Payment, error) {
	return newPayment(tenantID, nil, &subscriptionID, amount, currency, transactionID, capturedAt)
}

func newPayment(tenantID uuid.UUID, invoiceID, subscriptionID *uuid.UUID, amount decimal.Decimal, currency valueobject.Currency, transactionID string, capturedAt time.Time) (*Payment, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	// A payment references an invoice or a subscription, exactly one.
	if (invoiceID == nil) == (subscriptionID == nil) {
		return nil, shared.NewDomainError("INVALID_PAYMENT_REFERENCE",
			"Payment must reference exactly one of invoice or subscription")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if transactionID == "" {
		return nil, shared.NewDomainError("INVALID_TRANSACTION", "Gateway transaction ID cannot be empty")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}
	return &Payment{
		TenantEntity:   shared.NewTenantEntity(tenantID),
		InvoiceID:      invoiceID,
		SubscriptionID: subscriptionID,
		Amount:         amount,
		Currency:       currency,
		TransactionID:  transactionID,
		Method:         PaymentMethodGateway,
		CapturedAt:     capturedAt,
	}, nil
}
