package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/portal/backend/internal/domain/billing"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/shared/valueobject"
)

// capturedStatus is the gateway status of a completed capture
const capturedStatus = "COMPLETED"

// PaymentService drives one-off invoice payments through the gateway
type PaymentService struct {
	invoiceRepo billing.InvoiceRepository
	paymentRepo billing.PaymentRepository
	gateway     billing.GatewayClient
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	gateway billing.GatewayClient,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		logger:      logger,
	}
}

// CreateOneOffPayment creates a gateway order for an open invoice. The
// returned approval URL is presented to the payer; nothing is recorded
// locally until the capture succeeds.
func (s *PaymentService) CreateOneOffPayment(ctx context.Context, tenantID, invoiceID uuid.UUID) (*billing.GatewayOrder, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.IsPaid() {
		return nil, shared.NewDomainError("INVOICE_ALREADY_PAID", "Invoice "+invoice.Number+" is already paid")
	}
	if invoice.Status != billing.InvoiceStatusSent && invoice.Status != billing.InvoiceStatusOverdue {
		return nil, shared.NewDomainError("INVALID_STATE",
			"Invoice "+invoice.Number+" is not open for payment")
	}

	order, err := s.gateway.CreateOrder(ctx, invoice.ID, invoice.Number, invoice.Total, string(invoice.Currency))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment order created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("order_id", order.ID),
	)
	return order, nil
}

// CaptureOneOffPayment captures an approved order and records the payment.
// The capture is idempotent on the gateway transaction ID: replaying the
// capture for an already-paid invoice returns the existing payment without a
// second row or a second status transition.
func (s *PaymentService) CaptureOneOffPayment(ctx context.Context, tenantID, invoiceID uuid.UUID, orderID string) (*billing.Payment, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	capture, err := s.gateway.CaptureOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if capture.Status != capturedStatus {
		// A failed capture never creates a Payment row.
		s.logger.Warn("Capture did not complete",
			zap.String("order_id", orderID),
			zap.String("status", capture.Status),
		)
		return nil, shared.NewDomainError("CAPTURE_FAILED",
			"Payment capture was not completed by the gateway")
	}

	return s.RecordInvoicePayment(ctx, invoice, capture.CaptureID, capture.Amount, valueobject.Currency(capture.Currency), time.Now())
}

// RecordInvoicePayment inserts the payment row keyed by transaction ID and
// marks the invoice paid. Shared by the synchronous capture path and the
// capture webhook; both funnel through the same dedup and transition logic.
func (s *PaymentService) RecordInvoicePayment(ctx context.Context, invoice *billing.Invoice, transactionID string, amount decimal.Decimal, currency valueobject.Currency, capturedAt time.Time) (*billing.Payment, error) {
	payment, err := billing.NewInvoicePayment(invoice.TenantID, invoice.ID, amount, currency, transactionID, capturedAt)
	if err != nil {
		return nil, err
	}

	created, err := s.paymentRepo.CreateIfAbsent(ctx, payment)
	if err != nil {
		return nil, err
	}
	if !created {
		// Redelivered capture: no second payment row. The first delivery may
		// have crashed between recording the payment and saving the invoice
		// transition, so the replay still settles the invoice if it is not
		// paid yet; money on file and invoice status must agree.
		s.logger.Info("Duplicate capture, settling invoice if needed",
			zap.String("transaction_id", transactionID),
			zap.String("invoice_id", invoice.ID.String()),
		)
		if err := s.settleInvoice(ctx, invoice, capturedAt); err != nil {
			return nil, err
		}
		return s.paymentRepo.FindByTransactionID(ctx, transactionID)
	}

	if err := s.settleInvoice(ctx, invoice, capturedAt); err != nil {
		return nil, err
	}

	s.logger.Info("Payment captured",
		zap.String("transaction_id", transactionID),
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("amount", amount.String()),
	)
	return payment, nil
}

// settleInvoice marks the invoice paid and persists the transition. Invoices
// already paid pass through unchanged.
func (s *PaymentService) settleInvoice(ctx context.Context, invoice *billing.Invoice, paidAt time.Time) error {
	if invoice.IsPaid() {
		return nil
	}
	if err := invoice.MarkPaid(paidAt); err != nil {
		return err
	}
	return s.invoiceRepo.Save(ctx, invoice)
}
