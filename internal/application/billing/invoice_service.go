package billing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/portal/backend/internal/domain/billing"
	"github.com/portal/backend/internal/domain/shared"
)

// maxNumberRetries bounds the allocate-then-insert retry loop. Each retry
// means another writer won the race on the same invoice number; the unique
// constraint guarantees no duplicates, the loop guarantees progress.
const maxNumberRetries = 5

// InvoiceService implements the invoice operations of the billing API
type InvoiceService struct {
	invoiceRepo billing.InvoiceRepository
	paymentRepo billing.PaymentRepository
	logger      *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		logger:      logger,
	}
}

// CreateInvoiceRequest carries the caller-supplied invoice data
type CreateInvoiceRequest struct {
	TenantID uuid.UUID
	Items    []billing.LineItemInput
	DueDate  time.Time
	TaxRate  decimal.Decimal
	Notes    string
}

// CreateInvoice allocates the next invoice number and persists a draft
// invoice with its line items atomically. Losing the number race surfaces as
// a unique violation; the allocation is retried with a fresh number.
func (s *InvoiceService) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*billing.Invoice, error) {
	year := time.Now().Year()

	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		number, err := s.invoiceRepo.NextInvoiceNumber(ctx, req.TenantID, year)
		if err != nil {
			return nil, err
		}

		invoice, err := billing.NewInvoice(req.TenantID, number, req.Items, req.DueDate, req.TaxRate, req.Notes)
		if err != nil {
			return nil, err
		}

		err = s.invoiceRepo.Create(ctx, invoice)
		if err == nil {
			s.logger.Info("Invoice created",
				zap.String("invoice_id", invoice.ID.String()),
				zap.String("number", invoice.Number),
				zap.String("total", invoice.Total.String()),
			)
			return invoice, nil
		}
		if errors.Is(err, shared.ErrAlreadyExists) {
			s.logger.Debug("Invoice number taken, retrying",
				zap.String("number", number),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		return nil, err
	}

	return nil, shared.NewDomainError("NUMBER_ALLOCATION_FAILED",
		"Could not allocate an invoice number, please retry")
}

// SendInvoice transitions a draft invoice to sent
func (s *InvoiceService) SendInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := invoice.MarkSent(); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// CancelInvoice voids a non-paid invoice
func (s *InvoiceService) CancelInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := invoice.Cancel(); err != nil {
		return nil, err
	}
	if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
		return nil, err
	}
	return invoice, nil
}

// GetInvoice loads an invoice and lazily applies the overdue flip: overdue is
// evaluated against the due date on every read, not pushed by a timer. A lost
// persistence race on the flip is harmless, the next read re-evaluates.
func (s *InvoiceService) GetInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) (*billing.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice.RefreshOverdue(time.Now()) {
		if err := s.invoiceRepo.Save(ctx, invoice); err != nil {
			s.logger.Warn("Failed to persist overdue flip",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(err),
			)
		}
	}
	return invoice, nil
}

// ListPayments returns the payments captured against an invoice
func (s *InvoiceService) ListPayments(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]billing.Payment, error) {
	// Tenant scoping rides on the invoice lookup.
	invoice, err := s.invoiceRepo.FindByIDForTenant(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	return s.paymentRepo.FindByInvoiceID(ctx, invoice.ID)
}
