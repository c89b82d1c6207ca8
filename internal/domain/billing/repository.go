package billing

import (
	"context"

	"github.com/google/uuid"
)

// InvoiceRepository persists invoices and their line items
type InvoiceRepository interface {
	// Create persists the invoice and its line items atomically. The invoice
	// number column carries a per-tenant unique constraint; callers racing on
	// NextInvoiceNumber must retry on shared.ErrAlreadyExists.
	Create(ctx context.Context, invoice *Invoice) error

	// Save persists status/paid-date mutations of an existing invoice
	Save(ctx context.Context, invoice *Invoice) error

	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)

	// NextInvoiceNumber returns the next sequential invoice number for the
	// tenant and year, reading the current maximum inside the caller-visible
	// transaction. The read-then-insert race is closed by the unique
	// constraint plus the Create retry loop.
	NextInvoiceNumber(ctx context.Context, tenantID uuid.UUID, year int) (string, error)
}

// PaymentRepository persists captured payments
type PaymentRepository interface {
	// CreateIfAbsent inserts the payment unless a row with the same gateway
	// transaction ID already exists. Returns (false, nil) on a duplicate -
	// the single atomic statement that makes capture idempotent.
	CreateIfAbsent(ctx context.Context, payment *Payment) (created bool, err error)

	FindByTransactionID(ctx context.Context, transactionID string) (*Payment, error)
	FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)
}

// SubscriptionRepository persists subscriptions
type SubscriptionRepository interface {
	// CreatePending inserts a pending subscription, failing with
	// shared.ErrSubscriptionExists when a non-terminal subscription already
	// occupies the (tenant, package) slot. The check-then-insert runs inside
	// one transaction; the pre-flight check in the service layer is advisory
	// only.
	CreatePending(ctx context.Context, sub *Subscription) error

	Save(ctx context.Context, sub *Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*Subscription, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Subscription, error)
	FindByGatewayID(ctx context.Context, gatewaySubscriptionID string) (*Subscription, error)

	// FindNonTerminal returns the pending or active subscription for the
	// (tenant, package) pair, shared.ErrNotFound if the slot is free.
	FindNonTerminal(ctx context.Context, tenantID, servicePackageID uuid.UUID) (*Subscription, error)
}

// ServicePackageRepository provides access to the package catalog
type ServicePackageRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ServicePackage, error)
	Save(ctx context.Context, pkg *ServicePackage) error
}
