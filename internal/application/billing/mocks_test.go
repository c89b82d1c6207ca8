package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/portal/backend/internal/domain/billing"
	"github.com/portal/backend/internal/domain/shared"
)

// Mock implementations

type mockInvoiceRepository struct {
	mock.Mock
}

func (m *mockInvoiceRepository) Create(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *mockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *mockInvoiceRepository) NextInvoiceNumber(ctx context.Context, tenantID uuid.UUID, year int) (string, error) {
	args := m.Called(ctx, tenantID, year)
	return args.String(0), args.Error(1)
}

type mockPaymentRepository struct {
	mock.Mock
}

func (m *mockPaymentRepository) CreateIfAbsent(ctx context.Context, payment *billing.Payment) (bool, error) {
	args := m.Called(ctx, payment)
	return args.Bool(0), args.Error(1)
}

func (m *mockPaymentRepository) FindByTransactionID(ctx context.Context, transactionID string) (*billing.Payment, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *mockPaymentRepository) FindByInvoiceID(ctx context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Payment), args.Error(1)
}

type mockSubscriptionRepository struct {
	mock.Mock
}

func (m *mockSubscriptionRepository) CreatePending(ctx context.Context, sub *billing.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *mockSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) FindByGatewayID(ctx context.Context, gatewaySubscriptionID string) (*billing.Subscription, error) {
	args := m.Called(ctx, gatewaySubscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *mockSubscriptionRepository) FindNonTerminal(ctx context.Context, tenantID, servicePackageID uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, tenantID, servicePackageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

type mockServicePackageRepository struct {
	mock.Mock
}

func (m *mockServicePackageRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.ServicePackage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ServicePackage), args.Error(1)
}

func (m *mockServicePackageRepository) Save(ctx context.Context, pkg *billing.ServicePackage) error {
	args := m.Called(ctx, pkg)
	return args.Error(0)
}

type mockGatewayClient struct {
	mock.Mock
}

func (m *mockGatewayClient) CreateProduct(ctx context.Context, name, description string) (string, error) {
	args := m.Called(ctx, name, description)
	return args.String(0), args.Error(1)
}

func (m *mockGatewayClient) CreatePlan(ctx context.Context, productID, name string, price decimal.Decimal, currency string, cycle billing.BillingCycle) (string, error) {
	args := m.Called(ctx, productID, name, price, currency, cycle)
	return args.String(0), args.Error(1)
}

func (m *mockGatewayClient) CreateSubscription(ctx context.Context, planID string) (*billing.GatewaySubscription, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.GatewaySubscription), args.Error(1)
}

func (m *mockGatewayClient) GetSubscription(ctx context.Context, subscriptionID string) (*billing.GatewaySubscription, error) {
	args := m.Called(ctx, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.GatewaySubscription), args.Error(1)
}

func (m *mockGatewayClient) CancelSubscription(ctx context.Context, subscriptionID, reason string) error {
	args := m.Called(ctx, subscriptionID, reason)
	return args.Error(0)
}

func (m *mockGatewayClient) SuspendSubscription(ctx context.Context, subscriptionID, reason string) error {
	args := m.Called(ctx, subscriptionID, reason)
	return args.Error(0)
}

func (m *mockGatewayClient) ActivateSubscription(ctx context.Context, subscriptionID, reason string) error {
	args := m.Called(ctx, subscriptionID, reason)
	return args.Error(0)
}

func (m *mockGatewayClient) CreateOrder(ctx context.Context, invoiceID uuid.UUID, invoiceNumber string, amount decimal.Decimal, currency string) (*billing.GatewayOrder, error) {
	args := m.Called(ctx, invoiceID, invoiceNumber, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.GatewayOrder), args.Error(1)
}

func (m *mockGatewayClient) CaptureOrder(ctx context.Context, orderID string) (*billing.GatewayCapture, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.GatewayCapture), args.Error(1)
}

func (m *mockGatewayClient) VerifyWebhookSignature(ctx context.Context, t billing.WebhookTransmission, event []byte) (bool, error) {
	args := m.Called(ctx, t, event)
	return args.Bool(0), args.Error(1)
}

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, eventID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Unmark(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, n shared.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
