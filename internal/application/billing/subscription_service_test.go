package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/portal/backend/internal/domain/billing"
	"github.com/portal/backend/internal/domain/shared"
)

func testPackage(t *testing.T) *billing.ServicePackage {
	t.Helper()
	pkg, err := billing.NewServicePackage("Support Gold",
		decimal.NewFromInt(49), decimal.NewFromInt(499))
	require.NoError(t, err)
	return pkg
}

func TestSubscriptionService_CreateSubscription(t *testing.T) {
	tenantID := uuid.New()
	pkg := testPackage(t)

	packageRepo := new(mockServicePackageRepository)
	packageRepo.On("FindByID", mock.Anything, pkg.ID).Return(pkg, nil)
	packageRepo.On("Save", mock.Anything, pkg).Return(nil)

	subscriptionRepo := new(mockSubscriptionRepository)
	subscriptionRepo.On("FindNonTerminal", mock.Anything, tenantID, pkg.ID).Return(nil, shared.ErrNotFound)
	subscriptionRepo.On("CreatePending", mock.Anything, mock.AnythingOfType("*billing.Subscription")).Return(nil)

	gateway := new(mockGatewayClient)
	gateway.On("CreateProduct", mock.Anything, "Support Gold", "").Return("PROD-1", nil)
	gateway.On("CreatePlan", mock.Anything, "PROD-1", "Support Gold (MONTHLY)",
		pkg.MonthlyPrice, "USD", billing.BillingCycleMonthly).Return("P-1", nil)
	gateway.On("CreateSubscription", mock.Anything, "P-1").Return(&billing.GatewaySubscription{
		ID: "I-SUB1", Status: "APPROVAL_PENDING", ApprovalURL: "https://gw/approve/I-SUB1",
	}, nil)

	service := NewSubscriptionService(subscriptionRepo, packageRepo, gateway, zap.NewNop())
	result, err := service.CreateSubscription(context.Background(), tenantID, pkg.ID, billing.BillingCycleMonthly)
	require.NoError(t, err)

	assert.Equal(t, billing.SubscriptionStatusPending, result.Subscription.Status)
	assert.Equal(t, "I-SUB1", result.Subscription.GatewaySubscriptionID)
	assert.Equal(t, "https://gw/approve/I-SUB1", result.ApprovalURL)
	// The plan ID is cached on the package for the next subscriber.
	assert.Equal(t, "P-1", pkg.GatewayMonthlyPlanID)
	subscriptionRepo.AssertExpectations(t)
}

func TestSubscriptionService_CachedPlanSkipsProductCreate(t *testing.T) {
	tenantID := uuid.New()
	pkg := testPackage(t)
	pkg.GatewayAnnualPlanID = "P-CACHED"

	packageRepo := new(mockServicePackageRepository)
	packageRepo.On("FindByID", mock.Anything, pkg.ID).Return(pkg, nil)

	subscriptionRepo := new(mockSubscriptionRepository)
	subscriptionRepo.On("FindNonTerminal", mock.Anything, tenantID, pkg.ID).Return(nil, shared.ErrNotFound)
	subscriptionRepo.On("CreatePending", mock.Anything, mock.Anything).Return(nil)

	gateway := new(mockGatewayClient)
	gateway.On("CreateSubscription", mock.Anything, "P-CACHED").Return(&billing.GatewaySubscription{
		ID: "I-SUB2", ApprovalURL: "https://gw/approve/I-SUB2",
	}, nil)

	service := NewSubscriptionService(subscriptionRepo, packageRepo, gateway, zap.NewNop())
	_, err := service.CreateSubscription(context.Background(), tenantID, pkg.ID, billing.BillingCycleAnnual)
	require.NoError(t, err)

	gateway.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything, mock.Anything)
	gateway.AssertNotCalled(t, "CreatePlan", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubscriptionService_DuplicateSubscriptionNoGatewayCalls(t *testing.T) {
	tenantID := uuid.New()
	pkg := testPackage(t)

	existing, err := billing.NewSubscription(tenantID, pkg.ID, "I-EXISTING", billing.BillingCycleMonthly)
	require.NoError(t, err)

	packageRepo := new(mockServicePackageRepository)
	packageRepo.On("FindByID", mock.Anything, pkg.ID).Return(pkg, nil)

	subscriptionRepo := new(mockSubscriptionRepository)
	subscriptionRepo.On("FindNonTerminal", mock.Anything, tenantID, pkg.ID).Return(existing, nil)

	gateway := new(mockGatewayClient)
	service := NewSubscriptionService(subscriptionRepo, packageRepo, gateway, zap.NewNop())

	_, err = service.CreateSubscription(context.Background(), tenantID, pkg.ID, billing.BillingCycleMonthly)
	require.ErrorIs(t, err, shared.ErrSubscriptionExists)

	gateway.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything, mock.Anything)
	gateway.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
	subscriptionRepo.AssertNotCalled(t, "CreatePending", mock.Anything, mock.Anything)
}

func TestSubscriptionService_InactivePackageRejected(t *testing.T) {
	tenantID := uuid.New()
	pkg := testPackage(t)
	pkg.Active = false

	packageRepo := new(mockServicePackageRepository)
	packageRepo.On("FindByID", mock.Anything, pkg.ID).Return(pkg, nil)

	service := NewSubscriptionService(new(mockSubscriptionRepository), packageRepo, new(mockGatewayClient), zap.NewNop())
	_, err := service.CreateSubscription(context.Background(), tenantID, pkg.ID, billing.BillingCycleMonthly)
	require.Error(t, err)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PACKAGE_NOT_FOUND", domainErr.Code)
}

func TestSubscriptionService_CancelSubscription(t *testing.T) {
	tenantID := uuid.New()
	subscription, err := billing.NewSubscription(tenantID, uuid.New(), "I-SUB1", billing.BillingCycleMonthly)
	require.NoError(t, err)
	require.NoError(t, subscription.Activate(time.Now()))

	subscriptionRepo := new(mockSubscriptionRepository)
	subscriptionRepo.On("FindByIDForTenant", mock.Anything, tenantID, subscription.ID).Return(subscription, nil)
	subscriptionRepo.On("Save", mock.Anything, subscription).Return(nil)

	gateway := new(mockGatewayClient)
	gateway.On("CancelSubscription", mock.Anything, "I-SUB1", "too expensive").Return(nil)

	service := NewSubscriptionService(subscriptionRepo, new(mockServicePackageRepository), gateway, zap.NewNop())
	cancelled, err := service.CancelSubscription(context.Background(), tenantID, subscription.ID, "too expensive")
	require.NoError(t, err)

	assert.Equal(t, billing.SubscriptionStatusCancelled, cancelled.Status)
	assert.True(t, cancelled.CancelAtPeriodEnd)
	// Access until period end: the billing date set on activation survives.
	assert.NotNil(t, cancelled.NextBillingDate)
	gateway.AssertExpectations(t)
}

func TestSubscriptionService_CancelExpiredRejectedWithoutGatewayCall(t *testing.T) {
	tenantID := uuid.New()
	subscription, err := billing.NewSubscription(tenantID, uuid.New(), "I-SUB1", billing.BillingCycleMonthly)
	require.NoError(t, err)
	require.NoError(t, subscription.Expire(time.Now()))

	subscriptionRepo := new(mockSubscriptionRepository)
	subscriptionRepo.On("FindByIDForTenant", mock.Anything, tenantID, subscription.ID).Return(subscription, nil)

	gateway := new(mockGatewayClient)
	service := NewSubscriptionService(subscriptionRepo, new(mockServicePackageRepository), gateway, zap.NewNop())

	_, err = service.CancelSubscription(context.Background(), tenantID, subscription.ID, "late")
	require.Error(t, err)
	gateway.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubscriptionService_GatewayFailureNoLocalRow(t *testing.T) {
	tenantID := uuid.New()
	pkg := testPackage(t)
	pkg.GatewayMonthlyPlanID = "P-1"

	packageRepo := new(mockServicePackageRepository)
	packageRepo.On("FindByID", mock.Anything, pkg.ID).Return(pkg, nil)

	subscriptionRepo := new(mockSubscriptionRepository)
	subscriptionRepo.On("FindNonTerminal", mock.Anything, tenantID, pkg.ID).Return(nil, shared.ErrNotFound)

	gateway := new(mockGatewayClient)
	gateway.On("CreateSubscription", mock.Anything, "P-1").Return(nil, shared.ErrGatewayUnavailable)

	service := NewSubscriptionService(subscriptionRepo, packageRepo, gateway, zap.NewNop())
	_, err := service.CreateSubscription(context.Background(), tenantID, pkg.ID, billing.BillingCycleMonthly)
	require.ErrorIs(t, err, shared.ErrGatewayUnavailable)
	subscriptionRepo.AssertNotCalled(t, "CreatePending", mock.Anything, mock.Anything)
}
