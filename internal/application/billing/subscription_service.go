package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/portal/backend/internal/domain/billing"
	"github.com/portal/backend/internal/domain/shared"
)

// SubscriptionService creates and cancels recurring subscriptions. Status
// changes after creation come exclusively from verified gateway webhooks; the
// service never flips a subscription active on its own.
type SubscriptionService struct {
	subscriptionRepo billing.SubscriptionRepository
	packageRepo      billing.ServicePackageRepository
	gateway          billing.GatewayClient
	logger           *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService
func NewSubscriptionService(
	subscriptionRepo billing.SubscriptionRepository,
	packageRepo billing.ServicePackageRepository,
	gateway billing.GatewayClient,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptionRepo: subscriptionRepo,
		packageRepo:      packageRepo,
		gateway:          gateway,
		logger:           logger,
	}
}

// CreateSubscriptionResult carries the new pending subscription and the
// approval URL the subscriber must visit
type CreateSubscriptionResult struct {
	Subscription *billing.Subscription
	ApprovalURL  string
}

// CreateSubscription starts a subscription for a tenant on a service package.
// The duplicate check runs before any gateway call so a tenant that already
// holds the (tenant, package) slot costs nothing upstream; the same check is
// enforced transactionally at insert time to close the race.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, tenantID, packageID uuid.UUID, cycle billing.BillingCycle) (*CreateSubscriptionResult, error) {
	if !cycle.IsValid() {
		return nil, shared.NewDomainError("INVALID_BILLING_CYCLE", "Billing cycle must be MONTHLY or ANNUAL")
	}

	pkg, err := s.packageRepo.FindByID(ctx, packageID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PACKAGE_NOT_FOUND", "Service package not found or inactive")
		}
		return nil, err
	}
	if !pkg.Active {
		return nil, shared.NewDomainError("PACKAGE_NOT_FOUND", "Service package not found or inactive")
	}

	_, err = s.subscriptionRepo.FindNonTerminal(ctx, tenantID, packageID)
	if err == nil {
		return nil, shared.ErrSubscriptionExists
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	planID, err := s.ensurePlan(ctx, pkg, cycle)
	if err != nil {
		return nil, err
	}

	gatewaySub, err := s.gateway.CreateSubscription(ctx, planID)
	if err != nil {
		return nil, err
	}

	subscription, err := billing.NewSubscription(tenantID, packageID, gatewaySub.ID, cycle)
	if err != nil {
		return nil, err
	}
	if err := s.subscriptionRepo.CreatePending(ctx, subscription); err != nil {
		// Lost the insert race after the gateway call. The orphaned gateway
		// subscription stays unapproved and never bills; log it for cleanup.
		if errors.Is(err, shared.ErrSubscriptionExists) {
			s.logger.Warn("Subscription slot taken after gateway create",
				zap.String("tenant_id", tenantID.String()),
				zap.String("package_id", packageID.String()),
				zap.String("gateway_subscription_id", gatewaySub.ID),
			)
		}
		return nil, err
	}

	s.logger.Info("Subscription created",
		zap.String("subscription_id", subscription.ID.String()),
		zap.String("gateway_subscription_id", gatewaySub.ID),
		zap.String("cycle", cycle.String()),
	)
	return &CreateSubscriptionResult{
		Subscription: subscription,
		ApprovalURL:  gatewaySub.ApprovalURL,
	}, nil
}

// ensurePlan returns the gateway billing plan for a package/cycle, creating
// product and plan on first use and caching the plan ID on the package
func (s *SubscriptionService) ensurePlan(ctx context.Context, pkg *billing.ServicePackage, cycle billing.BillingCycle) (string, error) {
	if planID := pkg.PlanIDFor(cycle); planID != "" {
		return planID, nil
	}

	productID, err := s.gateway.CreateProduct(ctx, pkg.Name, pkg.Description)
	if err != nil {
		return "", err
	}

	planName := fmt.Sprintf("%s (%s)", pkg.Name, cycle.String())
	planID, err := s.gateway.CreatePlan(ctx, productID, planName, pkg.PriceFor(cycle), string(pkg.Currency), cycle)
	if err != nil {
		return "", err
	}

	pkg.SetPlanID(cycle, planID)
	if err := s.packageRepo.Save(ctx, pkg); err != nil {
		// Plan exists at the gateway either way; failing the cache write only
		// costs a duplicate plan on the next subscription.
		s.logger.Warn("Failed to cache gateway plan ID",
			zap.String("package_id", pkg.ID.String()),
			zap.Error(err),
		)
	}
	return planID, nil
}

// CancelSubscription cancels a subscription at the gateway and flips it to
// cancelled locally, effective at period end. Access continues until the next
// billing date.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, tenantID, subscriptionID uuid.UUID, reason string) (*billing.Subscription, error) {
	subscription, err := s.subscriptionRepo.FindByIDForTenant(ctx, tenantID, subscriptionID)
	if err != nil {
		return nil, err
	}
	if _, ok := billing.NextSubscriptionStatus(subscription.Status, billing.SubscriptionEventCancel); !ok {
		return nil, shared.NewDomainError("INVALID_STATE",
			"Subscription cannot be cancelled from status "+subscription.Status.String())
	}

	if err := s.gateway.CancelSubscription(ctx, subscription.GatewaySubscriptionID, reason); err != nil {
		return nil, err
	}

	if err := subscription.Cancel(reason, time.Now()); err != nil {
		return nil, err
	}
	if err := s.subscriptionRepo.Save(ctx, subscription); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription cancelled",
		zap.String("subscription_id", subscription.ID.String()),
		zap.String("reason", reason),
	)
	return subscription, nil
}

// GetSubscription loads a subscription for a tenant
func (s *SubscriptionService) GetSubscription(ctx context.Context, tenantID, subscriptionID uuid.UUID) (*billing.Subscription, error) {
	return s.subscriptionRepo.FindByIDForTenant(ctx, tenantID, subscriptionID)
}
