package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/portal/backend/internal/domain/billing"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/infrastructure/persistence/models"
)

// GormSubscriptionRepository implements billing.SubscriptionRepository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// CreatePending inserts a pending subscription, failing with
// shared.ErrSubscriptionExists when a non-terminal subscription already holds
// the (tenant, package) slot. The partial unique index over PENDING and
// ACTIVE rows is the arbiter: concurrent creators race to the insert and the
// loser gets the unique violation, with no window for both to commit.
func (r *GormSubscriptionRepository) CreatePending(ctx context.Context, sub *billing.Subscription) error {
	model := models.SubscriptionModelFromDomain(sub)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrSubscriptionExists
		}
		return err
	}
	return nil
}

// Save persists state mutations with an optimistic version check
func (r *GormSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	model := models.SubscriptionModelFromDomain(sub)
	result := r.db.WithContext(ctx).
		Model(&models.SubscriptionModel{}).
		Where("id = ? AND version = ?", sub.ID, sub.Version).
		Updates(map[string]any{
			"status":               model.Status,
			"start_date":           model.StartDate,
			"next_billing_date":    model.NextBillingDate,
			"cancel_at_period_end": model.CancelAtPeriodEnd,
			"cancel_reason":        model.CancelReason,
			"last_event_at":        model.LastEventAt,
			"updated_at":           model.UpdatedAt,
			"version":              sub.Version + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	sub.IncrementVersion()
	return nil
}

// FindByID finds a subscription by its ID
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds a subscription by ID within a tenant
func (r *GormSubscriptionRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByGatewayID finds the subscription bound to a gateway subscription ID.
// Webhook handlers resolve incoming lifecycle events through this lookup.
func (r *GormSubscriptionRepository) FindByGatewayID(ctx context.Context, gatewaySubscriptionID string) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("gateway_subscription_id = ?", gatewaySubscriptionID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindNonTerminal returns the pending or active subscription occupying the
// (tenant, package) slot, shared.ErrNotFound when the slot is free
func (r *GormSubscriptionRepository) FindNonTerminal(ctx context.Context, tenantID, servicePackageID uuid.UUID) (*billing.Subscription, error) {
	var model models.SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND service_package_id = ? AND status IN ?",
			tenantID, servicePackageID,
			[]billing.SubscriptionStatus{
				billing.SubscriptionStatusPending,
				billing.SubscriptionStatusActive,
			}).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
