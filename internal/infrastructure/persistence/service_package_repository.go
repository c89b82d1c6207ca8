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

// GormServicePackageRepository implements billing.ServicePackageRepository using GORM
type GormServicePackageRepository struct {
	db *gorm.DB
}

// NewGormServicePackageRepository creates a new GormServicePackageRepository
func NewGormServicePackageRepository(db *gorm.DB) *GormServicePackageRepository {
	return &GormServicePackageRepository{db: db}
}

// FindByID finds a service package by its ID
func (r *GormServicePackageRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.ServicePackage, error) {
	var model models.ServicePackageModel
	if err := r.db.WithContext(ctx).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a service package
func (r *GormServicePackageRepository) Save(ctx context.Context, pkg *billing.ServicePackage) error {
	model := models.ServicePackageModelFromDomain(pkg)
	return r.db.WithContext(ctx).Save(model).Error
}
