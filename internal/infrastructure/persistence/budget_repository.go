package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/usage"
	"github.com/portal/backend/internal/infrastructure/persistence/models"
)

// GormBudgetRepository implements usage.BudgetRepository using GORM
type GormBudgetRepository struct {
	db *gorm.DB
}

// NewGormBudgetRepository creates a new GormBudgetRepository
func NewGormBudgetRepository(db *gorm.DB) *GormBudgetRepository {
	return &GormBudgetRepository{db: db}
}

// FindAll returns every configured project budget
func (r *GormBudgetRepository) FindAll(ctx context.Context) ([]usage.ProjectBudget, error) {
	var budgetModels []models.ProjectBudgetModel
	if err := r.db.WithContext(ctx).
		Order("project_id ASC").
		Find(&budgetModels).Error; err != nil {
		return nil, err
	}
	budgets := make([]usage.ProjectBudget, len(budgetModels))
	for i, model := range budgetModels {
		budgets[i] = *model.ToDomain()
	}
	return budgets, nil
}

// FindByProject finds the budget configured for a project
func (r *GormBudgetRepository) FindByProject(ctx context.Context, projectID uuid.UUID) (*usage.ProjectBudget, error) {
	var model models.ProjectBudgetModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates a project budget
func (r *GormBudgetRepository) Save(ctx context.Context, budget *usage.ProjectBudget) error {
	model := models.ProjectBudgetModelFromDomain(budget)
	return r.db.WithContext(ctx).Save(model).Error
}
