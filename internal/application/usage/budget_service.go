package usage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/usage"
)

// BudgetService configures project budgets and reports budget standing
type BudgetService struct {
	budgetRepo usage.BudgetRepository
	usageRepo  usage.UsageRepository
	logger     *zap.Logger
}

// NewBudgetService creates a new budget service
func NewBudgetService(budgetRepo usage.BudgetRepository, usageRepo usage.UsageRepository, logger *zap.Logger) *BudgetService {
	return &BudgetService{
		budgetRepo: budgetRepo,
		usageRepo:  usageRepo,
		logger:     logger,
	}
}

// ConfigureBudget creates or updates the budget for a project. Updating the
// threshold does not reset the alert cooldown.
func (s *BudgetService) ConfigureBudget(ctx context.Context, projectID uuid.UUID, threshold decimal.Decimal, alertPercent int) (*usage.ProjectBudget, error) {
	if threshold.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_BUDGET", "Budget threshold must be positive")
	}
	if alertPercent < 0 || alertPercent > 100 {
		return nil, shared.NewDomainError("INVALID_BUDGET", "Alert percent must be between 0 and 100")
	}

	budget, err := s.budgetRepo.FindByProject(ctx, projectID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("failed to load budget: %w", err)
		}
		budget, err = usage.NewProjectBudget(projectID, threshold)
		if err != nil {
			return nil, err
		}
	} else {
		budget.Threshold = threshold
		budget.Touch()
	}
	if alertPercent > 0 {
		budget.AlertPercent = alertPercent
	}

	if err := s.budgetRepo.Save(ctx, budget); err != nil {
		return nil, fmt.Errorf("failed to save budget: %w", err)
	}

	s.logger.Info("Budget configured",
		zap.String("project_id", projectID.String()),
		zap.String("threshold", threshold.String()),
		zap.Int("alert_percent", budget.AlertPercent))

	return budget, nil
}

// BudgetStatus is the current standing of a project against its budget
type BudgetStatus struct {
	Budget      *usage.ProjectBudget `json:"budget"`
	TotalCost   decimal.Decimal      `json:"total_cost"`
	UsedPercent decimal.Decimal      `json:"used_percent"`
}

// GetBudgetStatus returns the budget together with accumulated spend
func (s *BudgetService) GetBudgetStatus(ctx context.Context, projectID uuid.UUID) (*BudgetStatus, error) {
	budget, err := s.budgetRepo.FindByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	totals, err := s.usageRepo.SumCostByProject(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum usage cost: %w", err)
	}
	total, ok := totals[projectID]
	if !ok {
		total = decimal.Zero
	}

	return &BudgetStatus{
		Budget:      budget,
		TotalCost:   total,
		UsedPercent: budget.UsedPercent(total),
	}, nil
}
