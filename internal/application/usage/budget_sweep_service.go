package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/usage"
)

// BudgetSweepService walks all project budgets and emits a notification for
// each one whose accumulated cost has crossed its alert threshold. The sweep
// is driven periodically by the scheduler.
type BudgetSweepService struct {
	budgetRepo usage.BudgetRepository
	usageRepo  usage.UsageRepository
	notifier   shared.Notifier
	recipient  string
	logger     *zap.Logger
}

// NewBudgetSweepService creates a new budget sweep service
func NewBudgetSweepService(
	budgetRepo usage.BudgetRepository,
	usageRepo usage.UsageRepository,
	notifier shared.Notifier,
	recipient string,
	logger *zap.Logger,
) *BudgetSweepService {
	return &BudgetSweepService{
		budgetRepo: budgetRepo,
		usageRepo:  usageRepo,
		notifier:   notifier,
		recipient:  recipient,
		logger:     logger,
	}
}

// Run performs one sweep over all budgets. One failing project does not stop
// the sweep. A budget that fired an alert inside the cooldown window is
// skipped; a failed notification leaves the cooldown unstamped so the next
// sweep retries it.
func (s *BudgetSweepService) Run(ctx context.Context) (int, error) {
	totals, err := s.usageRepo.SumCostByProject(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sum usage cost: %w", err)
	}

	budgets, err := s.budgetRepo.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load budgets: %w", err)
	}

	now := time.Now()
	alertsSent := 0
	for i := range budgets {
		budget := &budgets[i]
		total, ok := totals[budget.ProjectID]
		if !ok {
			total = decimal.Zero
		}
		if !budget.ShouldAlert(total, now) {
			continue
		}

		if err := s.notifier.Send(ctx, s.alertNotification(budget, total)); err != nil {
			s.logger.Warn("Budget alert delivery failed",
				zap.String("project_id", budget.ProjectID.String()),
				zap.Error(err))
			continue
		}

		budget.MarkAlerted(now)
		if err := s.budgetRepo.Save(ctx, budget); err != nil {
			s.logger.Warn("Failed to persist budget alert timestamp",
				zap.String("project_id", budget.ProjectID.String()),
				zap.Error(err))
		}

		alertsSent++
		s.logger.Info("Budget alert sent",
			zap.String("project_id", budget.ProjectID.String()),
			zap.String("total_cost", total.String()),
			zap.String("used_percent", budget.UsedPercent(total).StringFixed(1)))
	}

	return alertsSent, nil
}

func (s *BudgetSweepService) alertNotification(budget *usage.ProjectBudget, total decimal.Decimal) shared.Notification {
	return shared.Notification{
		Recipient: s.recipient,
		Subject:   fmt.Sprintf("Budget alert for project %s", budget.ProjectID),
		Body: fmt.Sprintf("Project %s has used %s USD of its %s USD budget (%s%%).",
			budget.ProjectID, total.StringFixed(2), budget.Threshold.StringFixed(2),
			budget.UsedPercent(total).StringFixed(1)),
	}
}
