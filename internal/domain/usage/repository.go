package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UsageRepository persists append-only usage records
type UsageRepository interface {
	Create(ctx context.Context, record *UsageRecord) error
	FindByProject(ctx context.Context, projectID uuid.UUID, since, until time.Time) ([]UsageRecord, error)

	// SumCostByProject sums all accumulated cost per project in one query,
	// keyed by project ID. Used by the budget sweep.
	SumCostByProject(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error)
}

// BudgetRepository persists project budget configuration
type BudgetRepository interface {
	FindAll(ctx context.Context) ([]ProjectBudget, error)
	FindByProject(ctx context.Context, projectID uuid.UUID) (*ProjectBudget, error)
	Save(ctx context.Context, budget *ProjectBudget) error
}
