package usage

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

	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/usage"
)

func newSweepFixture() (*BudgetSweepService, *mockBudgetRepository, *mockUsageRepository, *mockNotifier) {
	budgetRepo := new(mockBudgetRepository)
	usageRepo := new(mockUsageRepository)
	notifier := new(mockNotifier)
	service := NewBudgetSweepService(budgetRepo, usageRepo, notifier, "ops@portal.local", zap.NewNop())
	return service, budgetRepo, usageRepo, notifier
}

func mustBudget(t *testing.T, threshold string) *usage.ProjectBudget {
	t.Helper()
	budget, err := usage.NewProjectBudget(uuid.New(), decimal.RequireFromString(threshold))
	require.NoError(t, err)
	return budget
}

func TestBudgetSweep_AlertsAtThreshold(t *testing.T) {
	service, budgetRepo, usageRepo, notifier := newSweepFixture()

	budget := mustBudget(t, "100")
	usageRepo.On("SumCostByProject", mock.Anything).Return(map[uuid.UUID]decimal.Decimal{
		budget.ProjectID: decimal.RequireFromString("80"),
	}, nil)
	budgetRepo.On("FindAll", mock.Anything).Return([]usage.ProjectBudget{*budget}, nil)
	notifier.On("Send", mock.Anything, mock.MatchedBy(func(n shared.Notification) bool {
		return n.Recipient == "ops@portal.local"
	})).Return(nil)
	budgetRepo.On("Save", mock.Anything, mock.MatchedBy(func(b *usage.ProjectBudget) bool {
		return b.LastAlertSent != nil
	})).Return(nil)

	sent, err := service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	notifier.AssertExpectations(t)
	budgetRepo.AssertExpectations(t)
}

func TestBudgetSweep_BelowThresholdNoAlert(t *testing.T) {
	service, budgetRepo, usageRepo, notifier := newSweepFixture()

	budget := mustBudget(t, "100")
	usageRepo.On("SumCostByProject", mock.Anything).Return(map[uuid.UUID]decimal.Decimal{
		budget.ProjectID: decimal.RequireFromString("79.99"),
	}, nil)
	budgetRepo.On("FindAll", mock.Anything).Return([]usage.ProjectBudget{*budget}, nil)

	sent, err := service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestBudgetSweep_CooldownSuppressesRepeatAlert(t *testing.T) {
	service, budgetRepo, usageRepo, notifier := newSweepFixture()

	budget := mustBudget(t, "100")
	budget.MarkAlerted(time.Now().Add(-time.Hour))
	usageRepo.On("SumCostByProject", mock.Anything).Return(map[uuid.UUID]decimal.Decimal{
		budget.ProjectID: decimal.RequireFromString("150"),
	}, nil)
	budgetRepo.On("FindAll", mock.Anything).Return([]usage.ProjectBudget{*budget}, nil)

	sent, err := service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestBudgetSweep_AlertsAgainAfterCooldown(t *testing.T) {
	service, budgetRepo, usageRepo, notifier := newSweepFixture()

	budget := mustBudget(t, "100")
	budget.MarkAlerted(time.Now().Add(-25 * time.Hour))
	usageRepo.On("SumCostByProject", mock.Anything).Return(map[uuid.UUID]decimal.Decimal{
		budget.ProjectID: decimal.RequireFromString("90"),
	}, nil)
	budgetRepo.On("FindAll", mock.Anything).Return([]usage.ProjectBudget{*budget}, nil)
	notifier.On("Send", mock.Anything, mock.Anything).Return(nil)
	budgetRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	sent, err := service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}

func TestBudgetSweep_FailedDeliveryLeavesCooldownUnstamped(t *testing.T) {
	service, budgetRepo, usageRepo, notifier := newSweepFixture()

	budget := mustBudget(t, "100")
	usageRepo.On("SumCostByProject", mock.Anything).Return(map[uuid.UUID]decimal.Decimal{
		budget.ProjectID: decimal.RequireFromString("95"),
	}, nil)
	budgetRepo.On("FindAll", mock.Anything).Return([]usage.ProjectBudget{*budget}, nil)
	notifier.On("Send", mock.Anything, mock.Anything).Return(assert.AnError)

	sent, err := service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	budgetRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestBudgetSweep_ProjectWithoutUsageTreatedAsZero(t *testing.T) {
	service, budgetRepo, usageRepo, notifier := newSweepFixture()

	budget := mustBudget(t, "100")
	usageRepo.On("SumCostByProject", mock.Anything).Return(map[uuid.UUID]decimal.Decimal{}, nil)
	budgetRepo.On("FindAll", mock.Anything).Return([]usage.ProjectBudget{*budget}, nil)

	sent, err := service.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestBudgetService_ConfigureBudgetCreatesAndUpdates(t *testing.T) {
	budgetRepo := new(mockBudgetRepository)
	usageRepo := new(mockUsageRepository)
	service := NewBudgetService(budgetRepo, usageRepo, zap.NewNop())

	projectID := uuid.New()
	budgetRepo.On("FindByProject", mock.Anything, projectID).Return(nil, shared.ErrNotFound).Once()
	budgetRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	created, err := service.ConfigureBudget(context.Background(), projectID, decimal.RequireFromString("200"), 0)
	require.NoError(t, err)
	assert.Equal(t, usage.DefaultAlertPercent, created.AlertPercent)

	budgetRepo.On("FindByProject", mock.Anything, projectID).Return(created, nil)

	updated, err := service.ConfigureBudget(context.Background(), projectID, decimal.RequireFromString("500"), 90)
	require.NoError(t, err)
	assert.True(t, updated.Threshold.Equal(decimal.RequireFromString("500")))
	assert.Equal(t, 90, updated.AlertPercent)
}

func TestBudgetService_GetBudgetStatus(t *testing.T) {
	budgetRepo := new(mockBudgetRepository)
	usageRepo := new(mockUsageRepository)
	service := NewBudgetService(budgetRepo, usageRepo, zap.NewNop())

	budget := mustBudget(t, "400")
	budgetRepo.On("FindByProject", mock.Anything, budget.ProjectID).Return(budget, nil)
	usageRepo.On("SumCostByProject", mock.Anything).Return(map[uuid.UUID]decimal.Decimal{
		budget.ProjectID: decimal.RequireFromString("100"),
	}, nil)

	status, err := service.GetBudgetStatus(context.Background(), budget.ProjectID)
	require.NoError(t, err)
	assert.True(t, status.UsedPercent.Equal(decimal.RequireFromString("25")))
}
