package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/usage"
)

type mockUsageRepository struct {
	mock.Mock
}

func (m *mockUsageRepository) Create(ctx context.Context, record *usage.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockUsageRepository) FindByProject(ctx context.Context, projectID uuid.UUID, since, until time.Time) ([]usage.UsageRecord, error) {
	args := m.Called(ctx, projectID, since, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usage.UsageRecord), args.Error(1)
}

func (m *mockUsageRepository) SumCostByProject(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]decimal.Decimal), args.Error(1)
}

type mockBudgetRepository struct {
	mock.Mock
}

func (m *mockBudgetRepository) FindAll(ctx context.Context) ([]usage.ProjectBudget, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]usage.ProjectBudget), args.Error(1)
}

func (m *mockBudgetRepository) FindByProject(ctx context.Context, projectID uuid.UUID) (*usage.ProjectBudget, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usage.ProjectBudget), args.Error(1)
}

func (m *mockBudgetRepository) Save(ctx context.Context, budget *usage.ProjectBudget) error {
	args := m.Called(ctx, budget)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, n shared.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
