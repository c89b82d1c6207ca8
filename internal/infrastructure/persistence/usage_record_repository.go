package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/portal/backend/internal/domain/usage"
	"github.com/portal/backend/internal/infrastructure/persistence/models"
)

// GormUsageRepository implements usage.UsageRepository using GORM
type GormUsageRepository struct {
	db *gorm.DB
}

// NewGormUsageRepository creates a new GormUsageRepository
func NewGormUsageRepository(db *gorm.DB) *GormUsageRepository {
	return &GormUsageRepository{db: db}
}

// Create appends one usage record. Records are immutable, there is no update path.
func (r *GormUsageRepository) Create(ctx context.Context, record *usage.UsageRecord) error {
	model := models.UsageRecordModelFromDomain(record)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByProject returns usage records for a project within a time window
func (r *GormUsageRepository) FindByProject(ctx context.Context, projectID uuid.UUID, since, until time.Time) ([]usage.UsageRecord, error) {
	var recordModels []models.UsageRecordModel
	query := r.db.WithContext(ctx).
		Where("project_id = ?", projectID)
	if !since.IsZero() {
		query = query.Where("recorded_at >= ?", since)
	}
	if !until.IsZero() {
		query = query.Where("recorded_at < ?", until)
	}
	if err := query.Order("recorded_at ASC").Find(&recordModels).Error; err != nil {
		return nil, err
	}
	records := make([]usage.UsageRecord, len(recordModels))
	for i, model := range recordModels {
		records[i] = *model.ToDomain()
	}
	return records, nil
}

// SumCostByProject sums accumulated cost per project in a single grouped
// query. The budget sweep compares these sums against every configured
// threshold.
func (r *GormUsageRepository) SumCostByProject(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error) {
	type row struct {
		ProjectID uuid.UUID
		TotalCost decimal.Decimal
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.UsageRecordModel{}).
		Select("project_id, SUM(cost) AS total_cost").
		Group("project_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	totals := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, r := range rows {
		totals[r.ProjectID] = r.TotalCost
	}
	return totals, nil
}
