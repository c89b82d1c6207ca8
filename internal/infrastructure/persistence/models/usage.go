package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/portal/backend/internal/domain/usage"
)

// UsageRecordModel is the persistence model for append-only usage records
type UsageRecordModel struct {
	BaseModel
	ProjectID    uuid.UUID       `gorm:"type:uuid;not null;index:idx_usage_project_recorded,priority:1"`
	Provider     string          `gorm:"type:varchar(50);not null"`
	Model        string          `gorm:"type:varchar(100);not null"`
	InputTokens  int64           `gorm:"not null;default:0"`
	OutputTokens int64           `gorm:"not null;default:0"`
	Cost         decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0"`
	RecordedAt   time.Time       `gorm:"not null;index:idx_usage_project_recorded,priority:2"`
}

// TableName returns the table name for GORM
func (UsageRecordModel) TableName() string {
	return "usage_records"
}

// ToDomain converts the persistence model to a domain UsageRecord
func (m *UsageRecordModel) ToDomain() *usage.UsageRecord {
	return &usage.UsageRecord{
		BaseEntity:   m.ToDomainBase(),
		ProjectID:    m.ProjectID,
		Provider:     m.Provider,
		Model:        m.Model,
		InputTokens:  m.InputTokens,
		OutputTokens: m.OutputTokens,
		Cost:         m.Cost,
		RecordedAt:   m.RecordedAt,
	}
}

// UsageRecordModelFromDomain builds the persistence model from a domain UsageRecord
func UsageRecordModelFromDomain(r *usage.UsageRecord) *UsageRecordModel {
	m := &UsageRecordModel{
		ProjectID:    r.ProjectID,
		Provider:     r.Provider,
		Model:        r.Model,
		InputTokens:  r.InputTokens,
		OutputTokens: r.OutputTokens,
		Cost:         r.Cost,
		RecordedAt:   r.RecordedAt,
	}
	m.FromDomainBase(r.BaseEntity)
	return m
}

// ProjectBudgetModel is the persistence model for project budget configuration
type ProjectBudgetModel struct {
	BaseModel
	ProjectID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Threshold     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AlertPercent  int             `gorm:"not null;default:80"`
	LastAlertSent *time.Time      ``
}

// TableName returns the table name for GORM
func (ProjectBudgetModel) TableName() string {
	return "project_budgets"
}

// ToDomain converts the persistence model to a domain ProjectBudget
func (m *ProjectBudgetModel) ToDomain() *usage.ProjectBudget {
	return &usage.ProjectBudget{
		BaseEntity:    m.ToDomainBase(),
		ProjectID:     m.ProjectID,
		Threshold:     m.Threshold,
		AlertPercent:  m.AlertPercent,
		LastAlertSent: m.LastAlertSent,
	}
}

// ProjectBudgetModelFromDomain builds the persistence model from a domain ProjectBudget
func ProjectBudgetModelFromDomain(b *usage.ProjectBudget) *ProjectBudgetModel {
	m := &ProjectBudgetModel{
		ProjectID:     b.ProjectID,
		Threshold:     b.Threshold,
		AlertPercent:  b.AlertPercent,
		LastAlertSent: b.LastAlertSent,
	}
	m.FromDomainBase(b.BaseEntity)
	return m
}
