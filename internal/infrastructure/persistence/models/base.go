package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/portal/backend/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomainBase converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomainBase() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBase populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBase(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// TenantModel provides common persistence fields for tenant-scoped
// aggregates. It extends BaseModel with tenant ownership and a version
// counter for optimistic locking.
type TenantModel struct {
	BaseModel
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Version  int       `gorm:"not null;default:1"`
}

func (m *TenantModel) toTenantEntity() shared.TenantEntity {
	return shared.TenantEntity{
		BaseEntity: m.ToDomainBase(),
		TenantID:   m.TenantID,
		Version:    m.Version,
	}
}

func tenantModelFrom(e shared.TenantEntity) TenantModel {
	var m TenantModel
	m.FromDomainBase(e.BaseEntity)
	m.TenantID = e.TenantID
	m.Version = e.Version
	return m
}
