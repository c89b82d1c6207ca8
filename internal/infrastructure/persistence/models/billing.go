package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/portal/backend/internal/domain/billing"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/shared/valueobject"
)

// InvoiceModel is the persistence model for the Invoice aggregate.
// The (tenant_id, number) unique index closes the invoice-number allocation
// race: concurrent creators that read the same sequence collide here and one
// of them retries with a fresh number.
type InvoiceModel struct {
	BaseModel
	TenantID  uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex:idx_invoice_tenant_number,priority:1"`
	Version   int                    `gorm:"not null;default:1"`
	Number    string                 `gorm:"type:varchar(20);not null;uniqueIndex:idx_invoice_tenant_number,priority:2"`
	Status    billing.InvoiceStatus  `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Subtotal  decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	TaxRate   decimal.Decimal        `gorm:"type:decimal(8,6);not null;default:0"`
	TaxAmount decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	Total     decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	Currency  string                 `gorm:"type:varchar(3);not null;default:'USD'"`
	IssueDate time.Time              `gorm:"not null"`
	DueDate   time.Time              `gorm:"not null;index"`
	PaidDate  *time.Time             ``
	Notes     string                 `gorm:"type:text"`
	Items     []InvoiceLineItemModel `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		TenantEntity: shared.TenantEntity{
			BaseEntity: m.ToDomainBase(),
			TenantID:   m.TenantID,
			Version:    m.Version,
		},
		Number:    m.Number,
		Status:    m.Status,
		Subtotal:  m.Subtotal,
		TaxRate:   m.TaxRate,
		TaxAmount: m.TaxAmount,
		Total:     m.Total,
		Currency:  valueobject.Currency(m.Currency),
		IssueDate: m.IssueDate,
		DueDate:   m.DueDate,
		PaidDate:  m.PaidDate,
		Notes:     m.Notes,
	}
	for _, item := range m.Items {
		inv.Items = append(inv.Items, item.ToDomain())
	}
	return inv
}

// InvoiceModelFromDomain builds the persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		TenantID:  inv.TenantID,
		Version:   inv.Version,
		Number:    inv.Number,
		Status:    inv.Status,
		Subtotal:  inv.Subtotal,
		TaxRate:   inv.TaxRate,
		TaxAmount: inv.TaxAmount,
		Total:     inv.Total,
		Currency:  string(inv.Currency),
		IssueDate: inv.IssueDate,
		DueDate:   inv.DueDate,
		PaidDate:  inv.PaidDate,
		Notes:     inv.Notes,
	}
	m.FromDomainBase(inv.BaseEntity)
	for _, item := range inv.Items {
		m.Items = append(m.Items, InvoiceLineItemModel{
			ID:          item.ID,
			InvoiceID:   inv.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}
	return m
}

// InvoiceLineItemModel is the persistence model for one invoice line
type InvoiceLineItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// ToDomain converts the persistence model to a domain line item
func (m *InvoiceLineItemModel) ToDomain() billing.InvoiceLineItem {
	return billing.InvoiceLineItem{
		ID:          m.ID,
		InvoiceID:   m.InvoiceID,
		Description: m.Description,
		Quantity:    m.Quantity,
		UnitPrice:   m.UnitPrice,
		Amount:      m.Amount,
	}
}

// PaymentModel is the persistence model for captured payments. The unique
// index on transaction_id is the payment deduplication point: redelivered
// capture webhooks conflict here and are dropped by the conditional insert.
type PaymentModel struct {
	TenantModel
	InvoiceID      *uuid.UUID            `gorm:"type:uuid;index"`
	SubscriptionID *uuid.UUID            `gorm:"type:uuid;index"`
	Amount         decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Currency       string                `gorm:"type:varchar(3);not null;default:'USD'"`
	TransactionID  string                `gorm:"type:varchar(100);not null;uniqueIndex"`
	Method         billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	CapturedAt     time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		TenantEntity:   m.toTenantEntity(),
		InvoiceID:      m.InvoiceID,
		SubscriptionID: m.SubscriptionID,
		Amount:         m.Amount,
		Currency:       valueobject.Currency(m.Currency),
		TransactionID:  m.TransactionID,
		Method:         m.Method,
		CapturedAt:     m.CapturedAt,
	}
}

// PaymentModelFromDomain builds the persistence model from a domain Payment
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	return &PaymentModel{
		TenantModel:    tenantModelFrom(p.TenantEntity),
		InvoiceID:      p.InvoiceID,
		SubscriptionID: p.SubscriptionID,
		Amount:         p.Amount,
		Currency:       string(p.Currency),
		TransactionID:  p.TransactionID,
		Method:         p.Method,
		CapturedAt:     p.CapturedAt,
	}
}

// SubscriptionModel is the persistence model for the Subscription aggregate.
// The partial unique index on (tenant_id, service_package_id) covers only
// PENDING and ACTIVE rows: it is the database-level arbiter for the
// one-live-subscription-per-slot rule, and terminal rows fall out of the
// index so the slot frees up on cancellation or expiry.
type SubscriptionModel struct {
	BaseModel
	TenantID              uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:idx_sub_tenant_package_live,priority:1,where:status = 'PENDING' OR status = 'ACTIVE'"`
	Version               int                        `gorm:"not null;default:1"`
	ServicePackageID      uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex:idx_sub_tenant_package_live,priority:2"`
	GatewaySubscriptionID string                     `gorm:"type:varchar(100);not null;uniqueIndex"`
	Cycle                 billing.BillingCycle       `gorm:"type:varchar(10);not null"`
	Status                billing.SubscriptionStatus `gorm:"type:varchar(20);not null;index"`
	StartDate             *time.Time                 ``
	NextBillingDate       *time.Time                 ``
	CancelAtPeriodEnd     bool                       `gorm:"not null;default:false"`
	CancelReason          string                     `gorm:"type:varchar(500)"`
	LastEventAt           *time.Time                 ``
}

// TableName returns the table name for GORM
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

// ToDomain converts the persistence model to a domain Subscription
func (m *SubscriptionModel) ToDomain() *billing.Subscription {
	return &billing.Subscription{
		TenantEntity: shared.TenantEntity{
			BaseEntity: m.ToDomainBase(),
			TenantID:   m.TenantID,
			Version:    m.Version,
		},
		ServicePackageID:      m.ServicePackageID,
		GatewaySubscriptionID: m.GatewaySubscriptionID,
		Cycle:                 m.Cycle,
		Status:                m.Status,
		StartDate:             m.StartDate,
		NextBillingDate:       m.NextBillingDate,
		CancelAtPeriodEnd:     m.CancelAtPeriodEnd,
		CancelReason:          m.CancelReason,
		LastEventAt:           m.LastEventAt,
	}
}

// SubscriptionModelFromDomain builds the persistence model from a domain Subscription
func SubscriptionModelFromDomain(s *billing.Subscription) *SubscriptionModel {
	m := &SubscriptionModel{
		TenantID:              s.TenantID,
		Version:               s.Version,
		ServicePackageID:      s.ServicePackageID,
		GatewaySubscriptionID: s.GatewaySubscriptionID,
		Cycle:                 s.Cycle,
		Status:                s.Status,
		StartDate:             s.StartDate,
		NextBillingDate:       s.NextBillingDate,
		CancelAtPeriodEnd:     s.CancelAtPeriodEnd,
		CancelReason:          s.CancelReason,
		LastEventAt:           s.LastEventAt,
	}
	m.FromDomainBase(s.BaseEntity)
	return m
}

// ServicePackageModel is the persistence model for the package catalog
type ServicePackageModel struct {
	BaseModel
	Name                 string          `gorm:"type:varchar(200);not null"`
	Description          string          `gorm:"type:text"`
	MonthlyPrice         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AnnualPrice          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency             string          `gorm:"type:varchar(3);not null;default:'USD'"`
	Active               bool            `gorm:"not null;default:true"`
	GatewayMonthlyPlanID string          `gorm:"type:varchar(100)"`
	GatewayAnnualPlanID  string          `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (ServicePackageModel) TableName() string {
	return "service_packages"
}

// ToDomain converts the persistence model to a domain ServicePackage
func (m *ServicePackageModel) ToDomain() *billing.ServicePackage {
	return &billing.ServicePackage{
		BaseEntity:           m.ToDomainBase(),
		Name:                 m.Name,
		Description:          m.Description,
		MonthlyPrice:         m.MonthlyPrice,
		AnnualPrice:          m.AnnualPrice,
		Currency:             valueobject.Currency(m.Currency),
		Active:               m.Active,
		GatewayMonthlyPlanID: m.GatewayMonthlyPlanID,
		GatewayAnnualPlanID:  m.GatewayAnnualPlanID,
	}
}

// ServicePackageModelFromDomain builds the persistence model from a domain ServicePackage
func ServicePackageModelFromDomain(p *billing.ServicePackage) *ServicePackageModel {
	m := &ServicePackageModel{
		Name:                 p.Name,
		Description:          p.Description,
		MonthlyPrice:         p.MonthlyPrice,
		AnnualPrice:          p.AnnualPrice,
		Currency:             string(p.Currency),
		Active:               p.Active,
		GatewayMonthlyPlanID: p.GatewayMonthlyPlanID,
		GatewayAnnualPlanID:  p.GatewayAnnualPlanID,
	}
	m.FromDomainBase(p.BaseEntity)
	return m
}
