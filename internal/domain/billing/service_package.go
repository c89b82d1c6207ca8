package billing

import (
	"github.com/shopspring/decimal"

	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/shared/valueobject"
)

// ServicePackage is a priced support offering that subscriptions bill
// against. Packages are maintained by admins; subscriptions reference them by
// ID and bill the price matching their cycle.
type ServicePackage struct {
	shared.BaseEntity
	Name         string               `json:"name"`
	Description  string               `json:"description,omitempty"`
	MonthlyPrice decimal.Decimal      `json:"monthly_price"`
	AnnualPrice  decimal.Decimal      `json:"annual_price"`
	Currency     valueobject.Currency `json:"currency"`
	Active       bool                 `json:"active"`
	// GatewayPlanIDs caches the gateway billing plan created for each cycle
	// so repeated subscriptions reuse the plan instead of re-creating it.
	GatewayMonthlyPlanID string `json:"gateway_monthly_plan_id,omitempty"`
	GatewayAnnualPlanID  string `json:"gateway_annual_plan_id,omitempty"`
}

// NewServicePackage creates an active service package
func NewServicePackage(name string, monthlyPrice, annualPrice decimal.Decimal) (*ServicePackage, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_PACKAGE", "Package name cannot be empty")
	}
	if monthlyPrice.LessThanOrEqual(decimal.Zero) || annualPrice.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_PACKAGE", "Package prices must be positive")
	}
	return &ServicePackage{
		BaseEntity:   shared.NewBaseEntity(),
		Name:         name,
		MonthlyPrice: monthlyPrice,
		AnnualPrice:  annualPrice,
		Currency:     valueobject.DefaultCurrency,
		Active:       true,
	}, nil
}

// PriceFor returns the recurring price for a billing cycle
func (p *ServicePackage) PriceFor(cycle BillingCycle) decimal.Decimal {
	if cycle == BillingCycleAnnual {
		return p.AnnualPrice
	}
	return p.MonthlyPrice
}

// PlanIDFor returns the cached gateway plan ID for a cycle, empty if none
func (p *ServicePackage) PlanIDFor(cycle BillingCycle) string {
	if cycle == BillingCycleAnnual {
		return p.GatewayAnnualPlanID
	}
	return p.GatewayMonthlyPlanID
}

// SetPlanID caches the gateway plan ID for a cycle
func (p *ServicePackage) SetPlanID(cycle BillingCycle, planID string) {
	if cycle == BillingCycleAnnual {
		p.GatewayAnnualPlanID = planID
	} else {
		p.GatewayMonthlyPlanID = planID
	}
	p.Touch()
}
