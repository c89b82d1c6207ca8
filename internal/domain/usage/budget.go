package usage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/portal/backend/internal/domain/shared"
)

// DefaultAlertPercent is the threshold percentage at which a budget alert
// fires when the project does not configure its own.
const DefaultAlertPercent = 80

// AlertCooldown is the minimum interval between repeated alerts for the same
// project. Every sweep inside the window that still exceeds the threshold is
// suppressed identically, whether the project sits at 80% or 150%.
const AlertCooldown = 24 * time.Hour

// ProjectBudget configures the cost threshold for one project. It is mutated
// only by the budget sweep, which stamps LastAlertSent when an alert fires.
type ProjectBudget struct {
	shared.BaseEntity
	ProjectID     uuid.UUID       `json:"project_id"`
	Threshold     decimal.Decimal `json:"threshold"` // USD
	AlertPercent  int             `json:"alert_percent"`
	LastAlertSent *time.Time      `json:"last_alert_sent,omitempty"`
}

// NewProjectBudget creates a budget with the default alert percentage
func NewProjectBudget(projectID uuid.UUID, threshold decimal.Decimal) (*ProjectBudget, error) {
	if projectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project ID cannot be empty")
	}
	if threshold.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_BUDGET", "Budget threshold must be positive")
	}
	return &ProjectBudget{
		BaseEntity:   shared.NewBaseEntity(),
		ProjectID:    projectID,
		Threshold:    threshold,
		AlertPercent: DefaultAlertPercent,
	}, nil
}

// UsedPercent returns accumulated cost as a percentage of the threshold
func (b *ProjectBudget) UsedPercent(totalCost decimal.Decimal) decimal.Decimal {
	if b.Threshold.IsZero() {
		return decimal.Zero
	}
	return totalCost.Div(b.Threshold).Mul(decimal.NewFromInt(100))
}

// ShouldAlert decides whether the sweep emits an alert now: the accumulated
// cost must reach the alert percentage and the cooldown window since the last
// alert must have elapsed.
func (b *ProjectBudget) ShouldAlert(totalCost decimal.Decimal, now time.Time) bool {
	percent := b.AlertPercent
	if percent <= 0 {
		percent = DefaultAlertPercent
	}
	if b.UsedPercent(totalCost).LessThan(decimal.NewFromInt(int64(percent))) {
		return false
	}
	if b.LastAlertSent != nil && now.Sub(*b.LastAlertSent) < AlertCooldown {
		return false
	}
	return true
}

// MarkAlerted stamps the last-alert timestamp
func (b *ProjectBudget) MarkAlerted(now time.Time) {
	t := now
	b.LastAlertSent = &t
	b.Touch()
}
