package usage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/portal/backend/internal/domain/shared"
)

// UsageRecord represents an immutable record of a single tracked API call.
// Once created, usage records cannot be modified - corrections must be made
// with new records, keeping a complete audit trail of accumulated cost.
type UsageRecord struct {
	shared.BaseEntity
	ProjectID    uuid.UUID       `json:"project_id"`
	Provider     string          `json:"provider"` // e.g. "openai", "anthropic", "google"
	Model        string          `json:"model"`    // e.g. "gpt-4", "claude-3-opus"
	InputTokens  int64           `json:"input_tokens"`
	OutputTokens int64           `json:"output_tokens"`
	Cost         decimal.Decimal `json:"cost"` // USD, computed at recording time
	RecordedAt   time.Time       `json:"recorded_at"`
}

// NewUsageRecord creates a usage record with validation. The cost is computed
// by the caller from the price table; zero cost is legal (unknown pricing).
func NewUsageRecord(projectID uuid.UUID, provider, model string, inputTokens, outputTokens int64, cost decimal.Decimal, recordedAt time.Time) (*UsageRecord, error) {
	if projectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PROJECT", "Project ID cannot be empty")
	}
	if provider == "" {
		return nil, shared.NewDomainError("INVALID_USAGE", "Provider cannot be empty")
	}
	if model == "" {
		return nil, shared.NewDomainError("INVALID_USAGE", "Model cannot be empty")
	}
	if inputTokens < 0 || outputTokens < 0 {
		return nil, shared.NewDomainError("INVALID_USAGE", "Token counts cannot be negative")
	}
	if cost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_USAGE", "Cost cannot be negative")
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	return &UsageRecord{
		BaseEntity:   shared.NewBaseEntity(),
		ProjectID:    projectID,
		Provider:     provider,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		RecordedAt:   recordedAt,
	}, nil
}

// TotalTokens returns the combined token count
func (r *UsageRecord) TotalTokens() int64 {
	return r.InputTokens + r.OutputTokens
}
