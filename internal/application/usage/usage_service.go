package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/portal/backend/internal/domain/usage"
)

// UsageService records tracked API calls and serves usage aggregations
type UsageService struct {
	usageRepo usage.UsageRepository
	prices    *usage.PriceTable
	logger    *zap.Logger
}

// NewUsageService creates a new usage service
func NewUsageService(usageRepo usage.UsageRepository, prices *usage.PriceTable, logger *zap.Logger) *UsageService {
	return &UsageService{
		usageRepo: usageRepo,
		prices:    prices,
		logger:    logger,
	}
}

// TrackUsageRequest is the input for recording one API call
type TrackUsageRequest struct {
	ProjectID    uuid.UUID
	Provider     string
	Model        string
	InputTokens  int64
	OutputTokens int64
	RecordedAt   time.Time
}

// TrackUsage computes the cost of a call from the price table and appends an
// immutable usage record. A provider/model pair missing from the table is
// recorded at zero cost with a warning rather than rejected.
func (s *UsageService) TrackUsage(ctx context.Context, req TrackUsageRequest) (*usage.UsageRecord, error) {
	cost, priced := s.prices.Cost(req.Provider, req.Model, req.InputTokens, req.OutputTokens)
	if !priced {
		s.logger.Warn("No pricing for provider/model, recording at zero cost",
			zap.String("provider", req.Provider),
			zap.String("model", req.Model),
			zap.String("project_id", req.ProjectID.String()))
	}

	record, err := usage.NewUsageRecord(req.ProjectID, req.Provider, req.Model,
		req.InputTokens, req.OutputTokens, cost, req.RecordedAt)
	if err != nil {
		return nil, err
	}

	if err := s.usageRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create usage record: %w", err)
	}

	s.logger.Debug("Usage recorded",
		zap.String("record_id", record.ID.String()),
		zap.String("project_id", req.ProjectID.String()),
		zap.String("cost", cost.String()))

	return record, nil
}

// ProjectUsageReport is the aggregated usage view for one project window
type ProjectUsageReport struct {
	ProjectID    uuid.UUID          `json:"project_id"`
	Since        time.Time          `json:"since"`
	Until        time.Time          `json:"until"`
	RecordCount  int64              `json:"record_count"`
	InputTokens  int64              `json:"input_tokens"`
	OutputTokens int64              `json:"output_tokens"`
	TotalTokens  int64              `json:"total_tokens"`
	TotalCost    decimal.Decimal    `json:"total_cost"`
	ByProvider   []usage.GroupTotal `json:"by_provider"`
	ByModel      []usage.GroupTotal `json:"by_model"`
	ByDay        []usage.GroupTotal `json:"by_day"`
}

// GetProjectUsage aggregates the project's records over [since, until)
func (s *UsageService) GetProjectUsage(ctx context.Context, projectID uuid.UUID, since, until time.Time) (*ProjectUsageReport, error) {
	records, err := s.usageRepo.FindByProject(ctx, projectID, since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to load usage records: %w", err)
	}

	report := &ProjectUsageReport{
		ProjectID:  projectID,
		Since:      since,
		Until:      until,
		TotalCost:  usage.TotalCost(records),
		ByProvider: usage.AggregateByProvider(records),
		ByModel:    usage.AggregateByModel(records),
		ByDay:      usage.AggregateByDay(records),
	}
	for i := range records {
		report.RecordCount++
		report.InputTokens += records[i].InputTokens
		report.OutputTokens += records[i].OutputTokens
	}
	report.TotalTokens = report.InputTokens + report.OutputTokens

	return report, nil
}
