package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	usageapp "github.com/portal/backend/internal/application/usage"
	"github.com/portal/backend/internal/domain/usage"
)

// defaultUsageWindow is how far back the usage report reaches when the
// caller does not pass an explicit window.
const defaultUsageWindow = 30 * 24 * time.Hour

// UsageHandler handles usage tracking and budget endpoints
type UsageHandler struct {
	BaseHandler
	usageService  *usageapp.UsageService
	budgetService *usageapp.BudgetService
}

// NewUsageHandler creates a new UsageHandler
func NewUsageHandler(usageService *usageapp.UsageService, budgetService *usageapp.BudgetService) *UsageHandler {
	return &UsageHandler{
		usageService:  usageService,
		budgetService: budgetService,
	}
}

// RegisterRoutes registers usage routes
func (h *UsageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	usageGroup := rg.Group("/usage")
	{
		usageGroup.POST("/records", h.TrackUsage)
		usageGroup.GET("/projects/:id", h.GetProjectUsage)
		usageGroup.PUT("/projects/:id/budget", h.ConfigureBudget)
		usageGroup.GET("/projects/:id/budget", h.GetBudgetStatus)
	}
}

// TrackUsageRequest is the track-usage request body
type TrackUsageRequest struct {
	ProjectID    string     `json:"project_id" binding:"required,uuid"`
	Provider     string     `json:"provider" binding:"required"`
	Model        string     `json:"model" binding:"required"`
	InputTokens  int64      `json:"input_tokens" binding:"min=0"`
	OutputTokens int64      `json:"output_tokens" binding:"min=0"`
	RecordedAt   *time.Time `json:"recorded_at"`
}

// UsageRecordResponse is the usage record representation returned by the API
type UsageRecordResponse struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	InputTokens  int64     `json:"input_tokens"`
	OutputTokens int64     `json:"output_tokens"`
	Cost         string    `json:"cost"`
	RecordedAt   time.Time `json:"recorded_at"`
}

func toUsageRecordResponse(record *usage.UsageRecord) UsageRecordResponse {
	return UsageRecordResponse{
		ID:           record.ID.String(),
		ProjectID:    record.ProjectID.String(),
		Provider:     record.Provider,
		Model:        record.Model,
		InputTokens:  record.InputTokens,
		OutputTokens: record.OutputTokens,
		Cost:         record.Cost.StringFixed(6),
		RecordedAt:   record.RecordedAt,
	}
}

// TrackUsage records one tracked API call
func (h *UsageHandler) TrackUsage(c *gin.Context) {
	var req TrackUsageRequest
	if !h.BindJSON(c, &req) {
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		h.BadRequest(c, "Invalid project ID")
		return
	}

	input := usageapp.TrackUsageRequest{
		ProjectID:    projectID,
		Provider:     req.Provider,
		Model:        req.Model,
		InputTokens:  req.InputTokens,
		OutputTokens: req.OutputTokens,
	}
	if req.RecordedAt != nil {
		input.RecordedAt = *req.RecordedAt
	}

	record, err := h.usageService.TrackUsage(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toUsageRecordResponse(record))
}

// GetProjectUsage returns the aggregated usage report for a project window.
// The window defaults to the last 30 days.
func (h *UsageHandler) GetProjectUsage(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID")
		return
	}

	until := time.Now()
	since := until.Add(-defaultUsageWindow)
	if raw := c.Query("since"); raw != "" {
		since, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Invalid since timestamp")
			return
		}
	}
	if raw := c.Query("until"); raw != "" {
		until, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			h.BadRequest(c, "Invalid until timestamp")
			return
		}
	}

	report, err := h.usageService.GetProjectUsage(c.Request.Context(), projectID, since, until)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, report)
}

// ConfigureBudgetRequest is the configure-budget request body
type ConfigureBudgetRequest struct {
	Threshold    string `json:"threshold" binding:"required"`
	AlertPercent int    `json:"alert_percent" binding:"min=0,max=100"`
}

// BudgetResponse is the budget representation returned by the API
type BudgetResponse struct {
	ProjectID     string     `json:"project_id"`
	Threshold     string     `json:"threshold"`
	AlertPercent  int        `json:"alert_percent"`
	LastAlertSent *time.Time `json:"last_alert_sent,omitempty"`
	TotalCost     string     `json:"total_cost,omitempty"`
	UsedPercent   string     `json:"used_percent,omitempty"`
}

// ConfigureBudget creates or updates the budget for a project
func (h *UsageHandler) ConfigureBudget(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID")
		return
	}

	var req ConfigureBudgetRequest
	if !h.BindJSON(c, &req) {
		return
	}
	threshold, err := decimal.NewFromString(req.Threshold)
	if err != nil {
		h.BadRequest(c, "Invalid threshold: "+req.Threshold)
		return
	}

	budget, err := h.budgetService.ConfigureBudget(c.Request.Context(), projectID, threshold, req.AlertPercent)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, BudgetResponse{
		ProjectID:     budget.ProjectID.String(),
		Threshold:     budget.Threshold.StringFixed(2),
		AlertPercent:  budget.AlertPercent,
		LastAlertSent: budget.LastAlertSent,
	})
}

// GetBudgetStatus returns the budget with accumulated spend
func (h *UsageHandler) GetBudgetStatus(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid project ID")
		return
	}

	status, err := h.budgetService.GetBudgetStatus(c.Request.Context(), projectID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, BudgetResponse{
		ProjectID:     status.Budget.ProjectID.String(),
		Threshold:     status.Budget.Threshold.StringFixed(2),
		AlertPercent:  status.Budget.AlertPercent,
		LastAlertSent: status.Budget.LastAlertSent,
		TotalCost:     status.TotalCost.StringFixed(2),
		UsedPercent:   status.UsedPercent.StringFixed(1),
	})
}
