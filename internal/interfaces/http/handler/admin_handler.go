package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/portal/backend/internal/infrastructure/scheduler"
	"github.com/portal/backend/internal/interfaces/http/dto"
	"github.com/portal/backend/internal/interfaces/http/middleware"
)

// AdminHandler handles operator-only endpoints
type AdminHandler struct {
	BaseHandler
	sweepScheduler *scheduler.BudgetSweepScheduler
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(sweepScheduler *scheduler.BudgetSweepScheduler) *AdminHandler {
	return &AdminHandler{sweepScheduler: sweepScheduler}
}

// RegisterRoutes registers admin routes
func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin", middleware.RequireAdmin())
	{
		admin.POST("/budget-sweep", h.TriggerBudgetSweep)
	}
}

// TriggerBudgetSweep kicks off an immediate budget alert sweep. The sweep
// runs asynchronously; the response only confirms it was scheduled.
func (h *AdminHandler) TriggerBudgetSweep(c *gin.Context) {
	if err := h.sweepScheduler.TriggerImmediateSweep(context.WithoutCancel(c.Request.Context())); err != nil {
		if errors.Is(err, scheduler.ErrSchedulerNotRunning) {
			h.Error(c, http.StatusConflict, dto.ErrCodeConflict, "Budget sweep scheduler is not running")
			return
		}
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(gin.H{"triggered": true}))
}
