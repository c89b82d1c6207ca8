package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	billingapp "github.com/portal/backend/internal/application/billing"
	"github.com/portal/backend/internal/domain/billing"
)

// SubscriptionHandler handles subscription endpoints
type SubscriptionHandler struct {
	BaseHandler
	subscriptionService *billingapp.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(subscriptionService *billingapp.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// RegisterRoutes registers subscription routes
func (h *SubscriptionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	subscriptions := rg.Group("/subscriptions")
	{
		subscriptions.POST("", h.CreateSubscription)
		subscriptions.GET("/:id", h.GetSubscription)
		subscriptions.POST("/:id/cancel", h.CancelSubscription)
	}
}

// CreateSubscriptionRequest is the create-subscription request body
type CreateSubscriptionRequest struct {
	ServicePackageID string `json:"service_package_id" binding:"required,uuid"`
	BillingCycle     string `json:"billing_cycle" binding:"required,oneof=MONTHLY ANNUAL"`
}

// CancelSubscriptionRequest is the cancel-subscription request body
type CancelSubscriptionRequest struct {
	Reason string `json:"reason"`
}

// SubscriptionResponse is the subscription representation returned by the API
type SubscriptionResponse struct {
	ID                    string     `json:"id"`
	ServicePackageID      string     `json:"service_package_id"`
	GatewaySubscriptionID string     `json:"gateway_subscription_id"`
	BillingCycle          string     `json:"billing_cycle"`
	Status                string     `json:"status"`
	StartDate             *time.Time `json:"start_date,omitempty"`
	NextBillingDate       *time.Time `json:"next_billing_date,omitempty"`
	CancelAtPeriodEnd     bool       `json:"cancel_at_period_end"`
	CancelReason          string     `json:"cancel_reason,omitempty"`
	ApprovalURL           string     `json:"approval_url,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

func toSubscriptionResponse(subscription *billing.Subscription, approvalURL string) SubscriptionResponse {
	return SubscriptionResponse{
		ID:                    subscription.ID.String(),
		ServicePackageID:      subscription.ServicePackageID.String(),
		GatewaySubscriptionID: subscription.GatewaySubscriptionID,
		BillingCycle:          subscription.Cycle.String(),
		Status:                subscription.Status.String(),
		StartDate:             subscription.StartDate,
		NextBillingDate:       subscription.NextBillingDate,
		CancelAtPeriodEnd:     subscription.CancelAtPeriodEnd,
		CancelReason:          subscription.CancelReason,
		ApprovalURL:           approvalURL,
		CreatedAt:             subscription.CreatedAt,
	}
}

// CreateSubscription creates a pending gateway subscription for a service
// package. The response carries the approval URL the client must visit.
func (h *SubscriptionHandler) CreateSubscription(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var req CreateSubscriptionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	packageID, err := uuid.Parse(req.ServicePackageID)
	if err != nil {
		h.BadRequest(c, "Invalid service package ID")
		return
	}

	result, err := h.subscriptionService.CreateSubscription(c.Request.Context(),
		tenantID, packageID, billing.BillingCycle(req.BillingCycle))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toSubscriptionResponse(result.Subscription, result.ApprovalURL))
}

// GetSubscription returns one subscription
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	tenantID, subscriptionID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	subscription, err := h.subscriptionService.GetSubscription(c.Request.Context(), tenantID, subscriptionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSubscriptionResponse(subscription, ""))
}

// CancelSubscription cancels a subscription at period end
func (h *SubscriptionHandler) CancelSubscription(c *gin.Context) {
	tenantID, subscriptionID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	var req CancelSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		h.BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	subscription, err := h.subscriptionService.CancelSubscription(c.Request.Context(),
		tenantID, subscriptionID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSubscriptionResponse(subscription, ""))
}

func (h *SubscriptionHandler) tenantAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid subscription ID")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, id, true
}
