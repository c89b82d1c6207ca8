package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/portal/backend/internal/domain/billing"
	"github.com/portal/backend/internal/domain/shared"
)

// CreateProduct registers a service-type catalog product at the gateway
func (c *Client) CreateProduct(ctx context.Context, name, description string) (string, error) {
	var resp createProductResponse
	err := c.do(ctx, http.MethodPost, productsPath, createProductRequest{
		Name:        name,
		Description: description,
		Type:        "SERVICE",
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: product response carried no ID", shared.ErrGatewayRejected)
	}
	return resp.ID, nil
}

// CreatePlan creates an open-ended recurring billing plan for a product
func (c *Client) CreatePlan(ctx context.Context, productID, name string, price decimal.Decimal, currency string, cycle billing.BillingCycle) (string, error) {
	intervalUnit := "MONTH"
	if cycle == billing.BillingCycleAnnual {
		intervalUnit = "YEAR"
	}

	var resp createPlanResponse
	err := c.do(ctx, http.MethodPost, plansPath, createPlanRequest{
		ProductID: productID,
		Name:      name,
		BillingCycles: []planBillingCycle{{
			Frequency:   planFrequency{IntervalUnit: intervalUnit, IntervalCount: 1},
			TenureType:  "REGULAR",
			Sequence:    1,
			TotalCycles: 0,
			PricingScheme: pricingScheme{
				FixedPrice: money{CurrencyCode: currency, Value: price.StringFixed(2)},
			},
		}},
		PaymentPreferences: paymentPreferences{AutoBillOutstanding: true},
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: plan response carried no ID", shared.ErrGatewayRejected)
	}
	return resp.ID, nil
}

// CreateSubscription starts a pending subscription on a plan
func (c *Client) CreateSubscription(ctx context.Context, planID string) (*billing.GatewaySubscription, error) {
	var resp subscriptionResponse
	err := c.do(ctx, http.MethodPost, subscriptionsPath, createSubscriptionRequest{PlanID: planID}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: subscription response carried no ID", shared.ErrGatewayRejected)
	}
	return &billing.GatewaySubscription{
		ID:          resp.ID,
		Status:      resp.Status,
		PlanID:      resp.PlanID,
		ApprovalURL: approvalURL(resp.Links),
	}, nil
}

// GetSubscription fetches the gateway-side subscription state
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*billing.GatewaySubscription, error) {
	var resp subscriptionResponse
	err := c.do(ctx, http.MethodGet, subscriptionsPath+"/"+subscriptionID, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &billing.GatewaySubscription{
		ID:     resp.ID,
		Status: resp.Status,
		PlanID: resp.PlanID,
	}, nil
}

// CancelSubscription cancels a subscription at the gateway. The gateway
// answers 204; the authoritative status change arrives via webhook.
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID, reason string) error {
	return c.subscriptionAction(ctx, subscriptionID, "cancel", reason)
}

// SuspendSubscription pauses billing for a subscription
func (c *Client) SuspendSubscription(ctx context.Context, subscriptionID, reason string) error {
	return c.subscriptionAction(ctx, subscriptionID, "suspend", reason)
}

// ActivateSubscription resumes a suspended subscription
func (c *Client) ActivateSubscription(ctx context.Context, subscriptionID, reason string) error {
	return c.subscriptionAction(ctx, subscriptionID, "activate", reason)
}

func (c *Client) subscriptionAction(ctx context.Context, subscriptionID, action, reason string) error {
	path := subscriptionsPath + "/" + subscriptionID + "/" + action
	return c.do(ctx, http.MethodPost, path, subscriptionStatusRequest{Reason: reason}, nil)
}
