package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/portal/backend/internal/domain/billing"
	"github.com/portal/backend/internal/domain/shared"
)

// CreateOrder creates a one-off payment order for an invoice. The invoice
// number rides along as the purchase unit reference for the gateway
// dashboard; the invoice UUID goes into custom_id, which capture webhooks
// echo back for correlation.
func (c *Client) CreateOrder(ctx context.Context, invoiceID uuid.UUID, invoiceNumber string, amount decimal.Decimal, currency string) (*billing.GatewayOrder, error) {
	var resp orderResponse
	err := c.do(ctx, http.MethodPost, ordersPath, createOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			ReferenceID: invoiceNumber,
			InvoiceID:   invoiceNumber,
			CustomID:    invoiceID.String(),
			Amount:      money{CurrencyCode: currency, Value: amount.StringFixed(2)},
		}},
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("%w: order response carried no ID", shared.ErrGatewayRejected)
	}
	return &billing.GatewayOrder{
		ID:          resp.ID,
		Status:      resp.Status,
		ApprovalURL: approvalURL(resp.Links),
	}, nil
}

// CaptureOrder captures an approved order and returns the capture record.
// The capture ID is the transaction identifier payments deduplicate on.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*billing.GatewayCapture, error) {
	var resp orderResponse
	err := c.do(ctx, http.MethodPost, ordersPath+"/"+orderID+"/capture", nil, &resp)
	if err != nil {
		return nil, err
	}

	capture := firstCapture(resp)
	if capture == nil {
		return nil, fmt.Errorf("%w: capture response carried no capture", shared.ErrGatewayRejected)
	}
	amount, err := decimal.NewFromString(capture.Amount.Value)
	if err != nil {
		return nil, fmt.Errorf("gateway: capture amount %q is not a number: %w", capture.Amount.Value, err)
	}
	return &billing.GatewayCapture{
		OrderID:   resp.ID,
		CaptureID: capture.ID,
		Status:    capture.Status,
		Amount:    amount,
		Currency:  capture.Amount.CurrencyCode,
	}, nil
}

func firstCapture(resp orderResponse) *captureResp {
	for _, unit := range resp.PurchaseUnits {
		if len(unit.Payments.Captures) > 0 {
			return &unit.Payments.Captures[0]
		}
	}
	return nil
}
