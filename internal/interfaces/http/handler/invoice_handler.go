package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	billingapp "github.com/portal/backend/internal/application/billing"
	"github.com/portal/backend/internal/domain/billing"
)

// InvoiceHandler handles invoice and one-off payment endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *billingapp.InvoiceService
	paymentService *billingapp.PaymentService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *billingapp.InvoiceService, paymentService *billingapp.PaymentService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		paymentService: paymentService,
	}
}

// RegisterRoutes registers invoice routes
func (h *InvoiceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("/:id", h.GetInvoice)
		invoices.POST("/:id/send", h.SendInvoice)
		invoices.POST("/:id/cancel", h.CancelInvoice)
		invoices.GET("/:id/payments", h.ListPayments)
		invoices.POST("/:id/orders", h.CreatePaymentOrder)
		invoices.POST("/:id/orders/:orderID/capture", h.CapturePaymentOrder)
	}
}

// LineItemRequest is one invoice line in a create request. Monetary values
// travel as strings to avoid float precision loss in transit.
type LineItemRequest struct {
	Description string `json:"description" binding:"required"`
	Quantity    string `json:"quantity" binding:"required"`
	UnitPrice   string `json:"unit_price" binding:"required"`
}

// CreateInvoiceRequest is the create-invoice request body
type CreateInvoiceRequest struct {
	Items   []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	DueDate time.Time         `json:"due_date" binding:"required"`
	TaxRate string            `json:"tax_rate"`
	Notes   string            `json:"notes"`
}

// LineItemResponse is one invoice line in a response
type LineItemResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
}

// InvoiceResponse is the invoice representation returned by the API
type InvoiceResponse struct {
	ID        string             `json:"id"`
	Number    string             `json:"number"`
	Status    string             `json:"status"`
	Subtotal  string             `json:"subtotal"`
	TaxRate   string             `json:"tax_rate"`
	TaxAmount string             `json:"tax_amount"`
	Total     string             `json:"total"`
	Currency  string             `json:"currency"`
	IssueDate time.Time          `json:"issue_date"`
	DueDate   time.Time          `json:"due_date"`
	PaidDate  *time.Time         `json:"paid_date,omitempty"`
	Notes     string             `json:"notes,omitempty"`
	Items     []LineItemResponse `json:"items"`
	CreatedAt time.Time          `json:"created_at"`
}

func toInvoiceResponse(invoice *billing.Invoice) InvoiceResponse {
	items := make([]LineItemResponse, len(invoice.Items))
	for i, item := range invoice.Items {
		items[i] = LineItemResponse{
			ID:          item.ID.String(),
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Amount:      item.Amount.StringFixed(2),
		}
	}
	return InvoiceResponse{
		ID:        invoice.ID.String(),
		Number:    invoice.Number,
		Status:    invoice.Status.String(),
		Subtotal:  invoice.Subtotal.StringFixed(2),
		TaxRate:   invoice.TaxRate.String(),
		TaxAmount: invoice.TaxAmount.StringFixed(2),
		Total:     invoice.Total.StringFixed(2),
		Currency:  string(invoice.Currency),
		IssueDate: invoice.IssueDate,
		DueDate:   invoice.DueDate,
		PaidDate:  invoice.PaidDate,
		Notes:     invoice.Notes,
		Items:     items,
		CreatedAt: invoice.CreatedAt,
	}
}

// PaymentResponse is the payment representation returned by the API
type PaymentResponse struct {
	ID             string    `json:"id"`
	InvoiceID      string    `json:"invoice_id,omitempty"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	TransactionID  string    `json:"transaction_id"`
	Method         string    `json:"method"`
	CapturedAt     time.Time `json:"captured_at"`
}

func toPaymentResponse(payment *billing.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:            payment.ID.String(),
		Amount:        payment.Amount.StringFixed(2),
		Currency:      string(payment.Currency),
		TransactionID: payment.TransactionID,
		Method:        string(payment.Method),
		CapturedAt:    payment.CapturedAt,
	}
	if payment.InvoiceID != nil {
		resp.InvoiceID = payment.InvoiceID.String()
	}
	if payment.SubscriptionID != nil {
		resp.SubscriptionID = payment.SubscriptionID.String()
	}
	return resp
}

// CreateInvoice creates a draft invoice
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return
	}

	var req CreateInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	items := make([]billing.LineItemInput, len(req.Items))
	for i, item := range req.Items {
		quantity, err := decimal.NewFromString(item.Quantity)
		if err != nil {
			h.BadRequest(c, "Invalid quantity: "+item.Quantity)
			return
		}
		unitPrice, err := decimal.NewFromString(item.UnitPrice)
		if err != nil {
			h.BadRequest(c, "Invalid unit price: "+item.UnitPrice)
			return
		}
		items[i] = billing.LineItemInput{
			Description: item.Description,
			Quantity:    quantity,
			UnitPrice:   unitPrice,
		}
	}

	taxRate := decimal.Zero
	if req.TaxRate != "" {
		taxRate, err = decimal.NewFromString(req.TaxRate)
		if err != nil {
			h.BadRequest(c, "Invalid tax rate: "+req.TaxRate)
			return
		}
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), billingapp.CreateInvoiceRequest{
		TenantID: tenantID,
		Items:    items,
		DueDate:  req.DueDate,
		TaxRate:  taxRate,
		Notes:    req.Notes,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toInvoiceResponse(invoice))
}

// GetInvoice returns one invoice, refreshing its overdue flag
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	tenantID, invoiceID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// SendInvoice transitions a draft invoice to sent
func (h *InvoiceHandler) SendInvoice(c *gin.Context) {
	tenantID, invoiceID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.SendInvoice(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// CancelInvoice voids an unpaid invoice
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	tenantID, invoiceID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toInvoiceResponse(invoice))
}

// ListPayments returns the payments recorded against an invoice
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	tenantID, invoiceID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	payments, err := h.invoiceService.ListPayments(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	responses := make([]PaymentResponse, len(payments))
	for i := range payments {
		responses[i] = toPaymentResponse(&payments[i])
	}
	h.Success(c, responses)
}

// PaymentOrderResponse is the gateway order returned when initiating a
// one-off payment. The client completes approval at the approval URL.
type PaymentOrderResponse struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	ApprovalURL string `json:"approval_url,omitempty"`
}

// CreatePaymentOrder initiates a gateway payment for a sent or overdue
// invoice
func (h *InvoiceHandler) CreatePaymentOrder(c *gin.Context) {
	tenantID, invoiceID, ok := h.tenantAndID(c)
	if !ok {
		return
	}

	order, err := h.paymentService.CreateOneOffPayment(c.Request.Context(), tenantID, invoiceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, PaymentOrderResponse{
		OrderID:     order.ID,
		Status:      order.Status,
		ApprovalURL: order.ApprovalURL,
	})
}

// CapturePaymentOrder captures an approved gateway order and records the
// payment
func (h *InvoiceHandler) CapturePaymentOrder(c *gin.Context) {
	tenantID, invoiceID, ok := h.tenantAndID(c)
	if !ok {
		return
	}
	orderID := c.Param("orderID")
	if orderID == "" {
		h.BadRequest(c, "Missing order ID")
		return
	}

	payment, err := h.paymentService.CaptureOneOffPayment(c.Request.Context(), tenantID, invoiceID, orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}

func (h *InvoiceHandler) tenantAndID(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Invalid tenant")
		return uuid.Nil, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return uuid.Nil, uuid.Nil, false
	}
	return tenantID, id, true
}
