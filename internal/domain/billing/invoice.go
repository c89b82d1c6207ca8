package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/shared/valueobject"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"     // Editable, not yet visible to the client
	InvoiceStatusSent      InvoiceStatus = "SENT"      // Delivered, awaiting payment
	InvoiceStatusPaid      InvoiceStatus = "PAID"      // Fully paid (terminal)
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"   // Past due date, still payable
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED" // Voided before payment (terminal)
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid,
		InvoiceStatusOverdue, InvoiceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no further transitions are allowed from this status
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCancelled
}

// InvoiceEvent is an input to the invoice state machine
type InvoiceEvent string

const (
	InvoiceEventSend    InvoiceEvent = "SEND"
	InvoiceEventPay     InvoiceEvent = "PAY"
	InvoiceEventOverdue InvoiceEvent = "OVERDUE"
	InvoiceEventCancel  InvoiceEvent = "CANCEL"
)

// invoiceTransitions is the explicit transition table for the invoice state
// machine. A (status, event) pair absent from the table is an illegal
// transition and is rejected rather than silently applied.
var invoiceTransitions = map[InvoiceStatus]map[InvoiceEvent]InvoiceStatus{
	InvoiceStatusDraft: {
		InvoiceEventSend:   InvoiceStatusSent,
		InvoiceEventCancel: InvoiceStatusCancelled,
	},
	InvoiceStatusSent: {
		InvoiceEventPay:     InvoiceStatusPaid,
		InvoiceEventOverdue: InvoiceStatusOverdue,
		InvoiceEventCancel:  InvoiceStatusCancelled,
	},
	InvoiceStatusOverdue: {
		InvoiceEventPay:    InvoiceStatusPaid,
		InvoiceEventCancel: InvoiceStatusCancelled,
	},
}

// NextInvoiceStatus resolves the transition table. The second return value is
// false when the transition is illegal.
func NextInvoiceStatus(current InvoiceStatus, event InvoiceEvent) (InvoiceStatus, bool) {
	next, ok := invoiceTransitions[current][event]
	return next, ok
}

// InvoiceLineItem is a single billed line on an invoice. Line items are
// created atomically with their invoice and never mutated independently.
type InvoiceLineItem struct {
	ID          uuid.UUID       `json:"id"`
	InvoiceID   uuid.UUID       `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"` // quantity x unit price, 2dp
}

// LineItemInput is the caller-supplied data for one invoice line
type LineItemInput struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Validate checks a line item input
func (in LineItemInput) Validate() error {
	if in.Description == "" {
		return shared.NewDomainError("INVALID_LINE_ITEM", "Line item description cannot be empty")
	}
	if in.Quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_LINE_ITEM", "Line item quantity must be positive")
	}
	if in.UnitPrice.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_LINE_ITEM", "Line item unit price must be positive")
	}
	return nil
}

// InvoiceTotals holds the computed monetary summary of an invoice
type InvoiceTotals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeInvoiceTotals computes subtotal, tax and total for a set of line
// items. Intermediate products and the running sum keep full precision;
// rounding to 2 decimal places happens only on the returned values, so
// per-line rounding error cannot compound.
//
//	subtotal  = round(sum(quantity x unit price), 2)
//	taxAmount = round(subtotal * taxRate, 2)
//	total     = round(subtotal + taxAmount, 2)
func ComputeInvoiceTotals(items []LineItemInput, taxRate decimal.Decimal) InvoiceTotals {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Quantity.Mul(item.UnitPrice))
	}
	subtotal := sum.Round(2)
	taxAmount := subtotal.Mul(taxRate).Round(2)
	total := subtotal.Add(taxAmount).Round(2)
	return InvoiceTotals{Subtotal: subtotal, TaxAmount: taxAmount, Total: total}
}

// Invoice is the billing aggregate root. It is created by the billing API and
// mutated only through its state machine; once paid it is immutable.
type Invoice struct {
	shared.TenantEntity
	Number    string               `json:"number"` // INV-<year>-<4-digit-seq>
	Status    InvoiceStatus        `json:"status"`
	Subtotal  decimal.Decimal      `json:"subtotal"`
	TaxRate   decimal.Decimal      `json:"tax_rate"`
	TaxAmount decimal.Decimal      `json:"tax_amount"`
	Total     decimal.Decimal      `json:"total"`
	Currency  valueobject.Currency `json:"currency"`
	IssueDate time.Time            `json:"issue_date"`
	DueDate   time.Time            `json:"due_date"`
	PaidDate  *time.Time           `json:"paid_date,omitempty"`
	Notes     string               `json:"notes,omitempty"`
	Items     []InvoiceLineItem    `json:"items"`
}

// NewInvoice creates a draft invoice with its line items. The number must
// already be allocated by the repository (atomically, see
// InvoiceRepository.NextInvoiceNumber).
func NewInvoice(tenantID uuid.UUID, number string, items []LineItemInput, dueDate time.Time, taxRate decimal.Decimal, notes string) (*Invoice, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if _, _, err := ParseInvoiceNumber(number); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("INVALID_LINE_ITEM", "Invoice requires at least one line item")
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate must be between 0 and 1")
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return nil, err
		}
	}

	totals := ComputeInvoiceTotals(items, taxRate)
	inv := &Invoice{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Number:       number,
		Status:       InvoiceStatusDraft,
		Subtotal:     totals.Subtotal,
		TaxRate:      taxRate,
		TaxAmount:    totals.TaxAmount,
		Total:        totals.Total,
		Currency:     valueobject.DefaultCurrency,
		IssueDate:    time.Now(),
		DueDate:      dueDate,
		Notes:        notes,
	}
	for _, item := range items {
		inv.Items = append(inv.Items, InvoiceLineItem{
			ID:          uuid.New(),
			InvoiceID:   inv.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Quantity.Mul(item.UnitPrice).Round(2),
		})
	}
	return inv, nil
}

// apply runs one event through the transition table
func (i *Invoice) apply(event InvoiceEvent) error {
	next, ok := NextInvoiceStatus(i.Status, event)
	if !ok {
		return shared.NewDomainError("INVALID_STATE",
			"Invoice "+i.Number+" cannot transition from "+i.Status.String()+" on "+string(event))
	}
	i.Status = next
	i.Touch()
	return nil
}

// MarkSent transitions the invoice from draft to sent
func (i *Invoice) MarkSent() error {
	return i.apply(InvoiceEventSend)
}

// MarkPaid transitions the invoice to paid and stamps the paid date.
// Paid is terminal: the caller must already have deduplicated the capture
// event, a second MarkPaid is an illegal transition.
func (i *Invoice) MarkPaid(paidAt time.Time) error {
	if err := i.apply(InvoiceEventPay); err != nil {
		return err
	}
	i.PaidDate = &paidAt
	return nil
}

// Cancel voids a non-paid invoice
func (i *Invoice) Cancel() error {
	return i.apply(InvoiceEventCancel)
}

// IsPaid returns true if the invoice has been paid
func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}

// RefreshOverdue lazily flips a sent invoice to overdue when its due date has
// passed. Overdue is evaluated on read, never pushed by a timer. Returns true
// if the status changed and the caller should persist the invoice.
func (i *Invoice) RefreshOverdue(now time.Time) bool {
	if i.Status != InvoiceStatusSent {
		return false
	}
	if !now.After(i.DueDate) {
		return false
	}
	// Transition is in the table, error impossible here.
	_ = i.apply(InvoiceEventOverdue)
	return true
}
