package billing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/portal/backend/internal/domain/shared"
)

// invoiceNumberPrefix is the fixed prefix of every invoice number
const invoiceNumberPrefix = "INV"

// FormatInvoiceNumber renders the external invoice number contract:
// INV-<4-digit-year>-<4-digit-zero-padded-sequence>, e.g. INV-2026-0006.
// The format is bit-exact: clients parse it.
func FormatInvoiceNumber(year int, seq int) string {
	return fmt.Sprintf("%s-%04d-%04d", invoiceNumberPrefix, year, seq)
}

// InvoiceNumberPrefix returns the shared prefix of all invoice numbers for a
// year, e.g. "INV-2026-". Repositories use it to scan for the current maximum.
func InvoiceNumberPrefix(year int) string {
	return fmt.Sprintf("%s-%04d-", invoiceNumberPrefix, year)
}

// ParseInvoiceNumber splits an invoice number into year and sequence.
// Sequences above 9999 are still parsed; the zero padding is a minimum width.
func ParseInvoiceNumber(number string) (year int, seq int, err error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 || parts[0] != invoiceNumberPrefix {
		return 0, 0, shared.NewDomainError("INVALID_INVOICE_NUMBER",
			"Invoice number must have the form INV-<year>-<sequence>")
	}
	year, yerr := strconv.Atoi(parts[1])
	if yerr != nil || len(parts[1]) != 4 {
		return 0, 0, shared.NewDomainError("INVALID_INVOICE_NUMBER",
			"Invoice number year must be four digits")
	}
	seq, serr := strconv.Atoi(parts[2])
	if serr != nil || len(parts[2]) < 4 || seq < 1 {
		return 0, 0, shared.NewDomainError("INVALID_INVOICE_NUMBER",
			"Invoice number sequence must be a positive zero-padded integer")
	}
	return year, seq, nil
}
