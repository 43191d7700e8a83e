// Package invoice renders the payment document handed out for deferred bank
// settlements. Output is a plain-text artifact and is deterministic for a
// given clock value and validity window.
package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Generator struct {
	validityDays int
	now          func() time.Time
}

func NewGenerator(validityDays int, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{validityDays: validityDays, now: now}
}

func (g *Generator) ValidityDays() int {
	return g.validityDays
}

// Generate renders the invoice body. The expiry date is the issue date plus
// the configured validity window.
func (g *Generator) Generate(userID, orderID uuid.UUID, total decimal.Decimal) []byte {
	issuedAt := g.now().UTC()
	expiresAt := issuedAt.AddDate(0, 0, g.validityDays)

	var b strings.Builder
	b.WriteString("GAMESTORE PAYMENT INVOICE\n")
	b.WriteString("=========================\n")
	fmt.Fprintf(&b, "Order:     %s\n", orderID)
	fmt.Fprintf(&b, "Customer:  %s\n", userID)
	fmt.Fprintf(&b, "Issued:    %s\n", issuedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Valid to:  %s\n", expiresAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Total due: %s\n", total.StringFixed(2))
	b.WriteString("\nThe order ships after the transfer settles. Unpaid invoices expire on the date above.\n")

	return []byte(b.String())
}

// FileName is the suggested attachment name for a generated invoice.
func FileName(orderID uuid.UUID) string {
	return fmt.Sprintf("invoice_%s.txt", orderID)
}
