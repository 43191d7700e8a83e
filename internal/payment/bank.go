package payment

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/gamestore-backend/internal/invoice"
	"github.com/vasiliy-maslov/gamestore-backend/internal/order"
)

// BankGateway issues an invoice for deferred settlement. It never fails
// transactionally and never marks the order paid; completion happens when
// the transfer settles out of band.
type BankGateway struct {
	invoices *invoice.Generator
}

func NewBankGateway(invoices *invoice.Generator) *BankGateway {
	return &BankGateway{invoices: invoices}
}

func (g *BankGateway) Pay(ctx context.Context, ord *order.Order, userID uuid.UUID, _ *CardDetails) (Outcome, error) {
	doc := g.invoices.Generate(userID, ord.ID, ord.Total())

	log.Info().Stringer("order_id", ord.ID).Stringer("user_id", userID).Int("validity_days", g.invoices.ValidityDays()).Msg("bank: invoice issued, settlement deferred")

	return BankOutcome{
		InvoiceDocument: doc,
		FileName:        invoice.FileName(ord.ID),
	}, nil
}
