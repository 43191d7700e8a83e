package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/gamestore-backend/internal/order"
)

const cvvLength = 3

// VisaGateway validates card details and simulates a live charge call.
type VisaGateway struct {
	cardNumberLength int
	sim              *failureSimulator
	now              func() time.Time
}

func NewVisaGateway(cardNumberLength int, sim *failureSimulator, now func() time.Time) *VisaGateway {
	if now == nil {
		now = time.Now
	}
	return &VisaGateway{cardNumberLength: cardNumberLength, sim: sim, now: now}
}

func (g *VisaGateway) Pay(ctx context.Context, ord *order.Order, userID uuid.UUID, card *CardDetails) (Outcome, error) {
	if err := g.validateCard(card); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("visa: charge aborted: %w", err)
	}

	if g.sim.shouldFail() {
		log.Warn().Stringer("order_id", ord.ID).Msg("visa: simulated charge failure")
		return nil, fmt.Errorf("visa: charge declined by backend: %w", ErrGatewayFailure)
	}

	log.Info().Stringer("order_id", ord.ID).Stringer("user_id", userID).Str("amount", ord.Total().StringFixed(2)).Msg("visa: charge succeeded")
	return CardOutcome{Success: true}, nil
}

func (g *VisaGateway) validateCard(card *CardDetails) error {
	if card == nil {
		return &ValidationError{Field: "card", Reason: "card details are required"}
	}
	if len(card.Number) != g.cardNumberLength || !digitsOnly(card.Number) {
		return &ValidationError{
			Field:  "card_number",
			Reason: fmt.Sprintf("must be exactly %d digits", g.cardNumberLength),
		}
	}
	if len(card.CVV) != cvvLength || !digitsOnly(card.CVV) {
		return &ValidationError{
			Field:  "cvv",
			Reason: fmt.Sprintf("must be exactly %d digits", cvvLength),
		}
	}
	if card.ExpiryYear < g.now().UTC().Year() {
		return &ValidationError{Field: "expiry_year", Reason: "card has expired"}
	}

	return nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
