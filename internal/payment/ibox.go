package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/gamestore-backend/internal/order"
)

// IBoxGateway settles through a physical terminal, so there is no card model
// to validate; it only carries the terminal's unreliability.
type IBoxGateway struct {
	sim *failureSimulator
	now func() time.Time
}

func NewIBoxGateway(sim *failureSimulator, now func() time.Time) *IBoxGateway {
	if now == nil {
		now = time.Now
	}
	return &IBoxGateway{sim: sim, now: now}
}

func (g *IBoxGateway) Pay(ctx context.Context, ord *order.Order, userID uuid.UUID, _ *CardDetails) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ibox: charge aborted: %w", err)
	}

	if g.sim.shouldFail() {
		log.Warn().Stringer("order_id", ord.ID).Msg("ibox: simulated terminal failure")
		return nil, fmt.Errorf("ibox: terminal rejected the charge: %w", ErrGatewayFailure)
	}

	out := TerminalOutcome{
		UserID:  userID,
		OrderID: ord.ID,
		PaidAt:  g.now().UTC(),
		Amount:  ord.Total(),
	}
	log.Info().Stringer("order_id", ord.ID).Stringer("user_id", userID).Str("amount", out.Amount.StringFixed(2)).Msg("ibox: terminal payment succeeded")

	return out, nil
}
