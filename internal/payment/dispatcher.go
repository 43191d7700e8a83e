package payment

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/gamestore-backend/internal/config"
	"github.com/vasiliy-maslov/gamestore-backend/internal/invoice"
	"github.com/vasiliy-maslov/gamestore-backend/internal/order"
)

// Dispatcher holds one gateway per method and selects with an exhaustive
// switch. It carries no mutable state and is safe for concurrent reuse.
type Dispatcher struct {
	visa Gateway
	ibox Gateway
	bank Gateway
}

// NewDispatcher wires the three gateways. Visa and IBox share one seedable
// failure simulator so tests can pin the behaviour.
func NewDispatcher(cfg config.PaymentConfig, invoices *invoice.Generator, rng *rand.Rand, now func() time.Time) *Dispatcher {
	sim := newFailureSimulator(cfg.FailureProbability, rng)
	return &Dispatcher{
		visa: NewVisaGateway(cfg.CardNumberLength, sim, now),
		ibox: NewIBoxGateway(sim, now),
		bank: NewBankGateway(invoices),
	}
}

func (d *Dispatcher) Gateway(m Method) (Gateway, error) {
	switch m {
	case MethodVisa:
		return d.visa, nil
	case MethodIBox:
		return d.ibox, nil
	case MethodBank:
		return d.bank, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, m)
	}
}

// Pay checks the shared gateway preconditions and invokes the selected
// backend. The order must be in checkout and must have at least one line.
func (d *Dispatcher) Pay(ctx context.Context, m Method, ord *order.Order, userID uuid.UUID, card *CardDetails) (Outcome, error) {
	if ord.Status != order.StatusCheckout {
		return nil, order.ErrStatusConflict
	}
	if len(ord.Lines) == 0 {
		return nil, order.ErrEmptyOrder
	}

	gw, err := d.Gateway(m)
	if err != nil {
		return nil, err
	}

	return gw.Pay(ctx, ord, userID, card)
}
