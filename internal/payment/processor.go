package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/gamestore-backend/internal/metrics"
	"github.com/vasiliy-maslov/gamestore-backend/internal/order"
)

// OrderLifecycle is the slice of the order service the processor drives.
// GetActiveOrder must bypass any cache and return the user's order in OPEN
// or CHECKOUT status: the charged amount comes from it, and an order left in
// CHECKOUT by a failed gateway call must stay reachable for the retry.
type OrderLifecycle interface {
	GetActiveOrder(ctx context.Context, userID uuid.UUID) (*order.Order, error)
	CloseOrder(ctx context.Context, orderID uuid.UUID) error
	CompleteOrder(ctx context.Context, orderID uuid.UUID) error
}

// Processor runs one payment attempt end to end: close the user's cart,
// dispatch to the selected gateway under a timeout, and advance the order
// on immediate settlement. A gateway failure leaves the order in checkout
// so the caller can retry with the same or another method.
type Processor struct {
	orders     OrderLifecycle
	dispatcher *Dispatcher
	metrics    *metrics.StoreMetrics
	timeout    time.Duration
}

func NewProcessor(orders OrderLifecycle, dispatcher *Dispatcher, m *metrics.StoreMetrics, timeout time.Duration) *Processor {
	return &Processor{
		orders:     orders,
		dispatcher: dispatcher,
		metrics:    m,
		timeout:    timeout,
	}
}

func (p *Processor) Pay(ctx context.Context, userID uuid.UUID, methodName string, card *CardDetails) (Outcome, error) {
	m, err := ParseMethod(methodName)
	if err != nil {
		return nil, err
	}
	p.metrics.PaymentAttempts.WithLabelValues(m.String()).Inc()

	ord, err := p.orders.GetActiveOrder(ctx, userID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("processor: failed to load order for payment: %w", err)
	}

	// A fresh cart is moved to checkout first; a cart already in checkout is
	// a retry after an earlier gateway failure and proceeds as-is.
	if ord.Status == order.StatusOpen {
		if err := p.orders.CloseOrder(ctx, ord.ID); err != nil {
			return nil, err
		}
		ord.Status = order.StatusCheckout
	}

	gatewayCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	outcome, err := p.dispatcher.Pay(gatewayCtx, m, ord, userID, card)
	if err != nil {
		var vErr *ValidationError
		switch {
		case errors.As(err, &vErr):
			p.metrics.PaymentFailures.WithLabelValues(m.String(), "validation").Inc()
		case errors.Is(err, ErrGatewayFailure):
			p.metrics.PaymentFailures.WithLabelValues(m.String(), "gateway").Inc()
			log.Warn().Stringer("order_id", ord.ID).Str("method", m.String()).Msg("processor: gateway failed, order left in checkout for retry")
		}
		return nil, err
	}

	switch outcome.(type) {
	case CardOutcome, TerminalOutcome:
		if err := p.orders.CompleteOrder(ctx, ord.ID); err != nil {
			return nil, fmt.Errorf("processor: payment settled but order completion failed: %w", err)
		}
	case BankOutcome:
		// Deferred settlement: the order stays in checkout until the bank
		// transfer is confirmed out of band.
	}

	return outcome, nil
}
