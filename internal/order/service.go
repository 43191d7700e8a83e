package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/gamestore-backend/internal/catalog"
	"github.com/vasiliy-maslov/gamestore-backend/internal/metrics"
)

// allowedTransitions is the full lifecycle graph. Orders only move forward;
// nothing ever returns to OPEN.
var allowedTransitions = map[Status]map[Status]bool{
	StatusOpen: {
		StatusCheckout: true,
	},
	StatusCheckout: {
		StatusPaid:      true,
		StatusCancelled: true,
	},
	StatusPaid: {
		StatusShipped: true,
	},
	StatusCancelled: {},
	StatusShipped:   {},
}

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrEmptyOrder      = errors.New("order has no lines")
	ErrProductNotFound = errors.New("product not found")
)

// ProductResolver is the slice of the catalog this package consumes.
type ProductResolver interface {
	GetGameByKey(ctx context.Context, key string) (*catalog.Game, error)
}

// CartCache holds a user's open order keyed by user ID. Invalidation is
// fire-and-forget: a failed delete is logged, never propagated.
type CartCache interface {
	Get(ctx context.Context, userID string) (*Order, error)
	Set(ctx context.Context, userID string, ord *Order) error
	Delete(ctx context.Context, userID string) error
}

var ErrCacheMiss = errors.New("cache miss")

type Service interface {
	AddGameToOrder(ctx context.Context, userID uuid.UUID, productKey string) (*Order, error)
	RemoveFromCart(ctx context.Context, userID uuid.UUID, productKey string) error
	DeleteOrderLine(ctx context.Context, orderID, productID uuid.UUID) error
	UpdateLineQuantity(ctx context.Context, orderID, productID uuid.UUID, quantity int) error
	GetCart(ctx context.Context, userID uuid.UUID) (*Order, error)
	GetActiveOrder(ctx context.Context, userID uuid.UUID) (*Order, error)
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error)
	CloseOrder(ctx context.Context, orderID uuid.UUID) error
	CompleteOrder(ctx context.Context, orderID uuid.UUID) error
	CancelOrder(ctx context.Context, orderID uuid.UUID) error
	ShipOrder(ctx context.Context, orderID uuid.UUID) error
	GetOrderHistory(ctx context.Context, userID uuid.UUID) ([]Order, error)
	GetPaidAndCancelledOrders(ctx context.Context) ([]Order, error)
}

type service struct {
	repo     Repository
	products ProductResolver
	cache    CartCache
	metrics  *metrics.StoreMetrics
}

func NewService(repo Repository, products ProductResolver, cache CartCache, m *metrics.StoreMetrics) Service {
	return &service{
		repo:     repo,
		products: products,
		cache:    cache,
		metrics:  m,
	}
}

func (s *service) AddGameToOrder(ctx context.Context, userID uuid.UUID, productKey string) (*Order, error) {
	game, err := s.products.GetGameByKey(ctx, productKey)
	if err != nil {
		if errors.Is(err, catalog.ErrGameNotFound) {
			log.Warn().Str("product_key", productKey).Msg("service: product key did not resolve")
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("service: failed to resolve product key %s: %w", productKey, err)
	}

	ord, err := s.repo.AddLine(ctx, userID, game.ID, game.Price, game.DiscountPercent)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Str("product_key", productKey).Msg("service: failed to add line to order")
		return nil, fmt.Errorf("service: failed to add game to order: %w", err)
	}

	s.invalidate(ctx, userID)
	log.Info().Stringer("order_id", ord.ID).Stringer("user_id", userID).Str("product_key", productKey).Msg("service: game added to order")

	return ord, nil
}

func (s *service) RemoveFromCart(ctx context.Context, userID uuid.UUID, productKey string) error {
	game, err := s.products.GetGameByKey(ctx, productKey)
	if err != nil {
		if errors.Is(err, catalog.ErrGameNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("service: failed to resolve product key %s: %w", productKey, err)
	}

	err = s.repo.RemoveLineForUser(ctx, userID, game.ID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrLineNotFound) {
			return err
		}
		return fmt.Errorf("service: failed to remove line from cart: %w", err)
	}

	s.invalidate(ctx, userID)
	return nil
}

func (s *service) DeleteOrderLine(ctx context.Context, orderID, productID uuid.UUID) error {
	userID, err := s.repo.DeleteLine(ctx, orderID, productID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrLineNotFound) || errors.Is(err, ErrStatusConflict) {
			return err
		}
		return fmt.Errorf("service: failed to delete order line: %w", err)
	}

	s.invalidate(ctx, userID)
	return nil
}

func (s *service) UpdateLineQuantity(ctx context.Context, orderID, productID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	userID, err := s.repo.UpdateLineQuantity(ctx, orderID, productID, quantity)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrLineNotFound) || errors.Is(err, ErrStatusConflict) {
			return err
		}
		return fmt.Errorf("service: failed to update line quantity: %w", err)
	}

	s.invalidate(ctx, userID)
	return nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*Order, error) {
	if cached, err := s.cache.Get(ctx, userID.String()); err == nil {
		return cached, nil
	} else if !errors.Is(err, ErrCacheMiss) {
		log.Warn().Err(err).Stringer("user_id", userID).Msg("service: cart cache read failed")
	}

	ord, err := s.repo.GetOpenOrderByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch open order: %w", err)
	}

	if err := s.cache.Set(ctx, userID.String(), ord); err != nil {
		log.Warn().Err(err).Stringer("user_id", userID).Msg("service: cart cache write failed")
	}

	return ord, nil
}

// GetActiveOrder returns the user's newest order still in the payment path
// (OPEN or CHECKOUT). It always reads the database, never the cache: the
// totals of the returned order get charged, so a stale cached cart is not
// acceptable here, and an order left in CHECKOUT by a failed gateway call
// must stay reachable for the retry.
func (s *service) GetActiveOrder(ctx context.Context, userID uuid.UUID) (*Order, error) {
	ord, err := s.repo.GetActiveOrderByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch active order: %w", err)
	}

	return ord, nil
}

func (s *service) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	ord, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	return ord, nil
}

// CloseOrder moves the cart into checkout. Under two concurrent calls the
// row lock guarantees exactly one wins; the other observes a conflict. The
// repository checks emptiness under the same lock, so a concurrent last-line
// delete cannot slip an empty order into checkout.
func (s *service) CloseOrder(ctx context.Context, orderID uuid.UUID) error {
	observed, userID, err := s.repo.Checkout(ctx, orderID)
	return s.finishTransition(ctx, orderID, StatusOpen, StatusCheckout, observed, userID, err)
}

func (s *service) CompleteOrder(ctx context.Context, orderID uuid.UUID) error {
	err := s.transition(ctx, orderID, StatusCheckout, StatusPaid)
	if errors.Is(err, ErrStatusConflict) {
		// Completing an already-paid order is a no-op.
		current, getErr := s.repo.GetOrderByID(ctx, orderID)
		if getErr == nil && current.Status == StatusPaid {
			log.Info().Stringer("order_id", orderID).Msg("service: order already paid, complete is a no-op")
			return nil
		}
	}
	return err
}

func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	return s.transition(ctx, orderID, StatusCheckout, StatusCancelled)
}

func (s *service) ShipOrder(ctx context.Context, orderID uuid.UUID) error {
	return s.transition(ctx, orderID, StatusPaid, StatusShipped)
}

func (s *service) GetOrderHistory(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.repo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch order history: %w", err)
	}

	return orders, nil
}

func (s *service) GetPaidAndCancelledOrders(ctx context.Context) ([]Order, error) {
	orders, err := s.repo.GetOrdersByStatus(ctx, StatusPaid, StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch paid and cancelled orders: %w", err)
	}

	return orders, nil
}

func (s *service) transition(ctx context.Context, orderID uuid.UUID, from, to Status) error {
	if !allowedTransitions[from][to] {
		return fmt.Errorf("service: transition from %s to %s is not in the lifecycle graph", from, to)
	}

	observed, userID, err := s.repo.TransitionStatus(ctx, orderID, from, to)
	return s.finishTransition(ctx, orderID, from, to, observed, userID, err)
}

func (s *service) finishTransition(ctx context.Context, orderID uuid.UUID, from, to, observed Status, userID uuid.UUID, err error) error {
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound):
			log.Warn().Stringer("order_id", orderID).Stringer("new_status", to).Msg("service: order not found, cannot update status")
			return ErrOrderNotFound
		case errors.Is(err, ErrEmptyOrder):
			log.Warn().Stringer("order_id", orderID).Msg("service: refusing to checkout an order with no lines")
			return ErrEmptyOrder
		case errors.Is(err, ErrStatusConflict):
			log.Warn().
				Stringer("order_id", orderID).
				Stringer("current_status", observed).
				Stringer("new_status", to).
				Msg("service: invalid status transition attempt")
			return ErrStatusConflict
		}
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("new_status", to).Msg("service: failed to update order status")
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	s.metrics.Transitions.WithLabelValues(from.String(), to.String()).Inc()
	s.invalidate(ctx, userID)
	log.Info().Stringer("order_id", orderID).Stringer("old_status", from).Stringer("new_status", to).Msg("service: order status updated")

	return nil
}

func (s *service) invalidate(ctx context.Context, userID uuid.UUID) {
	if err := s.cache.Delete(ctx, userID.String()); err != nil {
		log.Warn().Err(err).Stringer("user_id", userID).Msg("service: cart cache invalidation failed")
	}
}
