package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrLineNotFound   = errors.New("order line not found")
	ErrStatusConflict = errors.New("order status does not permit this operation")
)

type Repository interface {
	// AddLine merges or appends a line on the user's open order, creating the
	// order first if the user has none. The open order row is locked for the
	// duration of the transaction.
	AddLine(ctx context.Context, userID, productID uuid.UUID, unitPrice decimal.Decimal, discountPercent int) (*Order, error)
	RemoveLineForUser(ctx context.Context, userID, productID uuid.UUID) error
	DeleteLine(ctx context.Context, orderID, productID uuid.UUID) (uuid.UUID, error)
	UpdateLineQuantity(ctx context.Context, orderID, productID uuid.UUID, quantity int) (uuid.UUID, error)
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error)
	GetOpenOrderByUserID(ctx context.Context, userID uuid.UUID) (*Order, error)
	// GetActiveOrderByUserID returns the user's newest order that is still in
	// the payment path, i.e. in OPEN or CHECKOUT status.
	GetActiveOrderByUserID(ctx context.Context, userID uuid.UUID) (*Order, error)
	// Checkout moves the order from OPEN to CHECKOUT under a row lock. The
	// emptiness check runs in the same transaction, so a concurrent last-line
	// delete cannot let an empty order through.
	Checkout(ctx context.Context, orderID uuid.UUID) (Status, uuid.UUID, error)
	// TransitionStatus moves the order from exactly `from` to `to` under a row
	// lock. It returns the status observed under the lock and the owning user;
	// when the observed status differs from `from` the error is
	// ErrStatusConflict and no write happens.
	TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to Status) (Status, uuid.UUID, error)
	GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
	GetOrdersByStatus(ctx context.Context, statuses ...Status) ([]Order, error)
}

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *PostgresRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Msg("Panic recovered during transaction, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	err = fn(tx)
	return err
}

const orderColumns = `id, user_id, status, created_at, updated_at`

// lockOpenOrderByUser reads the user's open order row with FOR UPDATE so a
// concurrent read-then-mutate sequence on the same cart blocks until commit.
func lockOpenOrderByUser(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND status = $2
		FOR UPDATE
	`

	var ord Order
	err := tx.QueryRow(ctx, query, userID, string(StatusOpen)).Scan(
		&ord.ID, &ord.UserID, &ord.Status, &ord.CreatedAt, &ord.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to lock open order for user %s: %w", userID, err)
	}

	return &ord, nil
}

func lockOrderByID(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	var ord Order
	err := tx.QueryRow(ctx, query, orderID).Scan(
		&ord.ID, &ord.UserID, &ord.Status, &ord.CreatedAt, &ord.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to lock order %s: %w", orderID, err)
	}

	return &ord, nil
}

func (r *PostgresRepository) AddLine(ctx context.Context, userID, productID uuid.UUID, unitPrice decimal.Decimal, discountPercent int) (*Order, error) {
	result, err := r.addLine(ctx, userID, productID, unitPrice, discountPercent)
	if isUniqueViolation(err, "orders_one_open_per_user") {
		// Two first-ever adds raced: FOR UPDATE locked nothing because no open
		// order existed yet, and the loser's INSERT hit the partial unique
		// index. The winner's row is committed now, so a retry locks it and
		// merges into it.
		result, err = r.addLine(ctx, userID, productID, unitPrice, discountPercent)
	}

	return result, err
}

func (r *PostgresRepository) addLine(ctx context.Context, userID, productID uuid.UUID, unitPrice decimal.Decimal, discountPercent int) (*Order, error) {
	var result *Order

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		ord, err := lockOpenOrderByUser(ctx, tx, userID)
		if errors.Is(err, ErrOrderNotFound) {
			ord, err = createOpenOrder(ctx, tx, userID)
		}
		if err != nil {
			return err
		}

		lineID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order line ID: %w", err)
		}

		now := time.Now().UTC()
		// Merging keeps the original unit_price snapshot; only quantity moves.
		queryLine := `
			INSERT INTO order_lines (id, order_id, product_id, unit_price, quantity, discount_percent, created_at, updated_at)
			VALUES ($1, $2, $3, $4, 1, $5, $6, $6)
			ON CONFLICT (order_id, product_id)
			DO UPDATE SET quantity = order_lines.quantity + 1, updated_at = $6
		`
		_, err = tx.Exec(ctx, queryLine, lineID, ord.ID, productID, unitPrice, discountPercent, now)
		if err != nil {
			return fmt.Errorf("repository: failed to upsert order line for order %s: %w", ord.ID, err)
		}

		ord.Lines, err = selectLines(ctx, tx, ord.ID)
		if err != nil {
			return err
		}

		result = ord
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func createOpenOrder(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*Order, error) {
	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("repository: failed to generate order ID: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO orders (id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`
	_, err = tx.Exec(ctx, query, orderID, userID, string(StatusOpen), now)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to create open order for user %s: %w", userID, err)
	}

	return &Order{
		ID:        orderID,
		UserID:    userID,
		Status:    StatusOpen,
		Lines:     make([]OrderLine, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

func (r *PostgresRepository) RemoveLineForUser(ctx context.Context, userID, productID uuid.UUID) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		ord, err := lockOpenOrderByUser(ctx, tx, userID)
		if err != nil {
			return err
		}

		return deleteLine(ctx, tx, ord.ID, productID)
	})
}

func (r *PostgresRepository) DeleteLine(ctx context.Context, orderID, productID uuid.UUID) (uuid.UUID, error) {
	var userID uuid.UUID

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		ord, err := lockOrderByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if ord.Status != StatusOpen {
			return ErrStatusConflict
		}
		userID = ord.UserID

		return deleteLine(ctx, tx, orderID, productID)
	})
	if err != nil {
		return uuid.Nil, err
	}

	return userID, nil
}

func deleteLine(ctx context.Context, tx pgx.Tx, orderID, productID uuid.UUID) error {
	query := `DELETE FROM order_lines WHERE order_id = $1 AND product_id = $2`
	cmdTag, err := tx.Exec(ctx, query, orderID, productID)
	if err != nil {
		return fmt.Errorf("repository: failed to delete order line for order %s: %w", orderID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrLineNotFound
	}

	return nil
}

func (r *PostgresRepository) UpdateLineQuantity(ctx context.Context, orderID, productID uuid.UUID, quantity int) (uuid.UUID, error) {
	var userID uuid.UUID

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		ord, err := lockOrderByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if ord.Status != StatusOpen {
			return ErrStatusConflict
		}
		userID = ord.UserID

		query := `
			UPDATE order_lines
			SET quantity = $1, updated_at = $2
			WHERE order_id = $3 AND product_id = $4
		`
		cmdTag, err := tx.Exec(ctx, query, quantity, time.Now().UTC(), orderID, productID)
		if err != nil {
			return fmt.Errorf("repository: failed to update line quantity for order %s: %w", orderID, err)
		}
		if cmdTag.RowsAffected() == 0 {
			return ErrLineNotFound
		}

		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	return userID, nil
}

func (r *PostgresRepository) Checkout(ctx context.Context, orderID uuid.UUID) (Status, uuid.UUID, error) {
	var (
		observed Status
		userID   uuid.UUID
	)

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		ord, err := lockOrderByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		observed = ord.Status
		userID = ord.UserID

		if observed != StatusOpen {
			return ErrStatusConflict
		}

		var lineCount int
		err = tx.QueryRow(ctx, `SELECT count(*) FROM order_lines WHERE order_id = $1`, orderID).Scan(&lineCount)
		if err != nil {
			return fmt.Errorf("repository: failed to count lines for order %s: %w", orderID, err)
		}
		if lineCount == 0 {
			return ErrEmptyOrder
		}

		query := `
			UPDATE orders
			SET status = $1, updated_at = $2
			WHERE id = $3
		`
		_, err = tx.Exec(ctx, query, string(StatusCheckout), time.Now().UTC(), orderID)
		if err != nil {
			return fmt.Errorf("repository: failed to update status for order %s: %w", orderID, err)
		}

		return nil
	})
	if err != nil {
		return observed, userID, err
	}

	return StatusCheckout, userID, nil
}

func (r *PostgresRepository) TransitionStatus(ctx context.Context, orderID uuid.UUID, from, to Status) (Status, uuid.UUID, error) {
	var (
		observed Status
		userID   uuid.UUID
	)

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		ord, err := lockOrderByID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		observed = ord.Status
		userID = ord.UserID

		if observed != from {
			return ErrStatusConflict
		}

		query := `
			UPDATE orders
			SET status = $1, updated_at = $2
			WHERE id = $3
		`
		_, err = tx.Exec(ctx, query, string(to), time.Now().UTC(), orderID)
		if err != nil {
			return fmt.Errorf("repository: failed to update status for order %s: %w", orderID, err)
		}

		return nil
	})
	if err != nil {
		return observed, userID, err
	}

	return to, userID, nil
}

func (r *PostgresRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE id = $1
	`

	var ord Order
	err := r.db.QueryRow(ctx, query, orderID).Scan(
		&ord.ID, &ord.UserID, &ord.Status, &ord.CreatedAt, &ord.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", orderID, err)
	}

	ord.Lines, err = selectLines(ctx, r.db, orderID)
	if err != nil {
		return nil, err
	}

	return &ord, nil
}

func (r *PostgresRepository) GetOpenOrderByUserID(ctx context.Context, userID uuid.UUID) (*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND status = $2
	`

	var ord Order
	err := r.db.QueryRow(ctx, query, userID, string(StatusOpen)).Scan(
		&ord.ID, &ord.UserID, &ord.Status, &ord.CreatedAt, &ord.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select open order for user %s: %w", userID, err)
	}

	ord.Lines, err = selectLines(ctx, r.db, ord.ID)
	if err != nil {
		return nil, err
	}

	return &ord, nil
}

func (r *PostgresRepository) GetActiveOrderByUserID(ctx context.Context, userID uuid.UUID) (*Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1 AND status = ANY($2)
		ORDER BY created_at DESC
		LIMIT 1
	`

	statuses := []string{string(StatusOpen), string(StatusCheckout)}

	var ord Order
	err := r.db.QueryRow(ctx, query, userID, statuses).Scan(
		&ord.ID, &ord.UserID, &ord.Status, &ord.CreatedAt, &ord.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select active order for user %s: %w", userID, err)
	}

	ord.Lines, err = selectLines(ctx, r.db, ord.ID)
	if err != nil {
		return nil, err
	}

	return &ord, nil
}

func (r *PostgresRepository) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user %s: %w", userID, err)
	}
	defer rows.Close()

	return collectOrdersWithLines(ctx, r.db, rows)
}

func (r *PostgresRepository) GetOrdersByStatus(ctx context.Context, statuses ...Status) ([]Order, error) {
	values := make([]string, 0, len(statuses))
	for _, st := range statuses {
		values = append(values, string(st))
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = ANY($1)
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, values)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders by status: %w", err)
	}
	defer rows.Close()

	return collectOrdersWithLines(ctx, r.db, rows)
}

const lineColumns = `id, order_id, product_id, unit_price, quantity, discount_percent, created_at, updated_at`

func selectLines(ctx context.Context, q querier, orderID uuid.UUID) ([]OrderLine, error) {
	query := `
		SELECT ` + lineColumns + `
		FROM order_lines
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order lines for order %s: %w", orderID, err)
	}
	defer rows.Close()

	lines := make([]OrderLine, 0)
	for rows.Next() {
		var line OrderLine
		err := rows.Scan(
			&line.ID, &line.OrderID, &line.ProductID, &line.UnitPrice,
			&line.Quantity, &line.DiscountPercent, &line.CreatedAt, &line.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order line for order %s: %w", orderID, err)
		}
		lines = append(lines, line)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order lines for order %s: %w", orderID, err)
	}

	return lines, nil
}

// collectOrdersWithLines drains order rows, then attaches lines for all of
// them with a single ANY query.
func collectOrdersWithLines(ctx context.Context, q querier, rows pgx.Rows) ([]Order, error) {
	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for rows.Next() {
		var ord Order
		err := rows.Scan(&ord.ID, &ord.UserID, &ord.Status, &ord.CreatedAt, &ord.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		ord.Lines = make([]OrderLine, 0)
		ordersMap[ord.ID] = &ord
		orderIDs = append(orderIDs, ord.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	query := `
		SELECT ` + lineColumns + `
		FROM order_lines
		WHERE order_id = ANY($1)
		ORDER BY created_at, id
	`
	lineRows, err := q.Query(ctx, query, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order lines: %w", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var line OrderLine
		err := lineRows.Scan(
			&line.ID, &line.OrderID, &line.ProductID, &line.UnitPrice,
			&line.Quantity, &line.DiscountPercent, &line.CreatedAt, &line.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order line: %w", err)
		}
		if ord, ok := ordersMap[line.OrderID]; ok {
			ord.Lines = append(ord.Lines, line)
		}
	}
	if err = lineRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order lines: %w", err)
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		if ord, ok := ordersMap[id]; ok {
			result = append(result, *ord)
		}
	}

	return result, nil
}
