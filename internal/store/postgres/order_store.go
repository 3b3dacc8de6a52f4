package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quantfold/tradedesk/internal/domain"
)

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates a new OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderInsert = `
	INSERT INTO orders (
		id, instrument, quantity, side, entry_price,
		take_profit_price, stop_loss_price,
		order_type, order_class, time_in_force, status,
		created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7,
		$8, $9, $10, $11,
		$12, $13
	)`

func insertArgs(o domain.Order) []any {
	return []any{
		o.ID, o.Instrument, o.Quantity, string(o.Side), o.EntryPrice,
		o.TakeProfitPrice, o.StopLossPrice,
		string(o.Type), string(o.Class), string(o.TimeInForce), string(o.Status),
		o.CreatedAt, o.UpdatedAt,
	}
}

// Create inserts a new order row.
func (s *OrderStore) Create(ctx context.Context, o domain.Order) error {
	if _, err := s.pool.Exec(ctx, orderInsert, insertArgs(o)...); err != nil {
		return fmt.Errorf("postgres: create order %s: %w", o.ID, err)
	}
	return nil
}

const orderSelectCols = `id, instrument, quantity, side, entry_price,
	take_profit_price, stop_loss_price,
	order_type, order_class, time_in_force, status,
	created_at, updated_at`

func scanOrderFromRow(
	scanner interface{ Scan(dest ...any) error },
) (domain.Order, error) {
	var o domain.Order
	var side, orderType, orderClass, tif, status string

	err := scanner.Scan(
		&o.ID, &o.Instrument, &o.Quantity, &side, &o.EntryPrice,
		&o.TakeProfitPrice, &o.StopLossPrice,
		&orderType, &orderClass, &tif, &status,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}

	o.Side = domain.Side(side)
	o.Type = domain.OrderType(orderType)
	o.Class = domain.OrderClass(orderClass)
	o.TimeInForce = domain.TimeInForce(tif)
	o.Status = domain.OrderStatus(status)
	return o, nil
}

func scanOrderRows(rows pgx.Rows) ([]domain.Order, error) {
	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrderFromRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// GetByID retrieves a single order by ID.
func (s *OrderStore) GetByID(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderSelectCols+` FROM orders WHERE id = $1`, id)

	o, err := scanOrderFromRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("postgres: get order %s: %w", id, err)
	}
	return o, nil
}

// UpdateStatus changes the status of an existing order and stamps updated_at.
func (s *OrderStore) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("postgres: update order status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Replace cancels the existing order and inserts its replacement in one
// transaction, so a failure on either side leaves the book untouched.
func (s *OrderStore) Replace(ctx context.Context, cancelID uuid.UUID, replacement domain.Order) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin replace tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(domain.OrderStatusCanceled), cancelID)
	if err != nil {
		return fmt.Errorf("postgres: replace cancel %s: %w", cancelID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if _, err := tx.Exec(ctx, orderInsert, insertArgs(replacement)...); err != nil {
		return fmt.Errorf("postgres: replace insert %s: %w", replacement.ID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit replace: %w", err)
	}
	return nil
}

// CloseMatching bulk-updates every new order for the instrument to filled.
func (s *OrderStore) CloseMatching(ctx context.Context, instrument string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW()
		 WHERE status = $2 AND instrument = $3`,
		string(domain.OrderStatusFilled), string(domain.OrderStatusNew), instrument)
	if err != nil {
		return 0, fmt.Errorf("postgres: close position %s: %w", instrument, err)
	}
	return tag.RowsAffected(), nil
}

// ListByStatus returns orders for the instrument in any of the given statuses,
// newest first. instrument "all" matches every instrument.
func (s *OrderStore) ListByStatus(ctx context.Context, instrument string, statuses []domain.OrderStatus) ([]domain.Order, error) {
	strs := make([]string, len(statuses))
	for i, st := range statuses {
		strs[i] = string(st)
	}

	query := `SELECT ` + orderSelectCols + ` FROM orders WHERE status = ANY($1)`
	args := []any{strs}
	if instrument != "" && instrument != "all" {
		query += ` AND instrument = $2`
		args = append(args, instrument)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders by status: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan orders by status: %w", err)
	}
	return orders, nil
}

// ListTerminalBefore returns filled/canceled orders last updated strictly
// before the cutoff.
func (s *OrderStore) ListTerminalBefore(ctx context.Context, before time.Time) ([]domain.Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderSelectCols+` FROM orders
		 WHERE status = ANY($1) AND updated_at < $2
		 ORDER BY updated_at`,
		[]string{string(domain.OrderStatusFilled), string(domain.OrderStatusCanceled)},
		before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list terminal orders: %w", err)
	}
	defer rows.Close()

	orders, err := scanOrderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan terminal orders: %w", err)
	}
	return orders, nil
}

// Compile-time interface check.
var _ domain.OrderStore = (*OrderStore)(nil)
