package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-store/internal/codec"
	"github.com/xenking/kart-store/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (user_id, items, total, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`

	listOrdersByUserIDSQL = `SELECT id, user_id, items, total, created_at
		FROM orders WHERE user_id = $1 ORDER BY id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The item snapshot is stored as JSONB.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	err := r.pool.QueryRow(ctx, createOrderSQL,
		o.UserID, codec.MarshalItems(o.Items), o.Total, o.CreatedAt,
	).Scan(&o.ID)
	if err != nil {
		return errors.Wrapf(err, "create order for user %d", o.UserID)
	}
	return nil
}

// ListByUserID returns the user's orders oldest first.
func (r *OrderRepository) ListByUserID(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByUserIDSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders for user %d", userID)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders for user %d", userID)
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o     order.Order
		items []byte
	)
	if err := row.Scan(&o.ID, &o.UserID, &items, &o.Total, &o.CreatedAt); err != nil {
		return o, err
	}
	decoded, err := codec.UnmarshalItems(items)
	if err != nil {
		return o, err
	}
	o.Items = decoded
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}
