package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-store/internal/codec"
	"github.com/xenking/kart-store/internal/domain"
	"github.com/xenking/kart-store/internal/domain/cart"
)

const (
	createCartSQL = `INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

	getCartByUserIDSQL = `SELECT id, user_id, items, total, version FROM carts WHERE user_id = $1`

	saveCartSQL = `UPDATE carts
		SET items = $2, total = $3, version = version + 1, updated_at = now()
		WHERE user_id = $1 AND version = $4`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. Entries
// are stored as a JSONB array and guarded by a version column.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Create inserts an empty cart unless the user already has one, then returns
// the stored cart.
func (r *CartRepository) Create(ctx context.Context, userID int64) (*cart.Cart, error) {
	if _, err := r.pool.Exec(ctx, createCartSQL, userID); err != nil {
		return nil, errors.Wrapf(err, "create cart for user %d", userID)
	}
	return r.GetByUserID(ctx, userID)
}

// GetByUserID returns the user's cart or cart.ErrNotFound.
func (r *CartRepository) GetByUserID(ctx context.Context, userID int64) (*cart.Cart, error) {
	rows, err := r.pool.Query(ctx, getCartByUserIDSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "get cart for user %d", userID)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCart)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get cart for user %d", userID)
	}
	return c, nil
}

// Save writes the cart if its version is current.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	tag, err := r.pool.Exec(ctx, saveCartSQL, c.UserID, codec.MarshalItems(c.Items), c.Total, c.Version)
	if err != nil {
		return errors.Wrapf(err, "save cart %d", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	c.Version++
	return nil
}

func scanCart(row pgx.CollectableRow) (*cart.Cart, error) {
	var (
		c     cart.Cart
		items []byte
	)
	if err := row.Scan(&c.ID, &c.UserID, &items, &c.Total, &c.Version); err != nil {
		return nil, err
	}
	decoded, err := codec.UnmarshalItems(items)
	if err != nil {
		return nil, err
	}
	c.Items = decoded
	return &c, nil
}
