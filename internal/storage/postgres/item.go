package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/kart-store/internal/domain/item"
)

const (
	listItemsSQL = `SELECT id, name, description, price FROM items ORDER BY id`

	getItemByIDSQL = `SELECT id, name, description, price FROM items WHERE id = $1`

	findItemsByNameSQL = `SELECT id, name, description, price
		FROM items WHERE LOWER(name) = LOWER($1) ORDER BY id`

	insertItemSQL = `INSERT INTO items (name, description, price) VALUES ($1, $2, $3) RETURNING id`

	upsertItemSQL = `INSERT INTO items (id, name, description, price) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, price = EXCLUDED.price`

	syncItemSeqSQL = `SELECT setval(pg_get_serial_sequence('items', 'id'),
		GREATEST((SELECT MAX(id) FROM items), 1))`
)

var (
	_ item.Repository = (*ItemRepository)(nil)
	_ item.Writer     = (*ItemRepository)(nil)
)

// ItemRepository implements item.Repository backed by PostgreSQL.
type ItemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository returns an ItemRepository that uses the given pool.
func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{pool: pool}
}

// List returns all catalog items ordered by ID.
func (r *ItemRepository) List(ctx context.Context) ([]item.Item, error) {
	rows, err := r.pool.Query(ctx, listItemsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list items")
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[item.Item])
}

// GetByID returns a single item by its identifier.
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*item.Item, error) {
	rows, err := r.pool.Query(ctx, getItemByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get item %d", id)
	}

	it, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[item.Item])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, item.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get item %d", id)
	}
	return &it, nil
}

// FindByName returns items whose name matches, ignoring case.
func (r *ItemRepository) FindByName(ctx context.Context, name string) ([]item.Item, error) {
	rows, err := r.pool.Query(ctx, findItemsByNameSQL, name)
	if err != nil {
		return nil, errors.Wrapf(err, "find items named %q", name)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[item.Item])
	if err != nil {
		return nil, errors.Wrapf(err, "find items named %q", name)
	}
	if items == nil {
		items = []item.Item{}
	}
	return items, nil
}

// Upsert inserts or replaces it. A zero ID lets the database assign one.
func (r *ItemRepository) Upsert(ctx context.Context, it *item.Item) error {
	if err := it.Validate(); err != nil {
		return err
	}

	if it.ID == 0 {
		if err := r.pool.QueryRow(ctx, insertItemSQL, it.Name, it.Description, it.Price).Scan(&it.ID); err != nil {
			return errors.Wrapf(err, "insert item %q", it.Name)
		}
		return nil
	}

	if _, err := r.pool.Exec(ctx, upsertItemSQL, it.ID, it.Name, it.Description, it.Price); err != nil {
		return errors.Wrapf(err, "upsert item %d", it.ID)
	}
	// Explicit IDs bypass the sequence; move it past them.
	if _, err := r.pool.Exec(ctx, syncItemSeqSQL); err != nil {
		return errors.Wrap(err, "sync item sequence")
	}
	return nil
}
