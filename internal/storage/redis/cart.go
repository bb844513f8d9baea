// Package redis stores carts in Redis. Each cart is one JSON value, and
// saves are compare-and-set on the cart version using WATCH/MULTI.
package redis

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/kart-store/internal/codec"
	"github.com/xenking/kart-store/internal/domain"
	"github.com/xenking/kart-store/internal/domain/cart"
)

const (
	keyPrefix = "kart:cart:"
	seqKey    = "kart:cart:seq"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository on a Redis client.
type CartRepository struct {
	rdb redis.UniversalClient
}

// NewCartRepository returns a CartRepository using rdb.
func NewCartRepository(rdb redis.UniversalClient) *CartRepository {
	return &CartRepository{rdb: rdb}
}

func cartKey(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

// Create stores an empty cart with a fresh ID unless the user already has
// one, then returns the stored cart.
func (r *CartRepository) Create(ctx context.Context, userID int64) (*cart.Cart, error) {
	c, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, cart.ErrNotFound) {
		return nil, err
	}

	id, err := r.rdb.Incr(ctx, seqKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "allocate cart id")
	}
	c = cart.New(userID)
	c.ID = id

	// SetNX loses to a concurrent creator; the winner's cart is returned.
	if _, err := r.rdb.SetNX(ctx, cartKey(userID), codec.MarshalCart(c), 0).Result(); err != nil {
		return nil, errors.Wrapf(err, "create cart for user %d", userID)
	}
	return r.GetByUserID(ctx, userID)
}

// GetByUserID returns the user's cart or cart.ErrNotFound.
func (r *CartRepository) GetByUserID(ctx context.Context, userID int64) (*cart.Cart, error) {
	return get(ctx, r.rdb, userID)
}

// Save writes c if the stored version still equals c.Version.
func (r *CartRepository) Save(ctx context.Context, c *cart.Cart) error {
	key := cartKey(c.UserID)
	next := c.Clone()
	next.Version++

	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := get(ctx, tx, c.UserID)
		if err != nil {
			return err
		}
		if stored.ID != c.ID || stored.Version != c.Version {
			return domain.ErrConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, codec.MarshalCart(next), 0)
			return nil
		})
		return err
	}, key)
	switch {
	case err == nil:
		c.Version = next.Version
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return domain.ErrConflict
	case errors.Is(err, domain.ErrConflict), errors.Is(err, cart.ErrNotFound):
		return err
	default:
		return errors.Wrapf(err, "save cart %d", c.ID)
	}
}

// getter is satisfied by both clients and WATCH transactions.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func get(ctx context.Context, cmd getter, userID int64) (*cart.Cart, error) {
	data, err := cmd.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cart.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get cart for user %d", userID)
	}
	return codec.UnmarshalCart(data)
}
