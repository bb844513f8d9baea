package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xenking/kart-store/internal/domain/auth"
	"github.com/xenking/kart-store/internal/domain/cart"
	"github.com/xenking/kart-store/internal/domain/item"
	"github.com/xenking/kart-store/internal/domain/order"
	"github.com/xenking/kart-store/internal/domain/user"
	"github.com/xenking/kart-store/internal/storage/memory"
	"github.com/xenking/kart-store/internal/storage/postgres"
	rediscart "github.com/xenking/kart-store/internal/storage/redis"
	"github.com/xenking/kart-store/pkg/health"
)

// stores groups the repositories selected by configuration.
type stores struct {
	items interface {
		item.Repository
		item.Writer
	}
	users  user.Repository
	carts  cart.Repository
	orders order.Repository
	keys   interface {
		auth.Repository
		auth.Writer
	}
	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStores connects the configured backends and registers their readiness
// checks with hs.
func openStores(ctx context.Context, lg *zap.Logger, cfg *Config, hs *health.Health) (_ *stores, rerr error) {
	s := &stores{}
	defer func() {
		if rerr != nil {
			s.Close()
		}
	}()

	switch cfg.Storage {
	case StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		s.closers = append(s.closers, pool.Close)

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return nil, errors.Wrap(err, "run migrations")
		}
		hs.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))

		s.items = postgres.NewItemRepository(pool)
		s.users = postgres.NewUserRepository(pool)
		s.carts = postgres.NewCartRepository(pool)
		s.orders = postgres.NewOrderRepository(pool)
		s.keys = postgres.NewAPIKeyRepository(pool)
		lg.Info("Using postgres storage")
	default:
		carts := memory.NewCartRepository()
		s.items = memory.NewItemRepository()
		s.users = memory.NewUserRepository(carts)
		s.carts = carts
		s.orders = memory.NewOrderRepository()
		s.keys = memory.NewAPIKeyRepository()
		lg.Warn("Using in-memory storage, data is lost on restart")
	}

	if cfg.CartStore == CartStoreRedis {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, func() { _ = rdb.Close() })

		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, errors.Wrap(err, "ping redis")
		}
		hs.AddReadinessCheck("redis", 2*time.Second, health.PingCheck(redisPinger{rdb}))

		s.carts = rediscart.NewCartRepository(rdb)
		s.users = &cartLinkedUsers{Repository: s.users, carts: s.carts}
		lg.Info("Using redis cart store", zap.String("addr", cfg.Redis.Addr))
	}

	return s, nil
}

// registerAPIKeys stores the configured keys under the pepper.
func registerAPIKeys(ctx context.Context, w auth.Writer, pepper []byte, keys []string) error {
	for i, key := range keys {
		info := &auth.APIKeyInfo{
			ID:      fmt.Sprintf("config-%d", i+1),
			KeyHash: auth.HashKey(pepper, key),
			Name:    "config",
		}
		if err := w.Upsert(ctx, info); err != nil {
			return errors.Wrapf(err, "register api key %s", info.ID)
		}
	}
	return nil
}

// cartLinkedUsers fills User.CartID from a cart store that lives outside the
// user repository's database.
type cartLinkedUsers struct {
	user.Repository
	carts cart.Repository
}

func (r *cartLinkedUsers) GetByID(ctx context.Context, id int64) (*user.User, error) {
	u, err := r.Repository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.link(ctx, u), nil
}

func (r *cartLinkedUsers) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	u, err := r.Repository.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return r.link(ctx, u), nil
}

func (r *cartLinkedUsers) link(ctx context.Context, u *user.User) *user.User {
	if c, err := r.carts.GetByUserID(ctx, u.ID); err == nil {
		u.CartID = c.ID
	}
	return u
}

type redisPinger struct {
	rdb redis.UniversalClient
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
