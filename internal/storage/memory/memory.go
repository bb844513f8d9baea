// Package memory provides in-process implementations of the domain
// repositories. They back the API server when no database is configured
// and are safe for concurrent use.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-store/internal/domain"
	"github.com/xenking/kart-store/internal/domain/auth"
	"github.com/xenking/kart-store/internal/domain/cart"
	"github.com/xenking/kart-store/internal/domain/item"
	"github.com/xenking/kart-store/internal/domain/order"
	"github.com/xenking/kart-store/internal/domain/user"
)

var (
	_ item.Repository  = (*ItemRepository)(nil)
	_ item.Writer      = (*ItemRepository)(nil)
	_ user.Repository  = (*UserRepository)(nil)
	_ cart.Repository  = (*CartRepository)(nil)
	_ order.Repository = (*OrderRepository)(nil)
	_ auth.Repository  = (*APIKeyRepository)(nil)
	_ auth.Writer      = (*APIKeyRepository)(nil)
)

// ItemRepository is an in-memory item catalog.
type ItemRepository struct {
	mu     sync.RWMutex
	items  map[int64]item.Item
	nextID int64
}

// NewItemRepository returns a catalog holding items. It panics if any item
// fails validation; load untrusted catalogs through Upsert instead.
func NewItemRepository(items ...item.Item) *ItemRepository {
	r := &ItemRepository{items: make(map[int64]item.Item, len(items))}
	for _, it := range items {
		if err := r.Upsert(context.Background(), &it); err != nil {
			panic(errors.Wrapf(err, "memory: item %d", it.ID))
		}
	}
	return r
}

// List returns all items ordered by ID.
func (r *ItemRepository) List(_ context.Context) ([]item.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]item.Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	slices.SortFunc(out, func(a, b item.Item) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *ItemRepository) GetByID(_ context.Context, id int64) (*item.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, ok := r.items[id]
	if !ok {
		return nil, item.ErrNotFound
	}
	return &it, nil
}

func (r *ItemRepository) FindByName(ctx context.Context, name string) ([]item.Item, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := []item.Item{}
	for _, it := range all {
		if strings.EqualFold(it.Name, name) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Upsert stores it, assigning an ID when it.ID is zero.
func (r *ItemRepository) Upsert(_ context.Context, it *item.Item) error {
	if err := it.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if it.ID == 0 {
		r.nextID++
		it.ID = r.nextID
	}
	r.nextID = max(r.nextID, it.ID)
	r.items[it.ID] = *it
	return nil
}

// UserRepository is an in-memory user directory.
type UserRepository struct {
	mu     sync.RWMutex
	byID   map[int64]*user.User
	byName map[string]int64
	nextID int64
	carts  *CartRepository
}

// NewUserRepository returns an empty directory. When carts is non-nil,
// lookups fill User.CartID from it.
func NewUserRepository(carts *CartRepository) *UserRepository {
	return &UserRepository{
		byID:   map[int64]*user.User{},
		byName: map[string]int64{},
		carts:  carts,
	}
}

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[u.Username]; ok {
		return user.ErrUsernameTaken
	}
	r.nextID++
	u.ID = r.nextID
	u.CreatedAt = time.Now().UTC()

	cp := *u
	r.byID[u.ID] = &cp
	r.byName[u.Username] = u.ID
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*user.User, error) {
	r.mu.RLock()
	u, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return nil, user.ErrNotFound
	}
	return r.withCart(ctx, *u), nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	r.mu.RLock()
	id, ok := r.byName[username]
	var u user.User
	if ok {
		u = *r.byID[id]
	}
	r.mu.RUnlock()
	if !ok {
		return nil, user.ErrNotFound
	}
	return r.withCart(ctx, u), nil
}

func (r *UserRepository) Usernames(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	slices.Sort(out)
	return out, nil
}

func (r *UserRepository) withCart(ctx context.Context, u user.User) *user.User {
	if r.carts != nil {
		if c, err := r.carts.GetByUserID(ctx, u.ID); err == nil {
			u.CartID = c.ID
		}
	}
	return &u
}

// CartRepository is an in-memory versioned cart store.
type CartRepository struct {
	mu     sync.Mutex
	byUser map[int64]*cart.Cart
	nextID int64
}

// NewCartRepository returns an empty cart store.
func NewCartRepository() *CartRepository {
	return &CartRepository{byUser: map[int64]*cart.Cart{}}
}

func (r *CartRepository) Create(_ context.Context, userID int64) (*cart.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byUser[userID]
	if !ok {
		r.nextID++
		c = cart.New(userID)
		c.ID = r.nextID
		r.byUser[userID] = c
	}
	return c.Clone(), nil
}

func (r *CartRepository) GetByUserID(_ context.Context, userID int64) (*cart.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byUser[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c.Clone(), nil
}

func (r *CartRepository) Save(_ context.Context, c *cart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byUser[c.UserID]
	if !ok {
		return cart.ErrNotFound
	}
	if stored.ID != c.ID || stored.Version != c.Version {
		return domain.ErrConflict
	}
	c.Version++
	r.byUser[c.UserID] = c.Clone()
	return nil
}

// OrderRepository is an in-memory append-only order log.
type OrderRepository struct {
	mu     sync.RWMutex
	orders []order.Order
}

// NewOrderRepository returns an empty order log.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o.ID = int64(len(r.orders) + 1)
	cp := *o
	cp.Items = item.Clone(o.Items)
	r.orders = append(r.orders, cp)
	return nil
}

func (r *OrderRepository) ListByUserID(_ context.Context, userID int64) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []order.Order{}
	for _, o := range r.orders {
		if o.UserID == userID {
			o.Items = item.Clone(o.Items)
			out = append(out, o)
		}
	}
	return out, nil
}

// APIKeyRepository is an in-memory API key store keyed by hash.
type APIKeyRepository struct {
	mu     sync.RWMutex
	byHash map[string]auth.APIKeyInfo
}

// NewAPIKeyRepository returns an empty key store.
func NewAPIKeyRepository() *APIKeyRepository {
	return &APIKeyRepository{byHash: map[string]auth.APIKeyInfo{}}
}

func (r *APIKeyRepository) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, ok := r.byHash[hash]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	info.Scopes = slices.Clone(info.Scopes)
	return &info, nil
}

func (r *APIKeyRepository) Upsert(_ context.Context, info *auth.APIKeyInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *info
	cp.Scopes = slices.Clone(info.Scopes)
	r.byHash[info.KeyHash] = cp
	return nil
}
