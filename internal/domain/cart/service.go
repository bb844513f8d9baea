package cart

import (
	"context"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/moby/locker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-store/internal/domain"
	"github.com/xenking/kart-store/internal/domain/item"
	"github.com/xenking/kart-store/pkg/telemetry"
)

// Retry defaults for optimistic cart saves.
const (
	DefaultMaxAttempts   = 3
	DefaultRetryInterval = 5 * time.Millisecond
)

// DefaultMaxQuantity bounds the entries a single add may append. Each unit is
// stored as its own entry.
const DefaultMaxQuantity = 1000

// Service is the cart engine. Mutations for a single user are serialized by a
// per-user lock and persisted with a version check, so concurrent requests
// for the same user never lose updates.
type Service struct {
	users UserDirectory
	items item.Repository
	carts Repository
	locks *locker.Locker

	maxAttempts   uint
	retryInterval time.Duration
	maxQuantity   int

	tracer    trace.Tracer
	mutations metric.Int64Counter
	conflicts metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithRetry bounds how many times a conflicting save is retried.
func WithRetry(maxAttempts uint, interval time.Duration) Option {
	return func(s *Service) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		if interval > 0 {
			s.retryInterval = interval
		}
	}
}

// WithMaxQuantity overrides DefaultMaxQuantity.
func WithMaxQuantity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxQuantity = n
		}
	}
}

// WithTelemetry instruments the service with the given providers.
func WithTelemetry(p telemetry.Providers) Option {
	return func(s *Service) {
		s.instrument(p)
	}
}

// NewService creates a cart Service.
func NewService(users UserDirectory, items item.Repository, carts Repository, opts ...Option) *Service {
	s := &Service{
		users:         users,
		items:         items,
		carts:         carts,
		locks:         locker.New(),
		maxAttempts:   DefaultMaxAttempts,
		retryInterval: DefaultRetryInterval,
		maxQuantity:   DefaultMaxQuantity,
	}
	s.instrument(telemetry.Noop())
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) instrument(p telemetry.Providers) {
	s.tracer = p.Tracer.Tracer(telemetry.Scope + "/cart")
	meter := p.Meter.Meter(telemetry.Scope + "/cart")
	s.mutations = telemetry.Counter(meter, "kart.cart.mutations", "Committed cart mutations")
	s.conflicts = telemetry.Counter(meter, "kart.cart.conflicts", "Cart saves rejected by a version check")
}

// AddToCart appends quantity entries of the item to the user's cart and
// returns the updated cart. Quantities above the configured maximum are
// rejected before any lookup.
func (s *Service) AddToCart(ctx context.Context, username string, itemID int64, quantity int) (*Cart, error) {
	ctx, span := s.tracer.Start(ctx, "cart.AddToCart", trace.WithAttributes(
		attribute.Int64("item.id", itemID),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	if quantity > s.maxQuantity {
		err := &InvalidQuantityError{Quantity: quantity, Max: s.maxQuantity}
		span.RecordError(err)
		span.SetStatus(codes.Error, "add to cart")
		return nil, err
	}

	c, err := s.change(ctx, username, itemID, quantity, "add to cart", func(c *Cart, it item.Item) error {
		return c.Add(it, quantity)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "add to cart")
		return nil, err
	}
	return c, nil
}

// RemoveFromCart drops up to quantity entries of the item from the user's
// cart, most recently added first, and returns the updated cart.
func (s *Service) RemoveFromCart(ctx context.Context, username string, itemID int64, quantity int) (*Cart, error) {
	ctx, span := s.tracer.Start(ctx, "cart.RemoveFromCart", trace.WithAttributes(
		attribute.Int64("item.id", itemID),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	c, err := s.change(ctx, username, itemID, quantity, "remove from cart", func(c *Cart, it item.Item) error {
		_, err := c.Remove(it.ID, quantity)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "remove from cart")
		return nil, err
	}
	return c, nil
}

// GetCart returns the user's current cart, creating an empty one if needed.
func (s *Service) GetCart(ctx context.Context, username string) (*Cart, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, domain.Wrap(err, "find user")
	}

	var out *Cart
	if err := s.View(ctx, u.ID, func(c *Cart) error {
		out = c
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// View runs fn with the user's cart while holding the user's lock, so no
// mutation from this process interleaves with fn. The cart passed to fn is a
// private copy.
func (s *Service) View(ctx context.Context, userID int64, fn func(c *Cart) error) error {
	unlock := s.lock(userID)
	defer unlock()

	c, err := s.load(ctx, userID)
	if err != nil {
		return domain.Wrap(err, "load cart")
	}
	return fn(c)
}

// CreateCart ensures the user has a cart and returns its identifier.
func (s *Service) CreateCart(ctx context.Context, userID int64) (int64, error) {
	c, err := s.carts.Create(ctx, userID)
	if err != nil {
		return 0, domain.Wrap(err, "create cart")
	}
	return c.ID, nil
}

func (s *Service) change(
	ctx context.Context,
	username string,
	itemID int64,
	quantity int,
	op string,
	apply func(c *Cart, it item.Item) error,
) (*Cart, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{Quantity: quantity}
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, domain.Wrap(err, "find user")
	}
	it, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, domain.Wrap(err, "get item")
	}

	c, err := s.mutate(ctx, u.ID, func(c *Cart) error {
		return apply(c, *it)
	})
	if err != nil {
		return nil, domain.Wrap(err, op)
	}

	s.mutations.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	zctx.From(ctx).Debug("Cart updated",
		zap.String("op", op),
		zap.Int64("user_id", u.ID),
		zap.Int64("item_id", itemID),
		zap.Int("quantity", quantity),
		zap.Int("entries", len(c.Items)),
		zap.Stringer("total", c.Total),
	)
	return c, nil
}

// mutate applies fn to a freshly loaded cart and saves it. A version
// conflict reloads and reapplies fn, up to maxAttempts in total.
func (s *Service) mutate(ctx context.Context, userID int64, fn func(c *Cart) error) (*Cart, error) {
	unlock := s.lock(userID)
	defer unlock()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval
	b.MaxInterval = 20 * s.retryInterval

	lg := zctx.From(ctx)
	attempt := 0
	c, err := backoff.Retry(ctx, func() (*Cart, error) {
		attempt++
		c, err := s.load(ctx, userID)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		if err := fn(c); err != nil {
			return nil, backoff.Permanent(err)
		}
		if err := s.carts.Save(ctx, c); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				s.conflicts.Add(ctx, 1)
				lg.Warn("Cart version conflict",
					zap.Int64("user_id", userID),
					zap.Int("attempt", attempt),
				)
				return nil, err
			}
			return nil, backoff.Permanent(err)
		}
		return c, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(s.maxAttempts))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		if errors.Is(err, domain.ErrConflict) {
			return nil, &domain.PersistenceError{
				Op:  "save cart after " + strconv.Itoa(attempt) + " attempts",
				Err: err,
			}
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) load(ctx context.Context, userID int64) (*Cart, error) {
	c, err := s.carts.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, domain.ErrNotFound):
		return s.carts.Create(ctx, userID)
	default:
		return nil, err
	}
}

func (s *Service) lock(userID int64) func() {
	key := strconv.FormatInt(userID, 10)
	s.locks.Lock(key)
	return func() { _ = s.locks.Unlock(key) }
}
