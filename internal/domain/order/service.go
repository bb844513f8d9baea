package order

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-store/internal/domain"
	"github.com/xenking/kart-store/internal/domain/cart"
	"github.com/xenking/kart-store/pkg/telemetry"
)

// Service encapsulates order submission and history.
type Service struct {
	users     cart.UserDirectory
	carts     CartViewer
	orders    Repository
	publisher Publisher
	now       func() time.Time

	tracer    trace.Tracer
	submitted metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets where submitted orders are announced.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides time.Now for order timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTelemetry instruments the service with the given providers.
func WithTelemetry(p telemetry.Providers) Option {
	return func(s *Service) { s.instrument(p) }
}

// NewService creates an order Service with the required domain dependencies.
func NewService(users cart.UserDirectory, carts CartViewer, orders Repository, opts ...Option) *Service {
	s := &Service{
		users:  users,
		carts:  carts,
		orders: orders,
		now:    time.Now,
	}
	s.instrument(telemetry.Noop())
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) instrument(p telemetry.Providers) {
	s.tracer = p.Tracer.Tracer(telemetry.Scope + "/order")
	s.submitted = telemetry.Counter(
		p.Meter.Meter(telemetry.Scope+"/order"),
		"kart.orders.submitted", "Orders created from carts",
	)
}

// Submit snapshots the user's current cart into a new order and persists it.
// An empty cart yields a zero-total order. The cart itself is left as is.
func (s *Service) Submit(ctx context.Context, username string) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Submit")
	defer span.End()

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, domain.Wrap(err, "find user")
	}

	var o *Order
	if err := s.carts.View(ctx, u.ID, func(c *cart.Cart) error {
		o = FromCart(c, s.now())
		return s.orders.Create(ctx, o)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit order")
		return nil, domain.Wrap(err, "submit order")
	}

	span.SetAttributes(
		attribute.Int64("order.id", o.ID),
		attribute.Int("order.entries", len(o.Items)),
	)
	s.submitted.Add(ctx, 1)

	lg := zctx.From(ctx)
	lg.Info("Order submitted",
		zap.Int64("order_id", o.ID),
		zap.Int64("user_id", u.ID),
		zap.Int("entries", len(o.Items)),
		zap.Stringer("total", o.Total),
	)

	if s.publisher != nil {
		if err := s.publisher.OrderSubmitted(ctx, o); err != nil {
			lg.Warn("Publish order event", zap.Int64("order_id", o.ID), zap.Error(err))
		}
	}
	return o, nil
}

// History returns every order the user submitted, oldest first.
func (s *Service) History(ctx context.Context, username string) ([]Order, error) {
	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, domain.Wrap(err, "find user")
	}

	orders, err := s.orders.ListByUserID(ctx, u.ID)
	if err != nil {
		return nil, domain.Wrap(err, "list orders")
	}
	if orders == nil {
		orders = []Order{}
	}
	return orders, nil
}
