package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-store/internal/domain/cart"
	"github.com/xenking/kart-store/internal/domain/item"
)

// Order is an immutable snapshot of a user's cart taken at submission.
type Order struct {
	ID        int64
	UserID    int64
	Items     []item.Item
	Total     decimal.Decimal
	CreatedAt time.Time
}

// FromCart copies the cart's entries and total into a new, unsaved order.
// Later changes to c do not affect the result.
func FromCart(c *cart.Cart, now time.Time) *Order {
	return &Order{
		UserID:    c.UserID,
		Items:     item.Clone(c.Items),
		Total:     c.Total,
		CreatedAt: now.UTC(),
	}
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create assigns ID, which increases with every created order.
	Create(ctx context.Context, o *Order) error
	// ListByUserID returns the user's orders in creation order.
	ListByUserID(ctx context.Context, userID int64) ([]Order, error)
}

// Publisher announces submitted orders to downstream consumers.
type Publisher interface {
	OrderSubmitted(ctx context.Context, o *Order) error
}

// CartViewer gives read access to a user's cart while excluding concurrent
// mutations of it.
type CartViewer interface {
	View(ctx context.Context, userID int64, fn func(c *cart.Cart) error) error
}
