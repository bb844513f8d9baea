package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-store/internal/domain"
	"github.com/xenking/kart-store/internal/domain/item"
	"github.com/xenking/kart-store/internal/domain/user"
)

// ErrNotFound is returned by repositories when a user has no cart yet.
var ErrNotFound = fmt.Errorf("cart %w", domain.ErrNotFound)

// InvalidQuantityError indicates a non-positive quantity in an add or remove,
// or an add above Max.
type InvalidQuantityError struct {
	Quantity int
	Max      int
}

func (e *InvalidQuantityError) Error() string {
	if e.Max > 0 && e.Quantity > e.Max {
		return fmt.Sprintf("quantity must be at most %d, got %d", e.Max, e.Quantity)
	}
	return fmt.Sprintf("quantity must be greater than 0, got %d", e.Quantity)
}

// Is matches domain.ErrInvalidArgument.
func (e *InvalidQuantityError) Is(target error) bool {
	return target == domain.ErrInvalidArgument
}

// Cart is a user's mutable collection of item entries. Each entry is one unit:
// a quantity of three is three identical entries. Total always equals the
// sum of the entries' prices.
type Cart struct {
	ID     int64
	UserID int64
	Items  []item.Item
	Total  decimal.Decimal
	// Version is the optimistic concurrency token checked by Repository.Save.
	Version int64
}

// New returns an empty cart for userID.
func New(userID int64) *Cart {
	return &Cart{
		UserID: userID,
		Items:  []item.Item{},
		Total:  decimal.Zero,
	}
}

// Add appends quantity entries of it and recomputes the total.
func (c *Cart) Add(it item.Item, quantity int) error {
	if quantity <= 0 {
		return &InvalidQuantityError{Quantity: quantity}
	}
	for range quantity {
		c.Items = append(c.Items, it)
	}
	c.recompute()
	return nil
}

// Remove drops up to quantity entries matching itemID, newest first, and
// recomputes the total. Removing more than present removes all matching
// entries. It returns the number of entries removed.
func (c *Cart) Remove(itemID int64, quantity int) (int, error) {
	if quantity <= 0 {
		return 0, &InvalidQuantityError{Quantity: quantity}
	}

	removed := 0
	for i := len(c.Items) - 1; i >= 0 && removed < quantity; i-- {
		if c.Items[i].ID != itemID {
			continue
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		removed++
	}
	c.recompute()
	return removed, nil
}

// Count returns the number of entries for itemID.
func (c *Cart) Count(itemID int64) int {
	n := 0
	for _, it := range c.Items {
		if it.ID == itemID {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe to hand to another goroutine or store.
func (c *Cart) Clone() *Cart {
	out := *c
	out.Items = item.Clone(c.Items)
	return &out
}

func (c *Cart) recompute() {
	c.Total = item.Sum(c.Items)
}

// Repository defines persistence operations for carts.
type Repository interface {
	// Create returns the user's stored cart, creating an empty one first if
	// none exists. It is safe to call concurrently for the same user.
	Create(ctx context.Context, userID int64) (*Cart, error)
	// GetByUserID returns ErrNotFound when the user has no cart.
	GetByUserID(ctx context.Context, userID int64) (*Cart, error)
	// Save persists the full cart if the stored version equals c.Version,
	// then increments c.Version. It returns domain.ErrConflict otherwise.
	Save(ctx context.Context, c *Cart) error
}

// UserDirectory resolves usernames to users.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (*user.User, error)
}
