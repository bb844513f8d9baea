package item

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-store/internal/domain"
)

// ErrNotFound is returned when a requested item does not exist.
var ErrNotFound = fmt.Errorf("item %w", domain.ErrNotFound)

// Item represents a catalog entry available for purchase.
type Item struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
}

// Validate checks the catalog invariants: a non-empty name and a
// non-negative price.
func (i Item) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("item name is empty: %w", domain.ErrInvalidArgument)
	}
	if i.Price.IsNegative() {
		return fmt.Errorf("item %q has negative price %s: %w", i.Name, i.Price, domain.ErrInvalidArgument)
	}
	return nil
}

// Sum returns the total price of the given entries.
func Sum(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price)
	}
	return total
}

// Clone returns an independent copy of the entry slice. A nil input yields an
// empty, non-nil slice so snapshots always encode as [].
func Clone(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Repository defines read operations for the item catalog.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
	GetByID(ctx context.Context, id int64) (*Item, error)
	// FindByName returns items whose name equals name, ignoring case.
	FindByName(ctx context.Context, name string) ([]Item, error)
}

// Writer upserts catalog items. Only administrative tooling writes the catalog.
type Writer interface {
	Upsert(ctx context.Context, it *Item) error
}
