package item

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-store/internal/domain"
)

func TestSum(t *testing.T) {
	widget := Item{ID: 1, Name: "Round Widget", Price: decimal.RequireFromString("2.99")}
	square := Item{ID: 2, Name: "Square Widget", Price: decimal.RequireFromString("1.99")}

	assert.True(t, decimal.Zero.Equal(Sum(nil)))
	assert.True(t, decimal.RequireFromString("7.97").Equal(Sum([]Item{widget, square, widget})))

	// 0.1 * 3 must not drift the way float64 would.
	dime := Item{ID: 3, Name: "Dime", Price: decimal.RequireFromString("0.10")}
	assert.Equal(t, "0.3", Sum([]Item{dime, dime, dime}).String())
}

func TestClone(t *testing.T) {
	src := []Item{{ID: 1, Name: "a", Price: decimal.NewFromInt(1)}}
	dst := Clone(src)
	dst[0].Name = "changed"

	assert.Equal(t, "a", src[0].Name)
	assert.NotNil(t, Clone(nil))
	assert.Empty(t, Clone(nil))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr bool
	}{
		{name: "valid", item: Item{Name: "Widget", Price: decimal.RequireFromString("1.99")}},
		{name: "free item allowed", item: Item{Name: "Sticker", Price: decimal.Zero}},
		{name: "empty name", item: Item{Price: decimal.NewFromInt(1)}, wantErr: true},
		{name: "negative price", item: Item{Name: "Refund", Price: decimal.NewFromInt(-1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestErrNotFound(t *testing.T) {
	assert.ErrorIs(t, ErrNotFound, domain.ErrNotFound)
	assert.Equal(t, "item not found", ErrNotFound.Error())
}
