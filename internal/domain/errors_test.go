package domain

import (
	"fmt"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	itemNotFound := fmt.Errorf("item %w", ErrNotFound)
	badQty := fmt.Errorf("quantity %w", ErrInvalidArgument)

	tests := []struct {
		name        string
		err         error
		wantIs      error
		wantPersist bool
	}{
		{name: "not found keeps identity", err: itemNotFound, wantIs: ErrNotFound},
		{name: "invalid argument keeps identity", err: badQty, wantIs: ErrInvalidArgument},
		{name: "driver error becomes persistence", err: errors.New("connection reset"), wantIs: ErrPersistence, wantPersist: true},
		{name: "conflict becomes persistence", err: ErrConflict, wantIs: ErrConflict, wantPersist: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Wrap(tt.err, "load cart")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantIs)
			assert.Contains(t, err.Error(), "load cart")
			assert.Equal(t, tt.wantPersist, errors.Is(err, ErrPersistence))
		})
	}
}

func TestWrap_Nil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "anything"))
}

func TestWrap_PersistenceNotDoubleWrapped(t *testing.T) {
	inner := &PersistenceError{Op: "save cart", Err: errors.New("timeout")}
	err := Wrap(inner, "add to cart")

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "save cart", pe.Op)
}
