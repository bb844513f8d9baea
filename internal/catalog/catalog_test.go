package catalog

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-store/internal/domain"
	"github.com/xenking/kart-store/internal/domain/item"
	"github.com/xenking/kart-store/internal/storage/memory"
)

const sample = `[
	{"id": 7, "name": "Hex Widget", "description": "six sides", "price": "4.50"},
	{"id": 8, "name": "Oval Widget", "description": "", "price": 0.99}
]`

type failingWriter struct{}

func (failingWriter) Upsert(context.Context, *item.Item) error {
	return errors.New("connection refused")
}

func TestDefault(t *testing.T) {
	items, err := Default()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Round Widget", items[0].Name)
	assert.Equal(t, "2.99", items[0].Price.String())
	assert.Equal(t, "Square Widget", items[1].Name)
	assert.Equal(t, "1.99", items[1].Price.String())
}

func TestRead(t *testing.T) {
	var gz bytes.Buffer
	w := pgzip.NewWriter(&gz)
	_, err := w.Write([]byte(sample))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	tests := []struct {
		name    string
		data    []byte
		gzipped bool
	}{
		{"plain", []byte(sample), false},
		{"gzip", gz.Bytes(), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Read(bytes.NewReader(tt.data), tt.gzipped)
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, int64(7), items[0].ID)
			assert.Equal(t, "4.5", items[0].Price.String())
		})
	}
}

func TestRead_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `[{"id": 1,`},
		{"empty name", `[{"id": 1, "name": "", "price": 1}]`},
		{"negative price", `[{"id": 1, "name": "x", "price": -1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.data), false)
			assert.Error(t, err)
		})
	}

	_, err := Read(strings.NewReader(sample), true)
	assert.Error(t, err, "plain JSON is not gzip")

	_, err = Read(strings.NewReader(`[{"id": 1, "name": "", "price": 1}]`), false)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "items.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	items, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = ReadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	items, err := Read(strings.NewReader(sample), false)
	require.NoError(t, err)

	repo := memory.NewItemRepository()
	require.NoError(t, Seed(ctx, repo, items))

	got, err := repo.GetByID(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, "Oval Widget", got.Name)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	assert.Error(t, Seed(ctx, failingWriter{}, items))
}
