// Package catalog loads item catalogs from JSON files and stores them.
package catalog

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-store/db"
	"github.com/xenking/kart-store/internal/codec"
	"github.com/xenking/kart-store/internal/domain/item"
)

// seedConcurrency bounds parallel upserts.
const seedConcurrency = 8

// Default returns the embedded default catalog.
func Default() ([]item.Item, error) {
	return Read(bytes.NewReader(db.Items), false)
}

// ReadFile reads a JSON array of items from path. Files ending in .gz are
// decompressed.
func ReadFile(path string) ([]item.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	items, err := Read(f, strings.HasSuffix(path, ".gz"))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return items, nil
}

// Read parses and validates a JSON array of items from r.
func Read(r io.Reader, gzipped bool) ([]item.Item, error) {
	if gzipped {
		gz, err := pgzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "create gzip reader")
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read")
	}
	items, err := codec.UnmarshalItems(data)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, errors.Wrapf(err, "item %d", it.ID)
		}
	}
	return items, nil
}

// Seed upserts items into w concurrently.
func Seed(ctx context.Context, w item.Writer, items []item.Item) error {
	lg := zctx.From(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)
	for _, it := range items {
		g.Go(func() error {
			if err := w.Upsert(ctx, &it); err != nil {
				return errors.Wrapf(err, "upsert item %d", it.ID)
			}
			lg.Debug("Upserted item", zap.Int64("id", it.ID), zap.String("name", it.Name))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	lg.Info("Catalog seeded", zap.Int("count", len(items)))
	return nil
}
