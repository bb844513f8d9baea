package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-store/internal/catalog"
	"github.com/xenking/kart-store/internal/domain/auth"
	"github.com/xenking/kart-store/internal/domain/item"
	"github.com/xenking/kart-store/internal/storage/postgres"
)

type options struct {
	databaseURL string
	itemsFile   string
	apiKey      string
	pepper      string
}

func main() {
	var opts options

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.itemsFile, "items-file", "", "path to items JSON or .json.gz file; empty seeds the built-in catalog")
	flag.StringVar(&opts.apiKey, "api-key", "", "API key to seed (or KART_SEED_API_KEY env)")
	flag.StringVar(&opts.pepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or KART_API_KEY_PEPPER env)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	if opts.databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if opts.apiKey == "" {
		opts.apiKey = os.Getenv("KART_SEED_API_KEY")
	}
	if opts.apiKey == "" {
		lg.Fatal("API key is required: set --api-key or KART_SEED_API_KEY")
	}
	if opts.pepper == "" {
		opts.pepper = os.Getenv("KART_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, opts); err != nil {
		lg.Error("Seed failed", zap.Error(err))
		os.Exit(1)
	}

	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, opts options) error {
	lg := zctx.From(ctx)
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedItems(ctx, postgres.NewItemRepository(pool), opts.itemsFile); err != nil {
		return errors.Wrap(err, "seed items")
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), opts.apiKey, opts.pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedItems(ctx context.Context, w item.Writer, path string) error {
	var (
		items []item.Item
		err   error
	)
	if path == "" {
		zctx.From(ctx).Info("Using built-in catalog")
		items, err = catalog.Default()
	} else {
		zctx.From(ctx).Info("Reading items file", zap.String("path", path))
		items, err = catalog.ReadFile(path)
	}
	if err != nil {
		return err
	}
	return catalog.Seed(ctx, w, items)
}

func seedAPIKey(ctx context.Context, w auth.Writer, apiKey, pepper string) error {
	info := &auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(pepper), apiKey),
		Name:    "Default key",
		Scopes:  []string{"cart", "order"},
	}
	if err := w.Upsert(ctx, info); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	zctx.From(ctx).Info("Upserted API key", zap.String("id", info.ID), zap.String("name", info.Name))
	return nil
}
