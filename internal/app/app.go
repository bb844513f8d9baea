package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-store/internal/catalog"
	"github.com/xenking/kart-store/internal/domain/auth"
	"github.com/xenking/kart-store/internal/domain/cart"
	"github.com/xenking/kart-store/internal/domain/item"
	"github.com/xenking/kart-store/internal/domain/order"
	"github.com/xenking/kart-store/internal/domain/user"
	"github.com/xenking/kart-store/internal/events"
	"github.com/xenking/kart-store/internal/handler"
	"github.com/xenking/kart-store/pkg/health"
	"github.com/xenking/kart-store/pkg/httpmiddleware"
	"github.com/xenking/kart-store/pkg/telemetry"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	return run(ctx, lg, telemetry.Providers{
		Tracer: m.TracerProvider(),
		Meter:  m.MeterProvider(),
	}, cfg)
}

func run(ctx context.Context, lg *zap.Logger, tp telemetry.Providers, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("storage", cfg.Storage),
		zap.String("cart_store", cfg.CartStore),
	)
	ctx = zctx.Base(ctx, lg)

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Storage backends.
	st, err := openStores(ctx, lg, cfg, healthSvc)
	if err != nil {
		return errors.Wrap(err, "open storage")
	}
	defer st.Close()

	if err := loadCatalog(ctx, cfg, st); err != nil {
		return errors.Wrap(err, "load catalog")
	}
	pepper := []byte(cfg.APIKeyPepper)
	if err := registerAPIKeys(ctx, st.keys, pepper, cfg.APIKeys); err != nil {
		return err
	}

	users := user.NewFilteredRepository(st.users, cfg.UserFilter.Capacity, cfg.UserFilter.FalsePositiveRate)
	n, err := users.Warm(ctx)
	if err != nil {
		return errors.Wrap(err, "warm user filter")
	}
	lg.Info("User filter warmed", zap.Int("usernames", n))

	// Order events.
	var publisher order.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
		}, lg)
		if err != nil {
			return errors.Wrap(err, "create kafka publisher")
		}
		defer func() {
			if err := kp.Close(); err != nil {
				lg.Error("Close kafka publisher", zap.Error(err))
			}
		}()
		publisher = kp
	}

	// Domain services.
	cartService := cart.NewService(users, st.items, st.carts,
		cart.WithRetry(cfg.Cart.MaxAttempts, cfg.Cart.RetryInterval),
		cart.WithMaxQuantity(cfg.Cart.MaxQuantity),
		cart.WithTelemetry(tp),
	)
	userService := user.NewService(users, cartService)
	orderService := order.NewService(users, cartService, st.orders,
		order.WithPublisher(publisher),
		order.WithTelemetry(tp),
	)

	// HTTP handlers.
	h := handler.NewHandler(st.items, userService, cartService, orderService)
	requireKey := handler.RequireAPIKey(auth.NewAuthenticator(st.keys, pepper))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", healthSvc.ReadyEndpoint)
	h.Register(mux, requireKey)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(
			otelhttp.NewHandler(mux, "kart-api",
				otelhttp.WithTracerProvider(tp.Tracer),
				otelhttp.WithMeterProvider(tp.Meter),
			),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				RPS:   cfg.RateLimit.RPS,
				Burst: cfg.RateLimit.Burst,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gCtx.Done()
		healthSvc.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})

	return g.Wait()
}

// loadCatalog seeds the item store. Memory storage falls back to the
// built-in catalog when no file is configured.
func loadCatalog(ctx context.Context, cfg *Config, st *stores) error {
	var (
		items []item.Item
		err   error
	)
	switch {
	case cfg.Catalog != "":
		items, err = catalog.ReadFile(cfg.Catalog)
	case cfg.Storage == StorageMemory:
		items, err = catalog.Default()
	default:
		return nil
	}
	if err != nil {
		return err
	}
	return catalog.Seed(ctx, st.items, items)
}
