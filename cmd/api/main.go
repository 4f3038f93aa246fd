package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/techstore-checkout/api/controllers"
	"github.com/angelmondragon/techstore-checkout/api/routes"
	"github.com/angelmondragon/techstore-checkout/internal/auth"
	"github.com/angelmondragon/techstore-checkout/internal/cart"
	"github.com/angelmondragon/techstore-checkout/internal/checkout"
	"github.com/angelmondragon/techstore-checkout/internal/orders"
	"github.com/angelmondragon/techstore-checkout/internal/persistence"
	"github.com/angelmondragon/techstore-checkout/internal/pricing"
	"github.com/angelmondragon/techstore-checkout/internal/shipping"
	"github.com/angelmondragon/techstore-checkout/pkg/config"
	"github.com/angelmondragon/techstore-checkout/pkg/db"
	"github.com/angelmondragon/techstore-checkout/pkg/logger"
	"github.com/angelmondragon/techstore-checkout/pkg/metrics"
	"github.com/angelmondragon/techstore-checkout/pkg/redis"
	"github.com/angelmondragon/techstore-checkout/pkg/storefront"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "checkout"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "checkout",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "checkout api stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	slot, readiness, closeStorage, err := openSlot(ctx, cfg, logg)
	if err != nil {
		return err
	}
	defer closeStorage()

	cartStore, err := cart.Open(ctx, slot,
		cart.WithLogger(logg),
		cart.WithMetrics(checkoutMetrics),
		cart.WithWriteTimeout(cfg.Storage.FlushTimeout),
	)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Storage.FlushTimeout)
		defer cancel()
		if err := cartStore.Close(flushCtx); err != nil {
			logg.Error(flushCtx, "failed to flush cart on shutdown", err)
		}
	}()

	api, err := storefront.NewClient(cfg.Storefront.BaseURL, storefront.WithTimeout(cfg.Storefront.Timeout))
	if err != nil {
		return err
	}
	quotes, err := shipping.NewClient(api, shipping.WithLogger(logg), shipping.WithMetrics(checkoutMetrics))
	if err != nil {
		return err
	}
	engine, err := pricing.NewEngine(cfg.Pricing)
	if err != nil {
		return err
	}
	submitter, err := orders.NewSubmitter(api, cartStore, orders.WithLogger(logg), orders.WithMetrics(checkoutMetrics))
	if err != nil {
		return err
	}

	sessions, err := checkout.NewRegistry(checkout.Dependencies{
		Cart:    cartStore,
		Pricing: engine,
		Quotes:  quotes,
		Orders:  submitter,
		Logger:  logg,
		Metrics: checkoutMetrics,
	},
		checkout.WithSessionTTL(cfg.Checkout.SessionTTL),
		checkout.WithQuoteDebounce(cfg.Checkout.QuoteDebounce),
	)
	if err != nil {
		return err
	}
	defer sessions.Close()
	unwatch := sessions.Watch(cartStore)
	defer unwatch()
	go sweepSessions(ctx, sessions, cfg.Checkout.SessionTTL)

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Dependencies{
			Config:    cfg,
			Logger:    logg,
			Cart:      cartStore,
			Checkout:  sessions,
			Stores:    quotes,
			Resolver:  auth.NewResolver(),
			Readiness: readiness,
			Gatherer:  registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logCtx := logg.WithFields(ctx, map[string]any{
		"env":            cfg.App.Env,
		"addr":           addr,
		"storage_driver": cfg.Storage.Driver,
		"storefront":     cfg.Storefront.BaseURL,
	})
	logg.Info(logCtx, "starting checkout api")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down checkout api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openSlot builds the cart snapshot slot for the configured storage driver.
func openSlot(ctx context.Context, cfg *config.Config, logg *logger.Logger) (persistence.Slot, map[string]controllers.Pinger, func(), error) {
	noop := func() {}
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		logg.Warn(ctx, "memory storage selected, the cart will not survive restarts")
		return persistence.NewMemorySlot(), nil, noop, nil

	case config.StorageRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nil, noop, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}
		slot, err := persistence.NewRedisSlot(client, cfg.Storage.SlotKey)
		if err != nil {
			closeFn()
			return nil, nil, noop, err
		}
		return slot, map[string]controllers.Pinger{"redis": client}, closeFn, nil

	default:
		client, err := db.New(ctx, cfg.Storage, logg)
		if err != nil {
			return nil, nil, noop, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				logg.Error(context.Background(), "error closing database", err)
			}
		}
		slot, err := persistence.NewGormSlot(client.DB(), cfg.Storage.SlotKey)
		if err != nil {
			closeFn()
			return nil, nil, noop, err
		}
		return slot, map[string]controllers.Pinger{"database": client}, closeFn, nil
	}
}

func sweepSessions(ctx context.Context, sessions *checkout.Registry, ttl time.Duration) {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep()
		}
	}
}
