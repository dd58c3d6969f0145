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
	"go.uber.org/multierr"

	"github.com/angelmondragon/tavola-backend/api/routes"
	"github.com/angelmondragon/tavola-backend/internal/businesses"
	"github.com/angelmondragon/tavola-backend/internal/catalog"
	"github.com/angelmondragon/tavola-backend/internal/pricechanges"
	"github.com/angelmondragon/tavola-backend/internal/pricing"
	"github.com/angelmondragon/tavola-backend/pkg/config"
	"github.com/angelmondragon/tavola-backend/pkg/db"
	"github.com/angelmondragon/tavola-backend/pkg/instance"
	"github.com/angelmondragon/tavola-backend/pkg/logger"
	"github.com/angelmondragon/tavola-backend/pkg/metrics"
	"github.com/angelmondragon/tavola-backend/pkg/migrate"
	"github.com/angelmondragon/tavola-backend/pkg/outbox"
	"github.com/angelmondragon/tavola-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	closers := []func() error{dbClient.Close}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		closers = append(closers, redisClient.Close)
	} else {
		logg.Warn(ctx, "redis not configured; idempotency, rate limiting and pricing locks disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	catalogRepo := catalog.NewRepository(dbClient.DB(), cfg.Pricing.WriteBatchSize)

	var locks pricechanges.LockProvider
	if cfg.Pricing.LockEnabled {
		if redisClient == nil {
			logg.Error(ctx, "pricing lock requires redis", errors.New("TAVOLA_REDIS_URL or TAVOLA_REDIS_ADDR must be set"))
			os.Exit(1)
		}
		locks = pricechanges.NewRedisLocks(redisClient, cfg.Pricing.LockTTL)
	}

	priceChangeService, err := pricechanges.NewService(pricechanges.ServiceParams{
		Repo:    pricechanges.NewRepository(dbClient.DB()),
		Catalog: catalogRepo,
		Tx:      dbClient,
		Outbox:  outbox.NewService(outbox.NewRepository(), logg),
		Locks:   locks,
		Metrics: metrics.NewPricingMetrics(registry),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create price change service", err)
		os.Exit(1)
	}

	quoteService, err := pricing.NewService(catalogRepo)
	if err != nil {
		logg.Error(ctx, "failed to create quote service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     instance.GetID(),
		"pricing_lock": cfg.Pricing.LockEnabled,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			businesses.NewRepository(dbClient.DB()),
			priceChangeService,
			quoteService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	shutdownErr := server.Shutdown(shutdownCtx)
	for _, closeFn := range closers {
		shutdownErr = multierr.Append(shutdownErr, closeFn())
	}
	if shutdownErr != nil {
		logg.Error(serverCtx, "error during shutdown", shutdownErr)
		exitCode = 1
	}
	os.Exit(exitCode)
}
