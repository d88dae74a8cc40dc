package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gostackhq/reckoner-backend/api/middleware"
	"github.com/gostackhq/reckoner-backend/api/routes"
	"github.com/gostackhq/reckoner-backend/internal/catalog"
	"github.com/gostackhq/reckoner-backend/internal/channels"
	"github.com/gostackhq/reckoner-backend/internal/offers"
	"github.com/gostackhq/reckoner-backend/internal/prices"
	"github.com/gostackhq/reckoner-backend/internal/reckoner"
	"github.com/gostackhq/reckoner-backend/internal/syncsink"
	"github.com/gostackhq/reckoner-backend/pkg/config"
	"github.com/gostackhq/reckoner-backend/pkg/db"
	"github.com/gostackhq/reckoner-backend/pkg/keylock"
	"github.com/gostackhq/reckoner-backend/pkg/logger"
	"github.com/gostackhq/reckoner-backend/pkg/metrics"
	"github.com/gostackhq/reckoner-backend/pkg/migrate"
	"github.com/gostackhq/reckoner-backend/pkg/outbox"
	"github.com/gostackhq/reckoner-backend/pkg/redis"
)

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
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	// Redis backs the per-key write locks; a local mutex locker keeps a
	// single-instance deployment working without it.
	var locker keylock.Locker
	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Warn(context.Background(), "redis unavailable, falling back to in-process locks")
		redisClient = nil
		locker = keylock.NewLocalLocker(cfg.Lock.MaxWait)
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		locker, err = keylock.NewRedisLocker(redisClient, cfg.Lock)
		if err != nil {
			logg.Error(context.Background(), "failed to create redis locker", err)
			os.Exit(1)
		}
	}

	gdb := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gdb), cfg.PubSub.PricingEventsTopic, logg)

	sinkService, err := syncsink.NewService(syncsink.NewRepository(gdb), outboxService, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sync sink", err)
		os.Exit(1)
	}

	priceRepo := prices.NewRepository(gdb)
	priceService, err := prices.NewService(priceRepo, locker, sinkService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create price service", err)
		os.Exit(1)
	}

	offerRepo := offers.NewRepository(gdb)
	offerService, err := offers.NewService(offerRepo, locker, cfg.Offers)
	if err != nil {
		logg.Error(context.Background(), "failed to create offer service", err)
		os.Exit(1)
	}

	channelService, err := channels.NewService(channels.NewRepository(gdb))
	if err != nil {
		logg.Error(context.Background(), "failed to create channel service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(gdb))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	tagRepo := reckoner.NewTagRepository(gdb)
	reckonerService, err := reckoner.NewService(
		catalogService, channelService, priceRepo, offerRepo, tagRepo, locker, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create resolution service", err)
		os.Exit(1)
	}
	reckonerService = reckoner.NewInstrumentedService(
		reckonerService, metrics.NewResolverMetrics(prometheus.DefaultRegisterer))

	exporter, err := reckoner.NewExporter(reckonerService, cfg.Export.MaxRows)
	if err != nil {
		logg.Error(context.Background(), "failed to create exporter", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})
	logg.Info(ctx, "starting api server")

	var redisPinger interface{ Ping(context.Context) error }
	var rateStore middleware.RateLimiterStore
	if redisClient != nil {
		redisPinger = redisClient
		rateStore = redisClient
	}
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisPinger,
			priceService, offerService, channelService, reckonerService, exporter, tagRepo, rateStore),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}
