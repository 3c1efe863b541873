package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/shopworks/storefront/internal/api"
	"github.com/shopworks/storefront/internal/auth"
	cartredis "github.com/shopworks/storefront/internal/cart/adapters/redis"
	cartapp "github.com/shopworks/storefront/internal/cart/app"
	"github.com/shopworks/storefront/internal/catalog"
	checkoutredis "github.com/shopworks/storefront/internal/checkout/adapters/redis"
	checkoutapp "github.com/shopworks/storefront/internal/checkout/app"
	checkoutmetrics "github.com/shopworks/storefront/internal/checkout/metrics"
	"github.com/shopworks/storefront/internal/config"
	"github.com/shopworks/storefront/internal/database"
	"github.com/shopworks/storefront/internal/events"
	idempostgres "github.com/shopworks/storefront/internal/idempotency/postgres"
	orderspostgres "github.com/shopworks/storefront/internal/orders/adapters/postgres"
	ordersapp "github.com/shopworks/storefront/internal/orders/app"
	ordersmetrics "github.com/shopworks/storefront/internal/orders/metrics"
	"github.com/shopworks/storefront/internal/payment/httpgw"
	"github.com/shopworks/storefront/internal/telemetry"
)

func main() {
	bootLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(bootLogger)

	if err := run(bootLogger); err != nil {
		bootLogger.Error("storefront api exited", "error", err)
		os.Exit(1)
	}
}

func run(bootLogger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Initialize(ctx, telemetry.Config{
		ServiceName:    cfg.Service.Name,
		ServiceVersion: cfg.Service.Version,
		Environment:    cfg.Service.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTelEndpoint,
		EnableTracing:  cfg.Telemetry.EnableTracing,
		EnableMetrics:  cfg.Telemetry.EnableMetrics,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			bootLogger.Error("telemetry shutdown failed", "error", err)
		}
	}()

	logger := telemetry.NewLogger(telemetry.ParseLevel(cfg.Telemetry.LogLevel))
	slog.SetDefault(logger)

	pool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	if cfg.Database.AutoMigrate {
		logger.Info("running database migrations", "path", cfg.Database.MigrationsPath)
		version, err := database.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsPath)
		if err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database schema ready", "version", version)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close failed", "error", err)
		}
	}()

	meter := otel.Meter("github.com/shopworks/storefront")

	products := catalog.NewPostgresCatalog(pool)
	carts := cartapp.NewService(cartredis.NewStore(redisClient), products, logger)

	dbMetrics, err := database.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create database metrics: %w", err)
	}

	om, err := ordersmetrics.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create order metrics: %w", err)
	}
	orders := ordersapp.NewService(
		orderspostgres.NewRepository(pool, dbMetrics),
		products,
		events.NewNoopPublisher(),
		logger,
		om,
	)

	cm, err := checkoutmetrics.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create checkout metrics: %w", err)
	}
	gateway := httpgw.NewClient(httpgw.Config{
		BaseURL:    cfg.Gateway.BaseURL,
		MerchantID: cfg.Gateway.MerchantID,
		APIKey:     cfg.Gateway.APIKey,
		Timeout:    cfg.Gateway.Timeout,
	})
	checkout := checkoutapp.NewService(
		checkoutredis.NewSessionStore(redisClient),
		carts,
		gateway,
		orders,
		logger,
		cm,
	)

	httpMetrics, err := api.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("create http metrics: %w", err)
	}

	router := api.NewRouter(api.Dependencies{
		Carts:       carts,
		Checkout:    checkout,
		Orders:      orders,
		Idempotency: idempostgres.NewStore(pool),
		Verifier:    auth.NewVerifier(cfg.Auth.JWTSecret),
		Logger:      logger,
		Metrics:     httpMetrics,
		MetricsPath: cfg.HTTP.MetricsPath,
		CheckReady: func(ctx context.Context) error {
			if err := database.CheckHealth(ctx, pool); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "port", cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownGrace)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	logger.Info("http server stopped")
	return nil
}
