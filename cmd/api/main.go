package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/carewell/foundation-backend/api/routes"
	"github.com/carewell/foundation-backend/internal/bloodrequests"
	"github.com/carewell/foundation-backend/internal/inventory"
	"github.com/carewell/foundation-backend/internal/orders"
	"github.com/carewell/foundation-backend/internal/payments"
	"github.com/carewell/foundation-backend/pkg/config"
	"github.com/carewell/foundation-backend/pkg/db"
	"github.com/carewell/foundation-backend/pkg/logger"
	"github.com/carewell/foundation-backend/pkg/metrics"
	"github.com/carewell/foundation-backend/pkg/migrate"
	"github.com/carewell/foundation-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	ledgerMetrics := metrics.NewLedgerMetrics(registry)

	inventoryRepo := inventory.NewRepository(dbClient.DB())
	inventoryService, err := inventory.NewService(inventoryRepo, ledgerMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(
		orders.NewRepository(dbClient.DB()),
		inventoryRepo,
		inventoryService,
		payments.NewMockProcessor(),
		dbClient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	bloodRequestService, err := bloodrequests.NewService(
		bloodrequests.NewRepository(dbClient.DB()),
		inventoryRepo,
		inventoryService,
		dbClient,
		cfg.BloodBank.BankID(),
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create blood request service", err)
		os.Exit(1)
	}

	port := cfg.App.Port
	if override := os.Getenv("PORT"); override != "" {
		port = override
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg, logg, dbClient, redisClient, registry,
			inventoryService, orderService, bloodRequestService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
