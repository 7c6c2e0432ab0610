package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/kabidey/privity-sub003/api/routes"
	"github.com/kabidey/privity-sub003/internal/booking"
	"github.com/kabidey/privity-sub003/internal/directory"
	"github.com/kabidey/privity-sub003/internal/inventory"
	"github.com/kabidey/privity-sub003/internal/notifications"
	"github.com/kabidey/privity-sub003/internal/payments"
	"github.com/kabidey/privity-sub003/internal/reconcile"
	"github.com/kabidey/privity-sub003/internal/revshare"
	"github.com/kabidey/privity-sub003/pkg/config"
	"github.com/kabidey/privity-sub003/pkg/db"
	"github.com/kabidey/privity-sub003/pkg/logger"
	"github.com/kabidey/privity-sub003/pkg/migrate"
	"github.com/kabidey/privity-sub003/pkg/outbox"
	"github.com/kabidey/privity-sub003/pkg/redis"
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

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	bookingRepo := booking.NewRepository(dbClient.DB())
	stockRepo := inventory.NewRepository(dbClient.DB())
	trancheRepo := payments.NewRepository(dbClient.DB())
	directoryService, err := directory.NewService(directory.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create directory service", err)
		os.Exit(1)
	}

	resolver, err := revshare.NewResolver(
		directoryService,
		decimal.NewFromFloat(cfg.Booking.RpCeilingPercent),
		decimal.NewFromFloat(cfg.Booking.BpDefaultPercent),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create revenue share resolver", err)
		os.Exit(1)
	}

	bookingService, err := booking.NewService(bookingRepo, stockRepo, dbClient, outboxService, directoryService, resolver)
	if err != nil {
		logg.Error(context.Background(), "failed to create booking service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(trancheRepo, bookingRepo, dbClient, outboxService, cfg.Booking.MaxTranches)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(stockRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	reconcileService, err := reconcile.NewService(bookingRepo, dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
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
			cfg,
			logg,
			dbClient,
			redisClient,
			bookingService,
			paymentsService,
			inventoryService,
			reconcileService,
			notificationsService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
