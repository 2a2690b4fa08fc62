package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/Gitttomo/AntiTextNext-sub000/internal/consumers/events"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/notifications"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/reservation"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/config"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/migrate"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/outbox"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "event-relay"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "event-relay",
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
			logg.Error(context.Background(), "error closing redis client", err)
		}
	}()

	notificationSvc, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to build notification service", err)
		os.Exit(1)
	}
	consumer, err := events.NewConsumer(notificationSvc, redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to build event consumer", err)
		os.Exit(1)
	}
	sweeper, err := reservation.NewService(reservation.NewRepository(dbClient.DB()), cfg.Reservation, logg, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to build reservation service", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Consumer:   consumer,
		Sweeper:    sweeper,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create event relay", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "event-relay",
	})
	logg.Info(ctx, "starting event relay")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "event relay stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "event relay shutting down gracefully")
}
