package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Gitttomo/AntiTextNext-sub000/api/routes"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/items"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/messages"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/notifications"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/ratings"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/reservation"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/transactions"
	"github.com/Gitttomo/AntiTextNext-sub000/internal/users"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/config"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/db"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/env"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/logger"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/metrics"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/migrate"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/outbox"
	"github.com/Gitttomo/AntiTextNext-sub000/pkg/redis"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

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
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	negotiationMetrics := metrics.NewNegotiationMetrics(registry)

	gormDB := dbClient.DB()
	txRunner := gormTxRunner{db: gormDB}
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	reservationSvc, err := reservation.NewService(reservation.NewRepository(gormDB), cfg.Reservation, logg, negotiationMetrics)
	if err != nil {
		fatal(logg, "failed to create reservation service", err)
	}
	itemSvc, err := items.NewService(items.NewRepository(gormDB), reservationSvc, logg)
	if err != nil {
		fatal(logg, "failed to create items service", err)
	}
	messageSvc, err := messages.NewService(txRunner, messages.NewRepository(gormDB), outboxSvc, logg)
	if err != nil {
		fatal(logg, "failed to create messages service", err)
	}
	transactionSvc, err := transactions.NewService(txRunner, transactions.NewRepository(gormDB), reservationSvc, messageSvc, outboxSvc, logg, negotiationMetrics)
	if err != nil {
		fatal(logg, "failed to create transactions service", err)
	}
	ratingSvc, err := ratings.NewService(txRunner, ratings.NewRepository(gormDB), transactionSvc, outboxSvc, redisClient, logg, negotiationMetrics)
	if err != nil {
		fatal(logg, "failed to create ratings service", err)
	}
	userSvc, err := users.NewService(users.NewRepository(gormDB), ratingSvc, logg)
	if err != nil {
		fatal(logg, "failed to create users service", err)
	}
	notificationSvc, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "failed to create notifications service", err)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, registry, routes.Services{
			Items:         itemSvc,
			Reservations:  reservationSvc,
			Transactions:  transactionSvc,
			Ratings:       ratingSvc,
			Messages:      messageSvc,
			Users:         userSvc,
			Notifications: notificationSvc,
		}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}
