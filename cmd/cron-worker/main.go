package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/librarium/librarium-backend/internal/catalog"
	"github.com/librarium/librarium-backend/internal/cron"
	"github.com/librarium/librarium-backend/internal/loans"
	"github.com/librarium/librarium-backend/internal/notifications"
	"github.com/librarium/librarium-backend/internal/reservations"
	"github.com/librarium/librarium-backend/internal/settings"
	"github.com/librarium/librarium-backend/pkg/config"
	"github.com/librarium/librarium-backend/pkg/db"
	"github.com/librarium/librarium-backend/pkg/logger"
	"github.com/librarium/librarium-backend/pkg/metrics"
	"github.com/librarium/librarium-backend/pkg/migrate"
	"github.com/librarium/librarium-backend/pkg/redis"
)

const lockKeyFormat = "librarium:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})
	ctx := context.Background()

	fatal := func(msg string, err error) {
		logg.Error(ctx, msg, err)
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config", err)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fatal("failed to bootstrap database", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		fatal("failed to run dev migrations", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		fatal("failed to bootstrap redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		fatal("failed to wire cron jobs", err)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		fatal("failed to create cron lock", err)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		fatal("failed to create cron service", err)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithField(runCtx, "env", cfg.App.Env)
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "cron worker shutting down gracefully")
}

// buildRegistry wires the three scheduled jobs. Each job gets only the
// slice of the domain it needs, not the whole service graph.
func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	gdb := dbClient.DB()

	notificationsRepo := notifications.NewRepository(gdb)
	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repo:   notificationsRepo,
		Logger: logg,
	})
	if err != nil {
		return nil, err
	}

	settingsStore, err := settings.NewStore(settings.StoreParams{
		Repo:   settings.NewRepository(gdb),
		Logger: logg,
	})
	if err != nil {
		return nil, err
	}

	reservationsService, err := reservations.NewService(reservations.ServiceParams{
		DB:       dbClient,
		Repo:     reservations.NewRepository(gdb),
		Books:    catalog.NewRepository(gdb),
		Settings: settingsStore,
		Notifier: notificationsService,
		Library:  cfg.Library,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	expiryJob, err := cron.NewReservationExpiryJob(cron.ReservationExpiryJobParams{
		Logger:       logg,
		Reservations: reservationsService,
	})
	if err != nil {
		return nil, err
	}

	dueWarningJob, err := cron.NewDueWarningJob(cron.DueWarningJobParams{
		Logger:   logg,
		Loans:    loans.NewRepository(gdb),
		Notifier: notificationsService,
	})
	if err != nil {
		return nil, err
	}

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notificationsRepo,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(expiryJob, dueWarningJob, cleanupJob), nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
