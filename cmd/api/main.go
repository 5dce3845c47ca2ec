package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/librarium/librarium-backend/api/routes"
	"github.com/librarium/librarium-backend/internal/audit"
	"github.com/librarium/librarium-backend/internal/auth"
	"github.com/librarium/librarium-backend/internal/catalog"
	"github.com/librarium/librarium-backend/internal/dashboard"
	"github.com/librarium/librarium-backend/internal/extensions"
	"github.com/librarium/librarium-backend/internal/fines"
	"github.com/librarium/librarium-backend/internal/loans"
	"github.com/librarium/librarium-backend/internal/notifications"
	"github.com/librarium/librarium-backend/internal/reservations"
	"github.com/librarium/librarium-backend/internal/reviews"
	"github.com/librarium/librarium-backend/internal/settings"
	"github.com/librarium/librarium-backend/internal/suggestions"
	"github.com/librarium/librarium-backend/internal/users"
	"github.com/librarium/librarium-backend/pkg/auth/session"
	"github.com/librarium/librarium-backend/pkg/config"
	"github.com/librarium/librarium-backend/pkg/db"
	"github.com/librarium/librarium-backend/pkg/logger"
	"github.com/librarium/librarium-backend/pkg/migrate"
	"github.com/librarium/librarium-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
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
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		fatal("failed to create session manager", err)
	}

	svcs, err := buildServices(cfg, logg, dbClient, sessionManager)
	if err != nil {
		fatal("failed to wire services", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, svcs),
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(runCtx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logg.Error(runCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(runCtx, "shutdown signal received, draining requests")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(runCtx, "graceful shutdown failed", err)
		}
	}

	logg.Info(runCtx, "api server stopped")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessionManager *session.Manager) (routes.Services, error) {
	gdb := dbClient.DB()

	auditService, err := audit.NewService(audit.ServiceParams{
		Repo:   audit.NewRepository(gdb),
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repo:   notifications.NewRepository(gdb),
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	settingsStore, err := settings.NewStore(settings.StoreParams{
		Repo:   settings.NewRepository(gdb),
		Logger: logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	usersRepo := users.NewRepository(gdb)
	catalogRepo := catalog.NewRepository(gdb)
	loansRepo := loans.NewRepository(gdb)
	finesRepo := fines.NewRepository(gdb)
	reservationsRepo := reservations.NewRepository(gdb)

	authService, err := auth.NewService(auth.ServiceParams{
		DB:       dbClient,
		Users:    usersRepo,
		Session:  sessionManager,
		Auditor:  auditService,
		JWT:      cfg.JWT,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		return routes.Services{}, err
	}

	loansService, err := loans.NewService(loans.ServiceParams{
		DB:       dbClient,
		Repo:     loansRepo,
		Books:    catalogRepo,
		Fines:    finesRepo,
		Settings: settingsStore,
		Notifier: notificationsService,
		Library:  cfg.Library,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	reservationsService, err := reservations.NewService(reservations.ServiceParams{
		DB:       dbClient,
		Repo:     reservationsRepo,
		Books:    catalogRepo,
		Settings: settingsStore,
		Notifier: notificationsService,
		Library:  cfg.Library,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	extensionsService, err := extensions.NewService(extensions.ServiceParams{
		DB:       dbClient,
		Repo:     extensions.NewRepository(gdb),
		Loans:    loansRepo,
		Fines:    finesRepo,
		Settings: settingsStore,
		Notifier: notificationsService,
		Library:  cfg.Library,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	finesService, err := fines.NewService(fines.ServiceParams{
		DB:       dbClient,
		Repo:     finesRepo,
		Notifier: notificationsService,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	suggestionsService, err := suggestions.NewService(suggestions.ServiceParams{
		Repo:     suggestions.NewRepository(gdb),
		Notifier: notificationsService,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	reviewsService, err := reviews.NewService(reviews.ServiceParams{
		Repo:     reviews.NewRepository(gdb),
		Books:    catalogRepo,
		Notifier: notificationsService,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	usersService, err := users.NewService(users.ServiceParams{
		Repo:     usersRepo,
		Auditor:  auditService,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	dashboardService, err := dashboard.NewService(dashboard.ServiceParams{
		Books:         catalogRepo,
		Loans:         loansRepo,
		Fines:         finesRepo,
		Users:         usersRepo,
		Reservations:  reservationsRepo,
		Notifications: notifications.NewRepository(gdb),
		Logger:        logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:          authService,
		Catalog:       catalogService,
		Loans:         loansService,
		Reservations:  reservationsService,
		Extensions:    extensionsService,
		Fines:         finesService,
		Suggestions:   suggestionsService,
		Reviews:       reviewsService,
		Notifications: notificationsService,
		Users:         usersService,
		Audit:         auditService,
		Dashboard:     dashboardService,
		Settings:      settingsStore,
	}, nil
}
