package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/odyssey-rbac/internal/app"
	"github.com/odyssey-erp/odyssey-rbac/internal/auth"
	"github.com/odyssey-erp/odyssey-rbac/internal/observability"
	"github.com/odyssey-erp/odyssey-rbac/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-rbac/internal/platform/db"
	"github.com/odyssey-erp/odyssey-rbac/internal/rbac"
	"github.com/odyssey-erp/odyssey-rbac/internal/records"
	"github.com/odyssey-erp/odyssey-rbac/internal/roles"
	"github.com/odyssey-erp/odyssey-rbac/internal/users"
	"github.com/odyssey-erp/odyssey-rbac/jobs"
)

const shutdownGrace = 10 * time.Second

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("rbacd", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{})
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, pool, logger); err != nil {
			return err
		}
	}

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("job inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	authService := auth.NewService(
		auth.NewRepository(pool),
		auth.BcryptHasher{},
		auth.NewJWTIssuer(cfg.JWTSecret, app.SessionLifetime),
		jobClient,
		auth.ServiceConfig{InviteBaseURL: cfg.InviteBaseURL, InvitationWindow: app.InvitationWindow},
		logger,
	).WithDeliveryObserver(metrics)

	root, err := authService.Bootstrap(ctx, cfg.BootstrapAdminPassword)
	if err != nil {
		return err
	}
	logger.Info("root identity resolved", slog.Int64("user_id", root.UserID()))

	rbacService := rbac.NewService(rbac.NewRepository(pool), logger, metrics)
	gateway := records.NewGateway(records.NewPGStore(pool), rbacService, rbacService, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		Metrics:        metrics,
		Bearer:         auth.RequireBearer(authService),
		RBACMiddleware: rbac.Middleware{Service: rbacService, Logger: logger},
		AuthHandler:    auth.NewHandler(logger, authService),
		RBACHandler:    rbac.NewHandler(logger, rbacService),
		RolesHandler:   roles.NewHandler(logger, roles.NewService(roles.NewRepository(pool))),
		UsersHandler:   users.NewHandler(logger, users.NewService(users.NewRepository(pool), authService, root, logger)),
		RecordsHandler: records.NewHandler(logger, gateway, rbacService),
		JobHandler:     jobs.NewHandler(inspector, logger),
		HealthChecks: map[string]app.HealthCheck{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return cache.Ping(ctx, redisClient) },
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		logger.Info("shutting down http server")
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
