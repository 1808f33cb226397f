package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fruivita/sci/internal/app"
	"github.com/fruivita/sci/internal/auth"
	"github.com/fruivita/sci/internal/delegation"
	"github.com/fruivita/sci/internal/navigation"
	"github.com/fruivita/sci/internal/observability"
	"github.com/fruivita/sci/internal/platform/cache"
	"github.com/fruivita/sci/internal/platform/db"
	"github.com/fruivita/sci/internal/rbac"
	"github.com/fruivita/sci/internal/report"
	"github.com/fruivita/sci/jobs"
)

func main() {
	issueFor := flag.Int64("issue-token", 0, "print a bearer token for the given user id and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of tokens printed by -issue-token")
	flag.Parse()

	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	tokens, err := auth.NewTokens(cfg.JWTSecret)
	if err != nil {
		logger.Error("init tokens", slog.Any("error", err))
		os.Exit(1)
	}
	if *issueFor > 0 {
		token, err := tokens.Issue(*issueFor, *tokenTTL)
		if err != nil {
			logger.Error("issue token", slog.Any("error", err))
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.New(ctx, cfg.PGDSN, "sci-api")
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	store := cache.NewRedisStore(redisClient, "sci")

	rbacRepo := rbac.NewRepository(dbpool)
	checker := rbac.NewChecker(rbac.CheckerConfig{
		Store:      store,
		Lookup:     rbacRepo,
		TTL:        cfg.PermissionCacheTTL,
		Superadmin: cfg.SuperadminUsername,
		Logger:     logger,
	})
	rbacService := rbac.NewService(rbacRepo, checker)
	rbacMiddleware := rbac.Middleware{Checker: checker, Users: rbacService, Logger: logger}
	rolesHandler := rbac.NewHandler(rbacService, logger)

	delegationService := delegation.NewService(delegation.NewRepository(dbpool), checker, logger)
	delegationHandler := delegation.NewHandler(delegationService, logger)

	navigationService := navigation.NewService(navigation.Config{
		Repo:   navigation.NewRepository(dbpool),
		Store:  store,
		TTL:    cfg.NavigationCacheTTL,
		Logger: logger,
	})
	navigationHandler := navigation.NewHandler(navigationService, logger)

	reportService := report.NewService(report.Config{
		Repo:   report.NewRepository(dbpool),
		Authz:  checker,
		Store:  store,
		TTL:    cfg.ReportCacheTTL,
		Logger: logger,
	})
	reportHandler := report.NewHandler(reportService, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	importsHandler := jobs.NewImportsHandler(jobClient, checker, logger)
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Tokens:            tokens,
		Metrics:           metrics,
		RBACMiddleware:    rbacMiddleware,
		RolesHandler:      rolesHandler,
		DelegationHandler: delegationHandler,
		ReportHandler:     reportHandler,
		NavigationHandler: navigationHandler,
		ImportsHandler:    importsHandler,
		JobHandler:        jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
