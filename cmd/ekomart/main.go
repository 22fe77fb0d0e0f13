package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ekomart/ekomart-admin/internal/adjustments"
	"github.com/ekomart/ekomart-admin/internal/app"
	"github.com/ekomart/ekomart-admin/internal/auth"
	"github.com/ekomart/ekomart-admin/internal/masterdata/products"
	"github.com/ekomart/ekomart-admin/internal/masterdata/warehouses"
	"github.com/ekomart/ekomart-admin/internal/observability"
	"github.com/ekomart/ekomart-admin/internal/platform/cache"
	"github.com/ekomart/ekomart-admin/internal/platform/db"
	"github.com/ekomart/ekomart-admin/internal/rbac"
	"github.com/ekomart/ekomart-admin/internal/shared"
	"github.com/ekomart/ekomart-admin/internal/stock"
	"github.com/ekomart/ekomart-admin/internal/users"
	"github.com/ekomart/ekomart-admin/jobs"
)

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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "ekomart_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)

	rbacService := rbac.NewService(dbpool)
	rbacMiddleware := rbac.Middleware{Source: rbacService, Logger: logger}

	metrics := observability.NewMetrics()

	warehouseRepo := warehouses.NewRepository(dbpool)
	warehouseService := warehouses.NewService(warehouseRepo)
	warehouseHandler := warehouses.NewHandler(logger, warehouseService, rbacMiddleware)

	productRepo := products.NewRepository(dbpool)
	productService := products.NewService(productRepo)
	productHandler := products.NewHandler(logger, productService, rbacMiddleware)

	stockRepo := stock.NewPostgresRepository(dbpool)
	stockService := stock.NewService(stockRepo)
	stockHandler := stock.NewHandler(logger, stockService, rbacMiddleware)

	adjustmentRepo := adjustments.NewRepository(dbpool)
	adjustmentService := adjustments.NewService(adjustmentRepo, warehouseService, productService, approvalRecorder, auditLogger, redisClient, cfg.AdjustmentStatsTTL)
	adjustmentHandler := adjustments.NewHandler(logger, adjustmentService, rbacMiddleware, metrics)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		AuthHandler:       authHandler,
		AdjustmentHandler: adjustmentHandler,
		WarehouseHandler:  warehouseHandler,
		ProductHandler:    productHandler,
		StockHandler:      stockHandler,
		UsersHandler:      usersHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
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
