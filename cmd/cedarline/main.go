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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cedarline-erp/cedarline-erp/internal/app"
	"github.com/cedarline-erp/cedarline-erp/internal/billing/invoices"
	"github.com/cedarline-erp/cedarline-erp/internal/commission"
	"github.com/cedarline-erp/cedarline-erp/internal/observability"
	"github.com/cedarline-erp/cedarline-erp/internal/rbac"
	"github.com/cedarline-erp/cedarline-erp/internal/sales/customers"
	"github.com/cedarline-erp/cedarline-erp/internal/sales/orders"
	"github.com/cedarline-erp/cedarline-erp/internal/shared"
	"github.com/cedarline-erp/cedarline-erp/jobs"
	"github.com/cedarline-erp/cedarline-erp/report"
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

	dbpool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)

	rbacService := rbac.NewService(dbpool)
	rbacMiddleware := rbac.Middleware{Policy: rbacService, Logger: logger}

	invoiceRepo := invoices.NewRepository(dbpool)
	orderRepo := orders.NewRepository(dbpool)
	evaluator := orders.NewReadinessEvaluator(orderRepo)

	invoiceService := invoices.NewService(invoiceRepo, orderRepo, auditLogger)
	promotionTrigger := invoices.NewTrigger(invoiceService, evaluator, logger)

	orderService := orders.NewService(orderRepo, promotionTrigger, auditLogger)
	ordersHandler := orders.NewHandler(logger, orderService, evaluator, rbacMiddleware)
	invoicesHandler := invoices.NewHandler(logger, invoiceService, rbacMiddleware)

	customerRepo := customers.NewRepository(dbpool)
	customerService := customers.NewService(customerRepo, auditLogger)
	customersHandler := customers.NewHandler(logger, customerService, rbacMiddleware)

	commissionRepo := commission.NewRepository(dbpool)
	rateResolver := commission.NewResolver(commissionRepo, redisClient)
	calculator := commission.NewCalculator(commissionRepo, rateResolver, commission.NewRedisLocker(redisClient), logger)
	payer := commission.NewPayer(commissionRepo, auditLogger)
	idemStore := shared.NewIdempotencyStore(dbpool)
	commissionHandler := commission.NewHandler(logger, commissionRepo, rateResolver, calculator, payer, idemStore, rbacMiddleware)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, invoiceService, logger, rbacMiddleware)

	metrics := observability.NewMetrics()

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
		OrdersHandler:     ordersHandler,
		CustomersHandler:  customersHandler,
		InvoicesHandler:   invoicesHandler,
		CommissionHandler: commissionHandler,
		ReportHandler:     reportHandler,
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
