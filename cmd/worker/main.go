package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cedarline-erp/cedarline-erp/internal/app"
	"github.com/cedarline-erp/cedarline-erp/internal/commission"
	jobmetrics "github.com/cedarline-erp/cedarline-erp/internal/jobs"
	"github.com/cedarline-erp/cedarline-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	commissionRepo := commission.NewRepository(pool)
	resolver := commission.NewResolver(commissionRepo, redisClient)
	calculator := commission.NewCalculator(commissionRepo, resolver, commission.NewRedisLocker(redisClient), logger)
	metrics := jobmetrics.NewMetrics(nil)

	// The monthly cron enqueues an empty payload, which the handler resolves
	// to the previous calendar month at execution time.
	monthlyTask, err := jobs.NewCommissionCalculateTask(jobs.CommissionCalculatePayload{})
	if err != nil {
		logger.Error("build commission task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCommissionCalculate, Handler: jobs.NewCommissionCalculateHandler(calculator, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.CommissionCron, Task: monthlyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
