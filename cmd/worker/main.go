package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/sitechain-erp/sitechain-erp/internal/app"
	jobmetrics "github.com/sitechain-erp/sitechain-erp/internal/jobs"
	platformcache "github.com/sitechain-erp/sitechain-erp/internal/platform/cache"
	"github.com/sitechain-erp/sitechain-erp/internal/platform/db"
	"github.com/sitechain-erp/sitechain-erp/internal/stock"
	"github.com/sitechain-erp/sitechain-erp/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := platformcache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	stockCache := stock.NewCache(redisClient, cfg.StockCacheTTL)
	stockService := stock.NewService(stock.NewRepository(pool), stockCache)

	metrics := jobmetrics.NewMetrics(nil)

	refreshTask, err := jobs.NewStockRefreshTask("nightly")
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStockWarmup, Handler: jobs.NewStockWarmupHandler(stockService, metrics)},
			{Type: jobs.TaskStockRefresh, Handler: jobs.NewStockRefreshHandler(stockService, metrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.StockRefreshCron, Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
