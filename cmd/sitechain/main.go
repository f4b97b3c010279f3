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

	"github.com/sitechain-erp/sitechain-erp/internal/app"
	"github.com/sitechain-erp/sitechain-erp/internal/cashbooks"
	"github.com/sitechain-erp/sitechain-erp/internal/indents"
	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/billingaddresses"
	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/items"
	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/paymentterms"
	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/sites"
	"github.com/sitechain-erp/sitechain-erp/internal/masterdata/vendors"
	"github.com/sitechain-erp/sitechain-erp/internal/observability"
	platformcache "github.com/sitechain-erp/sitechain-erp/internal/platform/cache"
	"github.com/sitechain-erp/sitechain-erp/internal/platform/db"
	"github.com/sitechain-erp/sitechain-erp/internal/purchasing"
	"github.com/sitechain-erp/sitechain-erp/internal/shared"
	"github.com/sitechain-erp/sitechain-erp/internal/stock"
	"github.com/sitechain-erp/sitechain-erp/internal/workorders"
	"github.com/sitechain-erp/sitechain-erp/jobs"
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

	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	siteService := sites.NewService(sites.NewRepository(dbpool))
	siteHandler := sites.NewHandler(logger, siteService)

	vendorService := vendors.NewService(vendors.NewRepository(dbpool))
	vendorHandler := vendors.NewHandler(logger, vendorService)

	itemService := items.NewService(items.NewRepository(dbpool))
	itemHandler := items.NewHandler(logger, itemService)

	termService := paymentterms.NewService(paymentterms.NewRepository(dbpool))
	termHandler := paymentterms.NewHandler(logger, termService)

	billingService := billingaddresses.NewService(billingaddresses.NewRepository(dbpool))
	billingHandler := billingaddresses.NewHandler(logger, billingService)

	indentRepo := indents.NewRepository(dbpool)
	indentService := indents.NewService(indentRepo, approvalRecorder)
	indentHandler := indents.NewHandler(logger, indentService)

	purchasingRepo := purchasing.NewRepository(dbpool)
	purchasingService := purchasing.NewService(purchasingRepo, indentService, vendorService, itemService, approvalRecorder, auditLogger)
	purchasingHandler := purchasing.NewHandler(logger, purchasingService)

	workOrderRepo := workorders.NewRepository(dbpool)
	workOrderService := workorders.NewService(workOrderRepo, indentService, vendorService.ForWorkOrders(), itemService, approvalRecorder, auditLogger)
	workOrderHandler := workorders.NewHandler(logger, workOrderService)

	stockCache := stock.NewCache(redisClient, cfg.StockCacheTTL)
	stockService := stock.NewService(stock.NewRepository(dbpool), stockCache)
	stockHandler := stock.NewHandler(logger, stockService)

	cashbookService := cashbooks.NewService(cashbooks.NewRepository(dbpool), idempotencyStore)
	cashbookHandler := cashbooks.NewHandler(logger, cashbookService)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:                logger,
		Config:                cfg,
		IndentHandler:         indentHandler,
		PurchasingHandler:     purchasingHandler,
		WorkOrderHandler:      workOrderHandler,
		SiteHandler:           siteHandler,
		VendorHandler:         vendorHandler,
		ItemHandler:           itemHandler,
		PaymentTermHandler:    termHandler,
		BillingAddressHandler: billingHandler,
		StockHandler:          stockHandler,
		CashbookHandler:       cashbookHandler,
		JobHandler:            jobHandler,
		Metrics:               metrics,
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
