package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kitchenledger/kitchenledger/internal/app"
	"github.com/kitchenledger/kitchenledger/internal/fct/budget"
	"github.com/kitchenledger/kitchenledger/internal/fct/cash"
	"github.com/kitchenledger/kitchenledger/internal/fct/events"
	"github.com/kitchenledger/kitchenledger/internal/fct/ledger"
	"github.com/kitchenledger/kitchenledger/internal/fct/masterdata"
	"github.com/kitchenledger/kitchenledger/internal/fct/periods"
	"github.com/kitchenledger/kitchenledger/internal/fct/plans"
	"github.com/kitchenledger/kitchenledger/internal/fct/tax"
	"github.com/kitchenledger/kitchenledger/internal/fct/vouchers"
	"github.com/kitchenledger/kitchenledger/internal/observability"
	"github.com/kitchenledger/kitchenledger/internal/platform/cache"
	"github.com/kitchenledger/kitchenledger/internal/platform/db"
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
		// Reports degrade to direct queries without Redis.
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	chart := vouchers.DefaultChart()

	masterRepo := masterdata.NewRepository(dbpool)
	masterService := masterdata.NewService(masterRepo)

	voucherRepo := vouchers.NewRepository(dbpool)
	periodRepo := periods.NewRepository(dbpool)
	periodService := periods.NewService(periodRepo, voucherRepo)

	budgetRepo := budget.NewRepository(dbpool)
	budgetService := budget.NewService(budgetRepo)

	voucherService := vouchers.NewService(voucherRepo, periodService, budgetService, chart, logger)
	voucherService.WithMetrics(metrics)

	eventRepo := events.NewRepository(dbpool)
	eventService := events.NewService(eventRepo, voucherService, logger)
	eventService.WithMetrics(metrics)

	reportCache := ledger.NewCache(redisClient, cfg.ReportCacheTTL)
	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, reportCache, masterService, ledger.DefaultConvention())
	voucherService.WithCacheBumper(reportCache)

	cashRepo := cash.NewRepository(dbpool)
	cashService := cash.NewService(cashRepo, voucherService, budgetService, chart, logger)

	taxRepo := tax.NewRepository(dbpool)
	taxService := tax.NewService(taxRepo, ledgerService, logger)

	planRepo := plans.NewRepository(dbpool)
	planService := plans.NewService(planRepo, ledgerService, cashService)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		EventsHandler:     events.NewHandler(logger, eventService),
		VouchersHandler:   vouchers.NewHandler(logger, voucherService),
		LedgerHandler:     ledger.NewHandler(logger, ledgerService),
		PeriodsHandler:    periods.NewHandler(logger, periodService),
		BudgetHandler:     budget.NewHandler(logger, budgetService),
		CashHandler:       cash.NewHandler(logger, cashService),
		TaxHandler:        tax.NewHandler(logger, taxService),
		PlansHandler:      plans.NewHandler(logger, planService),
		MasterDataHandler: masterdata.NewHandler(logger, masterService),
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
