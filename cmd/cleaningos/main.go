package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cleaningos/internal/amqp"
	"cleaningos/internal/cache"
	"cleaningos/internal/cli"
	"cleaningos/internal/core"
	apphttp "cleaningos/internal/http"
	"cleaningos/internal/ledger"
	applog "cleaningos/internal/log"
	"cleaningos/internal/pricing"
	"cleaningos/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.OpenBackend(context.Background(), logger, cfg, cfg.DataBackend)
	defer store.Close()

	catalog, err := pricing.LoadCatalog(cfg.PricingFile)
	if err != nil {
		logger.Error("Failed to load price tables", "error", err, "file", cfg.PricingFile)
		os.Exit(1)
	}

	// Publishing is optional; without a broker the mirror simply falls behind
	// until its startup reconcile.
	var publisher services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(applog.ComponentAMQP).Slog())
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		publisher = amqpClient
	} else {
		logger.Info("AMQP_URL not set, ledger events will not be published")
	}

	rowCache := cache.NewLRUCache[[]core.Row](len(core.Tables()), cfg.LedgerCacheTTL)
	reader := ledger.NewReader(store.Store, rowCache, logger.WithComponent(applog.ComponentCache).Slog())
	recorder := services.NewRecorder(store.Store, reader, publisher, logger.WithComponent(applog.ComponentRecorder).Slog())
	reports := services.NewReportService(reader, logger.WithComponent(applog.ComponentReports).Slog())

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Writer:         recorder,
		Reports:        reports,
		Catalog:        catalog,
		PricingVersion: cfg.PricingVersion,
		Backend:        cfg.DataBackend,
		Logger:         logger,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		os.Exit(1)
	}

	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog())
	cacheManager.Register(rowCache)
	cacheManager.Register(srv.PendingWrites())
	cacheManager.StartCleanup(10 * time.Minute)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close failed", "error", err)
			}
		}
	})

	logger.Info("Starting cleaningos server",
		"port", cfg.Port,
		applog.FieldBackend, cfg.DataBackend,
		"pricing_version", cfg.PricingVersion,
		applog.FieldOperation, applog.OpStartup)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
