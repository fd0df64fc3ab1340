package main

import (
	"context"
	"errors"
	"os"
	"time"

	"cleaningos/internal/amqp"
	"cleaningos/internal/backend"
	"cleaningos/internal/cache"
	"cleaningos/internal/cli"
	applog "cleaningos/internal/log"
	"cleaningos/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting ledger-mirror", applog.FieldOperation, applog.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" || cfg.MirrorBackend == "" {
		logger.Error("ledger-mirror needs AMQP_URL and MIRROR_BACKEND")
		os.Exit(1)
	}

	mirror := cli.OpenBackend(context.Background(), logger, cfg, cfg.MirrorBackend)
	defer mirror.Close()
	mw := worker.NewMirrorWorker(mirror.Store, logger.WithComponent(applog.ComponentWorker).Slog())

	// Copy whatever the mirror missed while it was down. A memory source has
	// nothing that outlives the server process, so there is nothing to read.
	if cfg.DataBackend != string(backend.MemoryBackend) && cfg.DataBackend != cfg.MirrorBackend {
		source := cli.OpenBackend(context.Background(), logger, cfg, cfg.DataBackend)
		copied, err := mw.Reconcile(context.Background(), source.Store)
		if err != nil {
			logger.Error("Startup reconcile failed", "error", err, applog.FieldOperation, applog.OpMirror)
		} else {
			logger.Info("Startup reconcile finished", "rows", copied, applog.FieldOperation, applog.OpMirror)
		}
		if err := source.Close(); err != nil {
			logger.Warn("Closing source backend failed", "error", err)
		}
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(applog.ComponentAMQP).Slog())
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog())
	cacheManager.Register(mw.Progress())
	cacheManager.StartCleanup(time.Hour)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		cacheManager.Stop()
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close failed", "error", err)
		}
	})

	logger.Info("Consuming ledger events", "queue", cfg.AMQPQueue, applog.FieldBackend, cfg.MirrorBackend)
	if err := client.ConsumeLedgerEvents(ctx, mw.HandleLedgerEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Ledger event consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("ledger-mirror stopped")
}
