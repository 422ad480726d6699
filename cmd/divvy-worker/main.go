// Command divvy-worker exports recorded expenses to Google Sheets. It
// consumes AMQP export messages for low latency and periodically scans the
// pending export queue so nothing is lost when the broker is down.
package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"divvy/internal/amqp"
	"divvy/internal/cli"
	applog "divvy/internal/log"
	"divvy/internal/sheets"
	sheetsgoogle "divvy/internal/sheets/google"
	sheetsmemory "divvy/internal/sheets/memory"
	"divvy/internal/worker"
)

func main() {
	logger := cli.SetupLogger(applog.ComponentWorker)
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var exporter sheets.ExpenseExporter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := sheetsgoogle.New(ctx, cfg)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			return
		}
		exporter = client
		logger.Info("Exporting to Google Sheets", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		// Local development without credentials.
		exporter = sheetsmemory.New()
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, using in-memory exporter")
	}

	w := worker.NewExportWorker(repo, exporter, cfg.ExportBatchSize)

	if err := w.StartupCheck(ctx); err != nil {
		logger.Error("Startup export check failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, relying on periodic scans only", "error", err)
	} else {
		defer amqpClient.Close()
		g.Go(func() error {
			return amqpClient.ConsumeExpenseExport(ctx, func(msg *amqp.ExpenseExportMessage) error {
				return w.HandleExportMessage(ctx, msg)
			})
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ProcessPending(ctx); err != nil {
					logger.Error("Pending export scan failed", "error", err)
				}
			}
		}
	})

	logger.Info("Export worker running",
		"batch_size", cfg.ExportBatchSize,
		"interval", cfg.ExportInterval.String())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker exited with error", "error", err)
	}
	logger.Info("Shutdown complete")
}
