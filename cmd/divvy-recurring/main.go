// Command divvy-recurring materializes due recurring expense templates into
// regular ledger entries. It runs once at startup and then hourly; the
// dueness checks make repeated runs idempotent within a period.
package main

import (
	"time"

	"divvy/internal/cli"
	applog "divvy/internal/log"
	"divvy/internal/services"
)

func main() {
	logger := cli.SetupLogger(applog.ComponentRecurring)
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	ledgerSvc := services.NewLedgerService(repo, nil)
	processor := services.NewRecurringProcessor(repo, ledgerSvc)

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, func() {
		if err := repo.Close(); err != nil {
			logger.Error("Failed to close repository", "error", err)
		}
	})

	run := func() {
		processed, err := processor.ProcessDue(ctx, time.Now())
		if err != nil {
			logger.Error("Recurring processing failed", "error", err)
			return
		}
		if processed > 0 {
			logger.Info("Materialized recurring expenses", "count", processed)
		}
	}

	run()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				run()
			}
		}
	}()

	logger.Info("Recurring expense processor running")
	cli.WaitForShutdown(ctx, done)
}
