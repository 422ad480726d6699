// Command divvy runs the expense-splitting HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"divvy/internal/backend"
	"divvy/internal/cli"
	divvyhttp "divvy/internal/http"
	applog "divvy/internal/log"
	"divvy/internal/services"
)

func main() {
	logger := cli.SetupLogger(applog.ComponentApp)
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err)
		os.Exit(1)
	}

	// A typed nil AMQP client must not become a non-nil interface.
	var publisher services.ExportPublisher
	if result.AMQP != nil {
		publisher = result.AMQP
	}

	ledgerSvc := services.NewLedgerService(result.Store, publisher)
	balanceSvc := services.NewBalanceService(result.Store)

	addr := ":" + cfg.Port
	srv := divvyhttp.NewServer(addr, result.Store, ledgerSvc, balanceSvc)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", "error", err)
	}
	if err := result.Cleanup(); err != nil {
		logger.Error("Backend cleanup failed", "error", err)
	}
	logger.Info("Shutdown complete")
}
