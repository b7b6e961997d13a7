package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roruizf/yahoo-finance-stock-db/internal/api"
	"github.com/roruizf/yahoo-finance-stock-db/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic sync updater with the HTTP API",
	Long: `Starts the background updater, which runs a sync cycle immediately and
then on every configured interval, and serves the HTTP API for series
listings, stored bars, sync status and force-sync.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	deps, err := buildDeps(cfg, log)
	if err != nil {
		return err
	}
	defer deps.cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updater := services.NewUpdater(deps.orchestrator, cfg.Sync.UpdateInterval, log)
	if err := updater.Start(ctx); err != nil {
		return fmt.Errorf("failed to start updater: %w", err)
	}
	defer updater.Stop()

	server := api.NewServer(cfg, log, deps.db, deps.cache, updater)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.WithField("signal", sig.String()).Info("Shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}
