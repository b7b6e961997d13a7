package commands

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roruizf/yahoo-finance-stock-db/internal/cache"
	"github.com/roruizf/yahoo-finance-stock-db/internal/database"
	"github.com/roruizf/yahoo-finance-stock-db/internal/events"
	"github.com/roruizf/yahoo-finance-stock-db/internal/provider"
	"github.com/roruizf/yahoo-finance-stock-db/internal/services"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/config"
)

var (
	syncOnce bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full synchronization cycle",
	Long: `Runs one synchronization cycle over every configured series: create
missing tables, compute each series' fetch window, fetch from Yahoo
Finance and merge without duplicate keys.

Fatal (storage-level) failures are retried with the configured attempt
budget and backoff.

Examples:
  # One cycle with the full retry budget
  stockdb sync

  # One cycle, no retries (for cron-driven setups)
  stockdb sync --once`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncOnce, "once", false, "run a single attempt without the retry budget")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	deps, err := buildDeps(cfg, log)
	if err != nil {
		return err
	}
	defer deps.cleanup()

	ctx := context.Background()

	policy := services.RetryPolicy{
		MaxAttempts: cfg.Sync.MaxAttempts,
		Backoff:     cfg.Sync.RetryBackoff,
	}
	if syncOnce {
		policy.MaxAttempts = 1
	}

	result, err := services.RunWithRetry(ctx, policy, log, deps.orchestrator.RunCycle)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	log.WithFields(logrus.Fields{
		"series":   result.Series,
		"synced":   result.Synced,
		"failed":   result.Failed,
		"appended": result.Appended,
	}).Info("Sync finished")

	return nil
}

// appDeps bundles the wired components a command needs. cleanup closes
// every opened connection, last first.
type appDeps struct {
	db           *database.SQLiteClient
	cache        *cache.RedisClient
	orchestrator *services.Orchestrator
	cleanup      func()
}

// buildDeps wires the store, provider, optional cache and event sinks
// into a ready-to-run orchestrator.
func buildDeps(cfg *config.Config, log *logrus.Logger) (*appDeps, error) {
	db, err := database.NewSQLiteClient(&cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	closers := []func(){func() { db.Close() }}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	yahoo := provider.NewYahooClient(&cfg.Provider, log)

	var barCache *cache.RedisClient
	if cfg.Redis.Enabled {
		barCache, err = cache.NewRedisClient(&cfg.Redis, log)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		closers = append(closers, func() { barCache.Close() })
	}

	sink := events.MultiSink{events.NewLogSink(log)}
	if cfg.NATS.Enabled {
		natsSink, err := events.NewNATSSink(&cfg.NATS, log)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		closers = append(closers, natsSink.Close)
		sink = append(sink, natsSink)
	}

	planner := services.NewPlanner(db, log)
	reconciler := services.NewReconciler(db, barCache, log)
	orchestrator := services.NewOrchestrator(db, yahoo, planner, reconciler, sink, &cfg.Sync, log)

	return &appDeps{
		db:           db,
		cache:        barCache,
		orchestrator: orchestrator,
		cleanup:      cleanup,
	}, nil
}
