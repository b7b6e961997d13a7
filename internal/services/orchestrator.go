package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/internal/database"
	"github.com/roruizf/yahoo-finance-stock-db/internal/events"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/config"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// BarProvider is the market-data provider boundary the orchestrator
// fetches through.
type BarProvider interface {
	GetBars(ctx context.Context, symbol string, interval models.Interval, window models.FetchWindow) ([]models.Bar, error)
	HasSymbol(ctx context.Context, symbol string) (bool, error)
}

// Orchestrator runs one full sync cycle: resolve the configured series,
// optionally pre-filter unavailable symbols, ensure tables, then
// plan/fetch/merge every series with bounded concurrency. Failures are
// isolated per series; only a storage-layer failure aborts the cycle.
// Cycles are idempotent at the series level, so re-running at any time is
// safe.
type Orchestrator struct {
	db         *database.SQLiteClient
	provider   BarProvider
	planner    *Planner
	reconciler *Reconciler
	prefilter  *AvailabilityFilter
	sink       events.Sink
	cfg        *config.SyncConfig
	logger     *logrus.Entry
}

// NewOrchestrator creates a new sync orchestrator. The prefilter is only
// applied when enabled in the sync config; sink may be nil.
func NewOrchestrator(
	db *database.SQLiteClient,
	provider BarProvider,
	planner *Planner,
	reconciler *Reconciler,
	sink events.Sink,
	cfg *config.SyncConfig,
	logger *logrus.Logger,
) *Orchestrator {
	if sink == nil {
		sink = events.NopSink{}
	}

	o := &Orchestrator{
		db:         db,
		provider:   provider,
		planner:    planner,
		reconciler: reconciler,
		sink:       sink,
		cfg:        cfg,
		logger:     logger.WithField("component", "orchestrator"),
	}

	if cfg.Prefilter {
		o.prefilter = NewAvailabilityFilter(provider, logger)
	}

	return o
}

// RunCycle executes one synchronization cycle over every configured
// series. The returned error is non-nil only for storage-layer failures;
// per-series provider and schema problems are reported inside the result.
func (o *Orchestrator) RunCycle(ctx context.Context) (*models.CycleResult, error) {
	result := &models.CycleResult{StartedAt: time.Now()}

	groups, err := LoadGroups(o.cfg.SeriesFile)
	if err != nil {
		// Bad series config is non-fatal: the cycle runs over an empty
		// set, matching the missing-file contract.
		o.logger.WithError(err).Warn("Series config unusable, syncing nothing")
	}

	series, invalid := ResolveSeries(groups, o.logger)
	result.Errors = append(result.Errors, invalid...)
	result.Failed += len(invalid)

	if o.prefilter != nil {
		series = o.prefilter.Filter(ctx, series)
	}
	result.Series = len(series)

	if err := o.db.EnsureSyncStatusTable(ctx); err != nil {
		return result, err
	}

	o.sink.CycleStarted(ctx, len(series))

	// Schema pass: create missing tables up front so a sick series never
	// blocks its siblings' workers.
	runnable := make([]models.SeriesKey, 0, len(series))
	for _, key := range series {
		if err := o.db.EnsureSeriesTable(ctx, key); err != nil {
			o.recordFailure(ctx, result, key.TableName(), err)
			var storageErr *models.StorageError
			if errors.As(err, &storageErr) {
				result.FinishedAt = time.Now()
				o.sink.CycleCompleted(ctx, result)
				return result, err
			}
			continue
		}
		runnable = append(runnable, key)
	}

	// Per-series sync with bounded concurrency. Series are independent
	// and the set is deduplicated, so no two workers touch one table.
	sem := make(chan struct{}, o.cfg.MaxConcurrent)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var fatal error

	for _, key := range runnable {
		wg.Add(1)
		go func(key models.SeriesKey) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			appended, err := o.syncSeries(ctx, key)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				o.recordFailure(ctx, result, key.TableName(), err)
				var storageErr *models.StorageError
				if errors.As(err, &storageErr) && fatal == nil {
					fatal = err
				}
				return
			}

			result.Synced++
			result.Appended += appended
			o.sink.SeriesSynced(ctx, key.TableName(), appended)
		}(key)
	}

	wg.Wait()

	sort.Slice(result.Errors, func(i, j int) bool {
		return result.Errors[i].Table < result.Errors[j].Table
	})

	result.FinishedAt = time.Now()
	o.sink.CycleCompleted(ctx, result)

	return result, fatal
}

// syncSeries runs the planner, fetcher and reconciler for one series and
// keeps its sync status row current.
func (o *Orchestrator) syncSeries(ctx context.Context, key models.SeriesKey) (int, error) {
	table := key.TableName()

	if err := o.db.UpdateSyncStatus(ctx, table, models.SyncSyncing, 0, ""); err != nil {
		o.logger.WithError(err).WithField("table", table).Warn("Failed to update sync status")
	}

	window, err := o.planner.Plan(ctx, key)
	if err != nil {
		o.failStatus(ctx, table, err)
		return 0, err
	}

	bars, err := o.provider.GetBars(ctx, key.Symbol, key.Interval, window)
	if err != nil {
		o.failStatus(ctx, table, err)
		return 0, err
	}

	appended, err := o.reconciler.Merge(ctx, key, bars)
	if err != nil {
		o.failStatus(ctx, table, err)
		return 0, err
	}

	count, err := o.db.CountBars(ctx, key)
	if err != nil {
		count = 0
	}
	if err := o.db.UpdateSyncStatus(ctx, table, models.SyncCompleted, count, ""); err != nil {
		o.logger.WithError(err).WithField("table", table).Warn("Failed to update sync status")
	}

	return appended, nil
}

func (o *Orchestrator) failStatus(ctx context.Context, table string, cause error) {
	if err := o.db.UpdateSyncStatus(ctx, table, models.SyncFailed, 0, cause.Error()); err != nil {
		o.logger.WithError(err).WithField("table", table).Warn("Failed to update sync status")
	}
}

func (o *Orchestrator) recordFailure(ctx context.Context, result *models.CycleResult, table string, err error) {
	result.Failed++
	result.Errors = append(result.Errors, models.SeriesError{Table: table, Error: err.Error()})
	o.sink.SeriesFailed(ctx, table, err)
}
