package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roruizf/yahoo-finance-stock-db/internal/database"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/config"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// fakeProvider serves canned bars per symbol and records calls.
type fakeProvider struct {
	mu      sync.Mutex
	bars    map[string][]models.Bar
	missing map[string]bool
	fail    map[string]error
	calls   int
}

func (f *fakeProvider) GetBars(_ context.Context, symbol string, _ models.Interval, _ models.FetchWindow) ([]models.Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if err := f.fail[symbol]; err != nil {
		return nil, &models.ProviderError{Symbol: symbol, Err: err}
	}
	return f.bars[symbol], nil
}

func (f *fakeProvider) HasSymbol(_ context.Context, symbol string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.missing[symbol], nil
}

func newTestOrchestrator(t *testing.T, db *database.SQLiteClient, provider BarProvider, seriesJSON string, prefilter bool) *Orchestrator {
	t.Helper()

	cfg := &config.SyncConfig{
		SeriesFile:    writeSeriesFile(t, seriesJSON),
		MaxConcurrent: 2,
		Prefilter:     prefilter,
	}

	log := testLogger()
	planner := NewPlanner(db, log)
	reconciler := NewReconciler(db, nil, log)

	return NewOrchestrator(db, provider, planner, reconciler, nil, cfg, log)
}

func tableKeys(t *testing.T, db *database.SQLiteClient, key models.SeriesKey) []string {
	t.Helper()
	rows, err := db.BarRows(context.Background(), key, 0)
	require.NoError(t, err)
	keys := make([]string, len(rows))
	for i, row := range rows {
		keys[i] = row.Key
	}
	return keys
}

func TestRunCycle(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{bars: map[string][]models.Bar{
		"AAPL": {dailyBar("2024-01-01", 100), dailyBar("2024-01-02", 101)},
		"MSFT": {dailyBar("2024-01-01", 200)},
	}}

	o := newTestOrchestrator(t, db, provider,
		`[{"stocks": ["AAPL", "MSFT"], "intervals": ["1d"]}]`, false)

	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Series)
	assert.Equal(t, 2, result.Synced)
	assert.Zero(t, result.Failed)
	assert.Equal(t, 3, result.Appended)

	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, tableKeys(t, db, mustKey(t, "AAPL", models.Interval1d)))

	statuses, err := db.GetSyncStatuses(context.Background())
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	for _, status := range statuses {
		assert.Equal(t, models.SyncCompleted, status.Status)
	}
}

func TestRunCycleIdempotent(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{bars: map[string][]models.Bar{
		"AAPL": {dailyBar("2024-01-01", 100), dailyBar("2024-01-02", 101), dailyBar("2024-01-03", 102)},
	}}

	o := newTestOrchestrator(t, db, provider,
		`[{"stocks": ["AAPL"], "intervals": ["1d"]}]`, false)

	_, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	first := tableKeys(t, db, mustKey(t, "AAPL", models.Interval1d))

	// With no new upstream data a second cycle only prunes and re-admits
	// the tail row; the stored key set is unchanged.
	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Appended)

	second := tableKeys(t, db, mustKey(t, "AAPL", models.Interval1d))
	assert.Equal(t, first, second)
}

func TestRunCycleIsolatesSeriesFailures(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{
		bars: map[string][]models.Bar{"AAPL": {dailyBar("2024-01-01", 100)}},
		fail: map[string]error{"NOPE": fmt.Errorf("connection refused")},
	}

	o := newTestOrchestrator(t, db, provider,
		`[{"stocks": ["AAPL", "NOPE"], "intervals": ["1d"]}]`, false)

	result, err := o.RunCycle(context.Background())
	require.NoError(t, err, "a provider failure must not abort the cycle")

	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "NOPE_1d", result.Errors[0].Table)

	// The healthy sibling synced normally.
	assert.Equal(t, []string{"2024-01-01"}, tableKeys(t, db, mustKey(t, "AAPL", models.Interval1d)))

	status, err := db.GetSyncStatus(context.Background(), "NOPE_1d")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.SyncFailed, status.Status)
	assert.Contains(t, status.Error, "connection refused")
}

func TestRunCycleInvalidSeriesSkipped(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{bars: map[string][]models.Bar{
		"AAPL": {dailyBar("2024-01-01", 100)},
	}}

	o := newTestOrchestrator(t, db, provider,
		`[{"stocks": ["AAPL"], "intervals": ["1d", "3x"]}]`, false)

	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 1, result.Failed)

	// No table was created for the invalid interval.
	exists, err := db.TableExists(context.Background(), "AAPL_3x")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunCycleEmptyProviderResult(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{bars: map[string][]models.Bar{
		"AAPL": {dailyBar("2024-01-01", 100), dailyBar("2024-01-02", 101)},
	}}

	o := newTestOrchestrator(t, db, provider,
		`[{"stocks": ["AAPL"], "intervals": ["1d"]}]`, false)

	_, err := o.RunCycle(context.Background())
	require.NoError(t, err)

	// The provider goes quiet: the next cycle prunes the tail row and
	// appends nothing.
	provider.mu.Lock()
	provider.bars["AAPL"] = nil
	provider.mu.Unlock()

	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	assert.Zero(t, result.Appended)

	assert.Equal(t, []string{"2024-01-01"}, tableKeys(t, db, mustKey(t, "AAPL", models.Interval1d)))
}

func TestRunCyclePrefilter(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{
		bars:    map[string][]models.Bar{"AAPL": {dailyBar("2024-01-01", 100)}},
		missing: map[string]bool{"GONE": true},
	}

	o := newTestOrchestrator(t, db, provider,
		`[{"stocks": ["AAPL", "GONE"], "intervals": ["1d"]}]`, true)

	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)

	// The unavailable symbol is dropped before table creation.
	assert.Equal(t, 1, result.Series)
	exists, err := db.TableExists(context.Background(), "GONE_1d")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunCycleMissingConfig(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{}

	cfg := &config.SyncConfig{
		SeriesFile:    "/nonexistent/series.json",
		MaxConcurrent: 1,
	}
	log := testLogger()
	o := NewOrchestrator(db, provider, NewPlanner(db, log), NewReconciler(db, nil, log), nil, cfg, log)

	result, err := o.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Series)
	assert.Zero(t, provider.calls)
}

func TestRunCycleStorageFailureIsFatal(t *testing.T) {
	db := newTestDB(t)
	provider := &fakeProvider{}

	o := newTestOrchestrator(t, db, provider,
		`[{"stocks": ["AAPL"], "intervals": ["1d"]}]`, false)

	require.NoError(t, db.Close())

	_, err := o.RunCycle(context.Background())
	require.Error(t, err)

	var storageErr *models.StorageError
	assert.ErrorAs(t, err, &storageErr)
}

func TestRunWithRetry(t *testing.T) {
	attempts := 0
	fn := func(context.Context) (*models.CycleResult, error) {
		attempts++
		if attempts < 3 {
			return nil, &models.StorageError{Op: "test", Err: fmt.Errorf("transient")}
		}
		return &models.CycleResult{Synced: 1}, nil
	}

	result, err := RunWithRetry(context.Background(), RetryPolicy{MaxAttempts: 5, Backoff: time.Millisecond}, testLogger(), fn)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 1, result.Synced)
}

func TestRunWithRetryExhausted(t *testing.T) {
	fn := func(context.Context) (*models.CycleResult, error) {
		return nil, &models.StorageError{Op: "test", Err: fmt.Errorf("down")}
	}

	_, err := RunWithRetry(context.Background(), RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}, testLogger(), fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up after 2 attempts")
}
