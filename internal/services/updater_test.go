package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// gateRunner blocks every cycle on release and records how many cycles
// ran and how many overlapped.
type gateRunner struct {
	mu      sync.Mutex
	active  int
	peak    int
	runs    int
	release chan struct{}
}

func (r *gateRunner) RunCycle(ctx context.Context) (*models.CycleResult, error) {
	r.mu.Lock()
	r.active++
	if r.active > r.peak {
		r.peak = r.active
	}
	r.runs++
	r.mu.Unlock()

	<-r.release

	r.mu.Lock()
	r.active--
	r.mu.Unlock()

	return &models.CycleResult{}, nil
}

func (r *gateRunner) snapshot() (active, peak, runs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active, r.peak, r.runs
}

func TestForceCycleDoesNotOverlapRunningCycle(t *testing.T) {
	runner := &gateRunner{release: make(chan struct{})}
	u := NewUpdater(runner, time.Hour, testLogger())
	ctx := context.Background()

	go u.ForceCycle(ctx)

	require.Eventually(t, func() bool {
		active, _, _ := runner.snapshot()
		return active == 1
	}, time.Second, time.Millisecond)

	// A second force while a cycle is in flight coalesces instead of
	// running a concurrent reconciler over the same tables.
	u.ForceCycle(ctx)

	active, peak, runs := runner.snapshot()
	assert.Equal(t, 1, active)
	assert.Equal(t, 1, peak)
	assert.Equal(t, 1, runs)

	close(runner.release)
	require.Eventually(t, func() bool {
		active, _, _ := runner.snapshot()
		return active == 0
	}, time.Second, time.Millisecond)
}

func TestForceCycleOverlapWithUpdaterLoop(t *testing.T) {
	runner := &gateRunner{release: make(chan struct{})}
	u := NewUpdater(runner, time.Hour, testLogger())
	ctx := context.Background()

	// Start kicks off the initial cycle, which parks on the gate.
	require.NoError(t, u.Start(ctx))

	require.Eventually(t, func() bool {
		active, _, _ := runner.snapshot()
		return active == 1
	}, time.Second, time.Millisecond)

	u.ForceCycle(ctx)

	_, peak, runs := runner.snapshot()
	assert.Equal(t, 1, peak)
	assert.Equal(t, 1, runs)

	close(runner.release)
	require.NoError(t, u.Stop())

	_, peak, _ = runner.snapshot()
	assert.Equal(t, 1, peak)
}
