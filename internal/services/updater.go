package services

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// CycleRunner runs one full sync cycle. *Orchestrator is the production
// implementation.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*models.CycleResult, error)
}

// Updater runs as a background service that periodically re-runs the
// sync cycle. Safe because cycles are idempotent.
type Updater struct {
	runner   CycleRunner
	interval time.Duration
	logger   *logrus.Entry

	// cycleMu serializes cycles. No two cycles may run at once, or two
	// workers could reconcile the same series table concurrently.
	cycleMu sync.Mutex

	// Control
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewUpdater creates a new periodic updater service
func NewUpdater(runner CycleRunner, interval time.Duration, logger *logrus.Logger) *Updater {
	return &Updater{
		runner:   runner,
		interval: interval,
		logger:   logger.WithField("component", "updater"),
		done:     make(chan struct{}),
	}
}

// Start starts the background updater
func (u *Updater) Start(ctx context.Context) error {
	if u.running {
		return nil
	}

	u.running = true
	u.logger.WithField("interval", u.interval).Info("Starting periodic sync updater")

	u.wg.Add(1)
	go u.updateLoop(ctx)

	return nil
}

// Stop stops the background updater
func (u *Updater) Stop() error {
	if !u.running {
		return nil
	}

	u.logger.Info("Stopping periodic sync updater")
	close(u.done)
	u.wg.Wait()
	u.running = false

	return nil
}

// updateLoop runs the periodic update cycle
func (u *Updater) updateLoop(ctx context.Context) {
	defer u.wg.Done()

	// Initial cycle on startup
	u.performCycle(ctx)

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-u.done:
			return
		case <-ticker.C:
			u.performCycle(ctx)
		}
	}
}

// performCycle runs one sync cycle and logs the outcome. Fatal cycle
// errors are not retried here; the next tick retries naturally.
func (u *Updater) performCycle(ctx context.Context) {
	u.cycleMu.Lock()
	defer u.cycleMu.Unlock()

	u.runCycleLocked(ctx)
}

// ForceCycle triggers an immediate cycle, used by the HTTP API. A force
// that arrives while a cycle is already running coalesces into it.
func (u *Updater) ForceCycle(ctx context.Context) {
	if !u.cycleMu.TryLock() {
		u.logger.Info("Sync cycle already running, coalescing forced cycle")
		return
	}
	defer u.cycleMu.Unlock()

	u.logger.Info("Forced sync cycle requested")
	u.runCycleLocked(ctx)
}

// runCycleLocked executes one cycle. Callers must hold cycleMu.
func (u *Updater) runCycleLocked(ctx context.Context) {
	result, err := u.runner.RunCycle(ctx)
	if err != nil {
		u.logger.WithError(err).Error("Sync cycle failed")
		return
	}

	u.logger.WithFields(logrus.Fields{
		"synced":   result.Synced,
		"failed":   result.Failed,
		"appended": result.Appended,
	}).Debug("Sync cycle finished")
}
