package events

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// Sink receives structured sync lifecycle events. The orchestrator is
// handed a sink explicitly instead of writing to a process-wide logger.
type Sink interface {
	CycleStarted(ctx context.Context, series int)
	SeriesSynced(ctx context.Context, table string, appended int)
	SeriesFailed(ctx context.Context, table string, err error)
	CycleCompleted(ctx context.Context, result *models.CycleResult)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) CycleStarted(context.Context, int)                   {}
func (NopSink) SeriesSynced(context.Context, string, int)           {}
func (NopSink) SeriesFailed(context.Context, string, error)         {}
func (NopSink) CycleCompleted(context.Context, *models.CycleResult) {}

// LogSink writes events to a logrus logger.
type LogSink struct {
	logger *logrus.Entry
}

// NewLogSink creates a sink backed by the given logger.
func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger.WithField("component", "sync")}
}

func (s *LogSink) CycleStarted(_ context.Context, series int) {
	s.logger.WithField("series", series).Info("Sync cycle started")
}

func (s *LogSink) SeriesSynced(_ context.Context, table string, appended int) {
	s.logger.WithFields(logrus.Fields{
		"table":    table,
		"appended": appended,
	}).Info("Series synced")
}

func (s *LogSink) SeriesFailed(_ context.Context, table string, err error) {
	s.logger.WithError(err).WithField("table", table).Error("Series sync failed")
}

func (s *LogSink) CycleCompleted(_ context.Context, result *models.CycleResult) {
	s.logger.WithFields(logrus.Fields{
		"series":   result.Series,
		"synced":   result.Synced,
		"failed":   result.Failed,
		"appended": result.Appended,
		"duration": result.FinishedAt.Sub(result.StartedAt).Round(1e6),
	}).Info("Sync cycle completed")
}

// MultiSink fans events out to several sinks.
type MultiSink []Sink

func (m MultiSink) CycleStarted(ctx context.Context, series int) {
	for _, s := range m {
		s.CycleStarted(ctx, series)
	}
}

func (m MultiSink) SeriesSynced(ctx context.Context, table string, appended int) {
	for _, s := range m {
		s.SeriesSynced(ctx, table, appended)
	}
}

func (m MultiSink) SeriesFailed(ctx context.Context, table string, err error) {
	for _, s := range m {
		s.SeriesFailed(ctx, table, err)
	}
}

func (m MultiSink) CycleCompleted(ctx context.Context, result *models.CycleResult) {
	for _, s := range m {
		s.CycleCompleted(ctx, result)
	}
}
