package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/internal/cache"
	"github.com/roruizf/yahoo-finance-stock-db/internal/database"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// Reconciler merges fetched bars into a series table without producing
// duplicate keys. The storage transaction prunes the provisional tail row
// and appends only unseen keys; see SQLiteClient.MergeBars. On success
// the newest bar is mirrored into the latest-bar cache when one is
// configured.
type Reconciler struct {
	db     *database.SQLiteClient
	cache  *cache.RedisClient
	logger *logrus.Entry
}

// NewReconciler creates a new reconciler. The cache may be nil.
func NewReconciler(db *database.SQLiteClient, cache *cache.RedisClient, logger *logrus.Logger) *Reconciler {
	return &Reconciler{
		db:     db,
		cache:  cache,
		logger: logger.WithField("component", "reconciler"),
	}
}

// Merge reconciles the fetched bars into the series table and returns the
// number of appended rows. An empty fetch result is a no-op cycle apart
// from the pruned tail row being re-admitted unchanged on the next run.
func (r *Reconciler) Merge(ctx context.Context, key models.SeriesKey, bars []models.Bar) (int, error) {
	appended, err := r.db.MergeBars(ctx, key, bars)
	if err != nil {
		return 0, err
	}

	if r.cache != nil && len(bars) > 0 {
		latest := bars[len(bars)-1]
		row := models.BarRow{
			Key:      latest.Key(key.Interval),
			Open:     latest.Open,
			High:     latest.High,
			Low:      latest.Low,
			Close:    latest.Close,
			AdjClose: latest.AdjClose,
			Volume:   latest.Volume,
		}
		if err := r.cache.SetLatestBar(ctx, key.TableName(), row); err != nil {
			r.logger.WithError(err).WithField("table", key.TableName()).
				Warn("Failed to cache latest bar")
		}
	}

	return appended, nil
}
