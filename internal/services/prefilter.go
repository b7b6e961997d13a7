package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// AvailabilityFilter is an optional pipeline stage composed before the
// schema manager. It drops series whose symbol the provider does not
// know, so unreachable symbols never get a table created for them.
type AvailabilityFilter struct {
	provider BarProvider
	logger   *logrus.Entry
}

// NewAvailabilityFilter creates a new availability pre-filter
func NewAvailabilityFilter(provider BarProvider, logger *logrus.Logger) *AvailabilityFilter {
	return &AvailabilityFilter{
		provider: provider,
		logger:   logger.WithField("component", "prefilter"),
	}
}

// Filter returns the series whose symbols the provider can serve. A
// failed availability check keeps the series: the per-series sync path
// will surface the real error.
func (f *AvailabilityFilter) Filter(ctx context.Context, series []models.SeriesKey) []models.SeriesKey {
	available := make(map[string]bool)
	kept := make([]models.SeriesKey, 0, len(series))

	for _, key := range series {
		ok, checked := available[key.Symbol]
		if !checked {
			var err error
			ok, err = f.provider.HasSymbol(ctx, key.Symbol)
			if err != nil {
				f.logger.WithError(err).WithField("symbol", key.Symbol).
					Warn("Availability check failed, keeping symbol")
				ok = true
			}
			available[key.Symbol] = ok
		}

		if !ok {
			f.logger.WithField("symbol", key.Symbol).Info("Dropping unavailable symbol")
			continue
		}
		kept = append(kept, key)
	}

	return kept
}
