package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/internal/database"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// Planner computes the fetch window for one series: how far back the next
// provider call must reach so that the store ends up gapless without
// requesting data older than the interval's provider-imposed lookback
// limit.
type Planner struct {
	db     *database.SQLiteClient
	logger *logrus.Entry

	// now is swappable for tests.
	now func() time.Time
}

// NewPlanner creates a new fetch window planner
func NewPlanner(db *database.SQLiteClient, logger *logrus.Logger) *Planner {
	return &Planner{
		db:     db,
		logger: logger.WithField("component", "planner"),
		now:    time.Now,
	}
}

// Plan returns the fetch window for the series. Empty series start at the
// interval's maximum lookback (a decade for unbounded daily-or-coarser
// intervals); non-empty series start one day before the date of the
// latest stored key so the reconciler can refresh that provisional row
// whatever the exchange's UTC offset. End is always now.
func (p *Planner) Plan(ctx context.Context, key models.SeriesKey) (models.FetchWindow, error) {
	now := p.now()

	count, err := p.db.CountBars(ctx, key)
	if err != nil {
		return models.FetchWindow{}, err
	}

	if count == 0 {
		return models.FetchWindow{Start: p.emptySeriesStart(key.Interval, now), End: now}, nil
	}

	maxKey, err := p.db.MaxKey(ctx, key)
	if err != nil {
		return models.FetchWindow{}, err
	}

	last, err := parseStoredKey(maxKey)
	if err != nil {
		// Unparseable stored key: recoverable per series. Fall back to
		// the empty-table window rather than aborting the run; the
		// reconciler's dedup keeps the overlap harmless.
		integrity := &models.DataIntegrityError{Table: key.TableName(), Key: maxKey}
		p.logger.WithError(integrity).WithField("table", key.TableName()).
			Warn("Falling back to full lookback window")
		return models.FetchWindow{Start: p.emptySeriesStart(key.Interval, now), End: now}, nil
	}

	// The window starts one day before the last stored key's calendar
	// date: exchanges east of UTC open before 00:00 UTC of their own
	// date, and the tail row pruned by the reconciler must stay inside
	// the fetched range. The merge dedup absorbs the extra day.
	start := time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)

	return models.FetchWindow{Start: start, End: now}, nil
}

// emptySeriesStart computes the start date for a series with no stored
// rows, bounded by the interval's maximum lookback.
func (p *Planner) emptySeriesStart(interval models.Interval, now time.Time) time.Time {
	days := interval.MaxLookbackDays()
	if days == 0 {
		days = models.DefaultDailyLookbackDays + 1
	}

	start := now.AddDate(0, 0, -(days - 1))
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
}

// parseStoredKey parses a stored key value in either of the two key
// column formats.
func parseStoredKey(key string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, key); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable key %q", key)
}
