package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval(t *testing.T) {
	for _, iv := range AllIntervals {
		parsed, err := ParseInterval(string(iv))
		require.NoError(t, err)
		assert.Equal(t, iv, parsed)
	}

	for _, bad := range []string{"", "3x", "1D", "10m", "daily"} {
		_, err := ParseInterval(bad)
		assert.Error(t, err, "interval %q should be rejected", bad)
	}
}

func TestIntervalKeyColumn(t *testing.T) {
	intraday := []Interval{Interval1m, Interval2m, Interval5m, Interval15m,
		Interval30m, Interval60m, Interval90m, Interval1h}
	daily := []Interval{Interval1d, Interval5d, Interval1wk, Interval1mo, Interval3mo}

	for _, iv := range intraday {
		assert.True(t, iv.Intraday(), "%s should be intraday", iv)
		assert.Equal(t, "Datetime", iv.KeyColumn())
		assert.Equal(t, "2006-01-02 15:04:05", iv.KeyFormat())
	}
	for _, iv := range daily {
		assert.False(t, iv.Intraday(), "%s should be daily-or-coarser", iv)
		assert.Equal(t, "Date", iv.KeyColumn())
		assert.Equal(t, "2006-01-02", iv.KeyFormat())
	}
}

func TestIntervalMaxLookback(t *testing.T) {
	assert.Equal(t, 7, Interval1m.MaxLookbackDays())
	assert.Equal(t, 60, Interval2m.MaxLookbackDays())
	assert.Equal(t, 60, Interval90m.MaxLookbackDays())
	assert.Equal(t, 730, Interval60m.MaxLookbackDays())
	assert.Equal(t, 730, Interval1h.MaxLookbackDays())

	// Daily-or-coarser intervals are unbounded.
	for _, iv := range []Interval{Interval1d, Interval5d, Interval1wk, Interval1mo, Interval3mo} {
		assert.Zero(t, iv.MaxLookbackDays(), "%s should be unbounded", iv)
	}
}
