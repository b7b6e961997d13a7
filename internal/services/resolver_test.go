package services

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writeSeriesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "series.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadGroupsMissingFile(t *testing.T) {
	groups, err := LoadGroups(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestLoadGroupsBadJSON(t *testing.T) {
	path := writeSeriesFile(t, `{not json`)
	_, err := LoadGroups(path)
	assert.Error(t, err)
}

func TestResolveSeries(t *testing.T) {
	path := writeSeriesFile(t, `[
		{"stocks": ["AAPL", "MSFT"], "intervals": ["1d", "1h"]},
		{"stocks": ["AAPL"], "intervals": ["1d", "1wk"]}
	]`)

	groups, err := LoadGroups(path)
	require.NoError(t, err)

	keys, invalid := ResolveSeries(groups, testLogger().WithField("component", "test"))
	assert.Empty(t, invalid)

	// Cross product per group, deduplicated across groups: AAPL_1d
	// appears in both groups but resolves once.
	require.Len(t, keys, 5)
	tables := make([]string, len(keys))
	for i, key := range keys {
		tables[i] = key.TableName()
	}
	assert.Equal(t, []string{"AAPL_1d", "AAPL_1h", "MSFT_1d", "MSFT_1h", "AAPL_1wk"}, tables)
}

func TestResolveSeriesInvalidEntries(t *testing.T) {
	groups := []SeriesGroup{
		{Symbols: []string{"AAPL", "BAD SYMBOL"}, Intervals: []string{"1d", "3x"}},
	}

	keys, invalid := ResolveSeries(groups, testLogger().WithField("component", "test"))

	require.Len(t, keys, 1)
	assert.Equal(t, "AAPL", keys[0].Symbol)
	assert.Equal(t, models.Interval1d, keys[0].Interval)

	// Three invalid combinations: AAPL_3x, BAD SYMBOL_1d, BAD SYMBOL_3x.
	assert.Len(t, invalid, 3)
}
