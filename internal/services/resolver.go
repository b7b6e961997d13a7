package services

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// SeriesGroup pairs a set of symbols with the intervals each of them
// should be maintained at. The on-disk document is a JSON array of
// groups: [{"stocks": ["AAPL"], "intervals": ["1d", "1h"]}, ...].
type SeriesGroup struct {
	Symbols   []string `json:"stocks"`
	Intervals []string `json:"intervals"`
}

// LoadGroups reads the series-groups document. A missing file yields an
// empty group list rather than an error; downstream components rely on
// receiving a well-formed (possibly empty) set.
func LoadGroups(path string) ([]SeriesGroup, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read series config %s: %w", path, err)
	}

	var groups []SeriesGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse series config %s: %w", path, err)
	}

	return groups, nil
}

// ResolveSeries expands the groups into the deduplicated cross product of
// every symbol with every interval in its group. Combinations that fail
// validation are reported as per-series schema errors and skipped; they
// never abort the sibling series.
func ResolveSeries(groups []SeriesGroup, logger *logrus.Entry) ([]models.SeriesKey, []models.SeriesError) {
	var keys []models.SeriesKey
	var invalid []models.SeriesError
	seen := make(map[models.SeriesKey]struct{})

	for _, group := range groups {
		for _, symbol := range group.Symbols {
			for _, interval := range group.Intervals {
				key, err := models.NewSeriesKey(symbol, models.Interval(interval))
				if err != nil {
					schemaErr := &models.SchemaError{
						Table:  symbol + "_" + interval,
						Reason: err.Error(),
					}
					logger.WithError(schemaErr).Warn("Skipping invalid series")
					invalid = append(invalid, models.SeriesError{
						Table: schemaErr.Table,
						Error: schemaErr.Error(),
					})
					continue
				}
				if _, ok := seen[key]; ok {
					continue
				}
				seen[key] = struct{}{}
				keys = append(keys, key)
			}
		}
	}

	return keys, invalid
}
