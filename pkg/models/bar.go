package models

import "time"

// Bar represents one OHLCV candlestick as returned by the provider.
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	AdjClose  float64   `json:"adj_close"`
	Volume    int64     `json:"volume"`
}

// Key renders the bar's primary key in the series' stored text form,
// full timestamp for intraday series and calendar date otherwise. The
// timestamp's location is preserved; the fetcher sets it to the
// instrument's exchange timezone.
func (b Bar) Key(interval Interval) string {
	return b.Timestamp.Format(interval.KeyFormat())
}

// BarRow is a stored bar as read back from a series table, keyed by its
// text primary key.
type BarRow struct {
	Key      string  `json:"key"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	AdjClose float64 `json:"adj_close"`
	Volume   int64   `json:"volume"`
}

// FetchWindow is the date range a sync cycle requests from the provider.
// End is always "now"; Start depends on the stored state of the series.
type FetchWindow struct {
	Start time.Time
	End   time.Time
}
