package models

import "fmt"

// Interval is a bar granularity supported by the data provider.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval2m  Interval = "2m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval60m Interval = "60m"
	Interval90m Interval = "90m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
	Interval5d  Interval = "5d"
	Interval1wk Interval = "1wk"
	Interval1mo Interval = "1mo"
	Interval3mo Interval = "3mo"
)

// AllIntervals lists every supported interval, intraday first.
var AllIntervals = []Interval{
	Interval1m, Interval2m, Interval5m, Interval15m, Interval30m,
	Interval60m, Interval90m, Interval1h,
	Interval1d, Interval5d, Interval1wk, Interval1mo, Interval3mo,
}

// lookbackDays holds the provider-imposed maximum age of fetchable data
// per interval. Zero means unbounded.
var lookbackDays = map[Interval]int{
	Interval1m:  7,
	Interval2m:  60,
	Interval5m:  60,
	Interval15m: 60,
	Interval30m: 60,
	Interval60m: 730,
	Interval90m: 60,
	Interval1h:  730,
}

// DefaultDailyLookbackDays is the start-of-history window used for
// daily-or-coarser series with no stored rows (ten years).
const DefaultDailyLookbackDays = 3650

const (
	keyFormatIntraday = "2006-01-02 15:04:05"
	keyFormatDaily    = "2006-01-02"
)

// ParseInterval validates s against the supported set.
func ParseInterval(s string) (Interval, error) {
	iv := Interval(s)
	if !iv.Valid() {
		return "", fmt.Errorf("unsupported interval %q", s)
	}
	return iv, nil
}

// Valid reports whether the interval is in the supported set.
func (iv Interval) Valid() bool {
	switch iv {
	case Interval1m, Interval2m, Interval5m, Interval15m, Interval30m,
		Interval60m, Interval90m, Interval1h,
		Interval1d, Interval5d, Interval1wk, Interval1mo, Interval3mo:
		return true
	}
	return false
}

// Intraday reports whether the interval is finer than one day.
// Intraday series key their rows by full timestamp, coarser series by
// calendar date.
func (iv Interval) Intraday() bool {
	switch iv {
	case Interval1m, Interval2m, Interval5m, Interval15m, Interval30m,
		Interval60m, Interval90m, Interval1h:
		return true
	}
	return false
}

// KeyColumn returns the primary key column name for the interval's
// series tables.
func (iv Interval) KeyColumn() string {
	if iv.Intraday() {
		return "Datetime"
	}
	return "Date"
}

// KeyFormat returns the time layout used to render row keys.
func (iv Interval) KeyFormat() string {
	if iv.Intraday() {
		return keyFormatIntraday
	}
	return keyFormatDaily
}

// MaxLookbackDays returns the provider limit on how far back data can be
// requested at this interval, or zero when unbounded.
func (iv Interval) MaxLookbackDays() int {
	return lookbackDays[iv]
}

func (iv Interval) String() string {
	return string(iv)
}
