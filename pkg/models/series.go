package models

import (
	"fmt"
	"strings"
)

// hyphenPlaceholder substitutes '-' in symbols when they are embedded in
// storage identifiers. '$' is legal in SQLite identifiers and never occurs
// in a provider symbol, so the mapping is reversible.
const hyphenPlaceholder = "$"

// SeriesKey identifies one (symbol, interval) time series. Construct it
// with NewSeriesKey or ParseTableName so that the symbol and interval are
// always validated.
type SeriesKey struct {
	Symbol   string
	Interval Interval
}

// NewSeriesKey validates the symbol and interval and returns the key.
// Symbols are restricted to letters, digits and '-' so that the
// table-name mapping stays unambiguous.
func NewSeriesKey(symbol string, interval Interval) (SeriesKey, error) {
	if symbol == "" {
		return SeriesKey{}, fmt.Errorf("empty symbol")
	}
	if !validSymbol(symbol) {
		return SeriesKey{}, fmt.Errorf("invalid symbol %q: only letters, digits and '-' allowed", symbol)
	}
	if !interval.Valid() {
		return SeriesKey{}, fmt.Errorf("invalid interval %q for symbol %s", interval, symbol)
	}
	return SeriesKey{Symbol: symbol, Interval: interval}, nil
}

// TableName returns the storage identifier for the series,
// SYMBOL_INTERVAL with hyphens escaped.
func (k SeriesKey) TableName() string {
	return escapeSymbol(k.Symbol) + "_" + string(k.Interval)
}

func (k SeriesKey) String() string {
	return k.Symbol + "/" + string(k.Interval)
}

// ParseTableName reverses TableName. The interval never contains an
// underscore, so the split happens at the last one.
func ParseTableName(name string) (SeriesKey, error) {
	idx := strings.LastIndex(name, "_")
	if idx <= 0 || idx == len(name)-1 {
		return SeriesKey{}, fmt.Errorf("table name %q does not match SYMBOL_INTERVAL", name)
	}
	interval, err := ParseInterval(name[idx+1:])
	if err != nil {
		return SeriesKey{}, fmt.Errorf("table name %q: %w", name, err)
	}
	return NewSeriesKey(unescapeSymbol(name[:idx]), interval)
}

func escapeSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "-", hyphenPlaceholder)
}

func unescapeSymbol(escaped string) string {
	return strings.ReplaceAll(escaped, hyphenPlaceholder, "-")
}

func validSymbol(symbol string) bool {
	for _, r := range symbol {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}
