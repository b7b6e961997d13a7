package models

import "fmt"

// SchemaError marks an unrecognized interval or malformed series
// identifier. The affected series is skipped; siblings proceed.
type SchemaError struct {
	Table  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error for %s: %s", e.Table, e.Reason)
}

// ProviderError marks a recoverable failure of the market-data provider
// for a single series (network error, unknown symbol). The series is
// retried on the next cycle.
type ProviderError struct {
	Symbol string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error for %s: %v", e.Symbol, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// StorageError marks a failure of the persistence layer itself. It is
// fatal for the whole run and propagates to the outer retry driver.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DataIntegrityError marks a stored key that failed to parse as a
// date/datetime. Recoverable: the planner falls back to the empty-table
// window policy for that series.
type DataIntegrityError struct {
	Table string
	Key   string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity error in %s: unparseable key %q", e.Table, e.Key)
}
