package models

import "time"

// Sync status values for a series.
const (
	SyncPending   = "pending"
	SyncSyncing   = "syncing"
	SyncCompleted = "completed"
	SyncFailed    = "failed"
)

// SyncStatus represents the last recorded synchronization outcome of one
// series table.
type SyncStatus struct {
	Table     string    `json:"table"`
	Status    string    `json:"status"`
	Bars      int       `json:"bars"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SeriesError is one per-series failure collected during a cycle.
type SeriesError struct {
	Table string `json:"table"`
	Error string `json:"error"`
}

// CycleResult summarizes one full sync cycle across all configured
// series.
type CycleResult struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Series     int           `json:"series"`
	Synced     int           `json:"synced"`
	Failed     int           `json:"failed"`
	Appended   int           `json:"appended"`
	Errors     []SeriesError `json:"errors,omitempty"`
}
