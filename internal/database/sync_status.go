package database

import (
	"context"
	"database/sql"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// Sync status bookkeeping. One row per series table, updated by the
// orchestrator on every cycle and served by the HTTP API. The table name
// deliberately does not match the SYMBOL_INTERVAL convention so series
// listing skips it.

// EnsureSyncStatusTable creates the sync status table if needed.
func (sc *SQLiteClient) EnsureSyncStatusTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS "_sync_status" (
			table_name TEXT PRIMARY KEY,
			status     TEXT NOT NULL,
			bars       INTEGER NOT NULL DEFAULT 0,
			error      TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`
	if _, err := sc.db.ExecContext(ctx, query); err != nil {
		return &models.StorageError{Op: "create sync status table", Err: err}
	}
	return nil
}

// UpdateSyncStatus upserts the sync status row for one series table.
func (sc *SQLiteClient) UpdateSyncStatus(ctx context.Context, table, status string, bars int, errMsg string) error {
	query := `
		INSERT INTO "_sync_status" (table_name, status, bars, error, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(table_name) DO UPDATE SET
			status = excluded.status,
			bars = excluded.bars,
			error = excluded.error,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := sc.db.ExecContext(ctx, query, table, status, bars, errMsg); err != nil {
		return &models.StorageError{Op: "update sync status " + table, Err: err}
	}
	return nil
}

// GetSyncStatus returns the sync status of one series table, or nil when
// none has been recorded.
func (sc *SQLiteClient) GetSyncStatus(ctx context.Context, table string) (*models.SyncStatus, error) {
	query := `SELECT table_name, status, bars, error, updated_at FROM "_sync_status" WHERE table_name = ?`

	status := &models.SyncStatus{}
	err := sc.db.QueryRowContext(ctx, query, table).Scan(
		&status.Table, &status.Status, &status.Bars, &status.Error, &status.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &models.StorageError{Op: "get sync status " + table, Err: err}
	}

	return status, nil
}

// GetSyncStatuses returns the sync status of every series table.
func (sc *SQLiteClient) GetSyncStatuses(ctx context.Context) ([]*models.SyncStatus, error) {
	query := `SELECT table_name, status, bars, error, updated_at FROM "_sync_status" ORDER BY table_name`

	rows, err := sc.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &models.StorageError{Op: "list sync statuses", Err: err}
	}
	defer rows.Close()

	var statuses []*models.SyncStatus
	for rows.Next() {
		status := &models.SyncStatus{}
		if err := rows.Scan(&status.Table, &status.Status, &status.Bars, &status.Error, &status.UpdatedAt); err != nil {
			return nil, &models.StorageError{Op: "scan sync status", Err: err}
		}
		statuses = append(statuses, status)
	}

	return statuses, rows.Err()
}
