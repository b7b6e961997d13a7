package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/models"
)

// Series table operations. One table per (symbol, interval) series, named
// SYMBOL_INTERVAL, created lazily and never dropped. The key column is the
// table's primary key; its uniqueness within a series is the core
// invariant of the store.

// EnsureSeriesTable creates the series table if it does not exist yet.
// Idempotent; the column layout depends only on the interval class.
func (sc *SQLiteClient) EnsureSeriesTable(ctx context.Context, key models.SeriesKey) error {
	query := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS "%s" ("%s" TEXT PRIMARY KEY, "Open" REAL, "High" REAL, "Low" REAL, "Close" REAL, "AdjClose" REAL, "Volume" INTEGER)`,
		key.TableName(),
		key.Interval.KeyColumn(),
	)

	if _, err := sc.db.ExecContext(ctx, query); err != nil {
		return &models.StorageError{Op: "create table " + key.TableName(), Err: err}
	}

	return nil
}

// TableExists reports whether a table with the given name exists.
func (sc *SQLiteClient) TableExists(ctx context.Context, name string) (bool, error) {
	var found string
	err := sc.db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, name,
	).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &models.StorageError{Op: "table lookup " + name, Err: err}
	}
	return true, nil
}

// ListSeriesTables returns the series keys of all series tables in the
// store. Tables whose names do not parse as SYMBOL_INTERVAL (such as the
// sync status table) are skipped.
func (sc *SQLiteClient) ListSeriesTables(ctx context.Context) ([]models.SeriesKey, error) {
	rows, err := sc.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type='table' ORDER BY name`)
	if err != nil {
		return nil, &models.StorageError{Op: "list tables", Err: err}
	}
	defer rows.Close()

	var keys []models.SeriesKey
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, &models.StorageError{Op: "scan table name", Err: err}
		}
		key, err := models.ParseTableName(name)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// CountBars returns the number of stored rows for the series.
func (sc *SQLiteClient) CountBars(ctx context.Context, key models.SeriesKey) (int, error) {
	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, key.TableName())
	if err := sc.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, &models.StorageError{Op: "count " + key.TableName(), Err: err}
	}
	return count, nil
}

// MaxKey returns the largest stored key value for the series, or the
// empty string when the table has no rows.
func (sc *SQLiteClient) MaxKey(ctx context.Context, key models.SeriesKey) (string, error) {
	var max sql.NullString
	query := fmt.Sprintf(`SELECT MAX("%s") FROM "%s"`, key.Interval.KeyColumn(), key.TableName())
	if err := sc.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return "", &models.StorageError{Op: "max key " + key.TableName(), Err: err}
	}
	if !max.Valid {
		return "", nil
	}
	return max.String, nil
}

// MergeBars reconciles freshly fetched bars into the series table. In a
// single transaction it deletes the row with the maximum key (that row is
// provisional: it may have been written mid-bar on a prior cycle), loads
// the remaining key set, and appends only bars whose key is not already
// stored, in ascending key order. The deleted key reappears from the
// fetched window, so the delete-and-append pair is atomic by construction.
// Returns the number of appended rows.
func (sc *SQLiteClient) MergeBars(ctx context.Context, key models.SeriesKey, bars []models.Bar) (int, error) {
	table := key.TableName()
	keyCol := key.Interval.KeyColumn()
	appended := 0

	err := sc.ExecTx(ctx, func(tx *sql.Tx) error {
		del := fmt.Sprintf(`DELETE FROM "%s" WHERE "%s" = (SELECT MAX("%s") FROM "%s")`,
			table, keyCol, keyCol, table)
		if _, err := tx.ExecContext(ctx, del); err != nil {
			return fmt.Errorf("failed to prune tail row: %w", err)
		}

		existing, err := keySet(ctx, tx, table, keyCol)
		if err != nil {
			return err
		}

		fresh := make([]models.Bar, 0, len(bars))
		seen := make(map[string]struct{}, len(bars))
		for _, bar := range bars {
			k := bar.Key(key.Interval)
			if _, ok := existing[k]; ok {
				continue
			}
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			fresh = append(fresh, bar)
		}

		if len(fresh) == 0 {
			return nil
		}

		sort.Slice(fresh, func(i, j int) bool {
			return fresh[i].Key(key.Interval) < fresh[j].Key(key.Interval)
		})

		ins := fmt.Sprintf(
			`INSERT INTO "%s" ("%s", "Open", "High", "Low", "Close", "AdjClose", "Volume") VALUES (?, ?, ?, ?, ?, ?, ?)`,
			table, keyCol)
		stmt, err := tx.PrepareContext(ctx, ins)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, bar := range fresh {
			if _, err := stmt.ExecContext(ctx,
				bar.Key(key.Interval),
				bar.Open, bar.High, bar.Low, bar.Close, bar.AdjClose, bar.Volume,
			); err != nil {
				return fmt.Errorf("failed to insert bar %s: %w", bar.Key(key.Interval), err)
			}
			appended++
		}

		return nil
	})

	if err != nil {
		return 0, &models.StorageError{Op: "merge " + table, Err: err}
	}

	sc.logger.WithFields(logrus.Fields{
		"table":    table,
		"fetched":  len(bars),
		"appended": appended,
	}).Debug("Merged bars")

	return appended, nil
}

// keySet loads the set of stored key values for a series inside a
// transaction.
func keySet(ctx context.Context, tx *sql.Tx, table, keyCol string) (map[string]struct{}, error) {
	query := fmt.Sprintf(`SELECT "%s" FROM "%s"`, keyCol, table)
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load key set: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys[k] = struct{}{}
	}

	return keys, rows.Err()
}

// BarRows returns the most recent stored rows for the series in ascending
// key order. A non-positive limit returns every row.
func (sc *SQLiteClient) BarRows(ctx context.Context, key models.SeriesKey, limit int) ([]models.BarRow, error) {
	table := key.TableName()
	keyCol := key.Interval.KeyColumn()

	query := fmt.Sprintf(
		`SELECT "%s", "Open", "High", "Low", "Close", "AdjClose", "Volume" FROM "%s" ORDER BY "%s" DESC`,
		keyCol, table, keyCol)
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := sc.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &models.StorageError{Op: "read " + table, Err: err}
	}
	defer rows.Close()

	var bars []models.BarRow
	for rows.Next() {
		var row models.BarRow
		if err := rows.Scan(&row.Key, &row.Open, &row.High, &row.Low, &row.Close, &row.AdjClose, &row.Volume); err != nil {
			return nil, &models.StorageError{Op: "scan " + table, Err: err}
		}
		bars = append(bars, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to ascending key order.
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}

	return bars, nil
}
