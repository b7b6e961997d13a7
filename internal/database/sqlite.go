package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/config"
)

// SQLiteClient handles SQLite database operations
type SQLiteClient struct {
	db     *sql.DB
	logger *logrus.Entry
	cfg    *config.StoreConfig
}

// NewSQLiteClient opens (creating if absent) the SQLite store file
func NewSQLiteClient(cfg *config.StoreConfig, logger *logrus.Logger) (*SQLiteClient, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d",
		cfg.Path,
		cfg.BusyTimeout.Milliseconds(),
	)

	logger.WithField("path", cfg.Path).Debug("Opening SQLite store")

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite store: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite store: %w", err)
	}

	return &SQLiteClient{
		db:     db,
		logger: logger.WithField("component", "sqlite"),
		cfg:    cfg,
	}, nil
}

// Close closes the database connection
func (sc *SQLiteClient) Close() error {
	return sc.db.Close()
}

// Health checks database health
func (sc *SQLiteClient) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	return sc.db.PingContext(ctx)
}

// ExecTx executes a function within a transaction
func (sc *SQLiteClient) ExecTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := sc.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}
