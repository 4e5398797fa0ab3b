package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/jcleary/barharvest/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS market_data (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	close  REAL NOT NULL,
	volume INTEGER,
	PRIMARY KEY (symbol, date)
)`

const sqliteInsert = `
INSERT OR IGNORE INTO market_data (symbol, date, close, volume)
VALUES (?, ?, ?, ?)`

// SQLiteStore persists rows to a local SQLite file. SQLite allows one
// writer at a time, so a mutex serializes batches.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	mu        sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// OpenSQLite opens (or creates) the database file.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection: the writer mutex already serializes access, and a
	// single handle keeps in-memory databases coherent under test.
	db.SetMaxOpenConns(1)

	// WAL mode so external readers don't block the run's writes.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	logger.Debug("sqlite store opened", "path", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// EnsureSchema creates the market_data table if absent.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create market_data: %w", err)
	}
	return nil
}

// WriteBars inserts one source's rows in a single transaction, skipping
// (symbol, date) pairs that are already stored.
func (s *SQLiteStore) WriteBars(ctx context.Context, symbol string, points []model.DataPoint) (WriteStats, error) {
	var stats WriteStats
	if len(points) == 0 {
		return stats, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, sqliteInsert)
	if err != nil {
		return stats, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		res, err := stmt.ExecContext(ctx, symbol, p.Date, p.Close, p.Volume)
		if err != nil {
			return WriteStats{}, fmt.Errorf("insert %s: %w", symbol, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return WriteStats{}, fmt.Errorf("rows affected %s: %w", symbol, err)
		}
		if n == 0 {
			stats.Duplicates++
		} else {
			stats.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return WriteStats{}, fmt.Errorf("commit %s: %w", symbol, err)
	}

	s.logger.Debug("bars persisted",
		"symbol", symbol,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates,
	)
	return stats, nil
}

// Close releases the database handle. Safe to call more than once.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
