package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jcleary/barharvest/internal/config"
	"github.com/jcleary/barharvest/internal/model"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS market_data (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	close  DOUBLE PRECISION NOT NULL,
	volume BIGINT,
	PRIMARY KEY (symbol, date)
)`

const pgInsert = `
INSERT INTO market_data (symbol, date, close, volume)
VALUES ($1, $2, $3, $4)
ON CONFLICT (symbol, date) DO NOTHING`

// PostgresStore persists rows to a PostgreSQL pool. Transactions give
// each source's batch all-or-nothing semantics without blocking other
// writers.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	closeOnce sync.Once
}

// OpenPostgres creates a connection pool and verifies it.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Debug("postgres store opened",
		"host", cfg.Host,
		"port", cfg.Port,
		"database", cfg.Name,
	)

	return &PostgresStore{pool: pool, logger: logger}, nil
}

// EnsureSchema creates the market_data table if absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("create market_data: %w", err)
	}
	return nil
}

// WriteBars inserts one source's rows in a single transaction, skipping
// (symbol, date) pairs that are already stored.
func (s *PostgresStore) WriteBars(ctx context.Context, symbol string, points []model.DataPoint) (WriteStats, error) {
	var stats WriteStats
	if len(points) == 0 {
		return stats, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return stats, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(pgInsert, symbol, p.Date, p.Close, p.Volume)
	}

	results := tx.SendBatch(ctx, batch)
	for range points {
		ct, err := results.Exec()
		if err != nil {
			results.Close()
			return WriteStats{}, fmt.Errorf("insert %s: %w", symbol, err)
		}
		if ct.RowsAffected() == 0 {
			stats.Duplicates++
		} else {
			stats.Inserted++
		}
	}
	// The batch must be closed before the transaction can commit.
	if err := results.Close(); err != nil {
		return WriteStats{}, fmt.Errorf("close batch %s: %w", symbol, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return WriteStats{}, fmt.Errorf("commit %s: %w", symbol, err)
	}

	s.logger.Debug("bars persisted",
		"symbol", symbol,
		"inserted", stats.Inserted,
		"duplicates", stats.Duplicates,
	)
	return stats, nil
}

// Close releases the pool. Safe to call more than once.
func (s *PostgresStore) Close() error {
	s.closeOnce.Do(s.pool.Close)
	return nil
}
