package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jcleary/barharvest/internal/config"
	"github.com/jcleary/barharvest/internal/model"
)

// WriteStats reports the outcome of one source's batch.
type WriteStats struct {
	Inserted   int // rows written
	Duplicates int // rows already present, left untouched
}

// Store persists fetched rows into the market_data table. Writes are
// idempotent: a (symbol, date) pair already present is skipped, never
// duplicated, so re-running a window is safe.
type Store interface {
	// EnsureSchema creates the market_data table if it does not exist.
	EnsureSchema(ctx context.Context) error

	// WriteBars commits one source's rows as a single transaction. A
	// failed batch rolls back only its own source's rows.
	WriteBars(ctx context.Context, symbol string, points []model.DataPoint) (WriteStats, error)

	// Close releases the storage connection. Safe to call more than
	// once.
	Close() error
}

// Open builds the configured storage driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return OpenPostgres(ctx, cfg.Postgres, logger)
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLite.Path, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
