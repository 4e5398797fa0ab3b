// Package store implements the idempotent persistence layer over the
// market_data table.
//
// Two drivers share the Store contract:
//   - postgres: a pgx pool; batch inserts with ON CONFLICT DO NOTHING
//   - sqlite: a local file via database/sql; INSERT OR IGNORE
//
// Both commit one transaction per source and report inserted vs
// already-present rows, so retried runs over overlapping windows never
// duplicate a (symbol, date) pair.
package store
