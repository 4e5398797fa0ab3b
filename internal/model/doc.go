// Package model defines the shared data types that flow through an
// acquisition run.
//
// Conventions:
//   - Timestamps: source-local date strings, passed through to storage untouched
//   - Prices: float64 close values exactly as the provider reports them
//   - Identity: DataSource.Symbol keys every request and result within a run
package model
