package model

import "time"

// -----------------------------------------------------------------------------
// Source Description
// -----------------------------------------------------------------------------

// DataSource describes one series to acquire. Built once per run from
// configuration and immutable afterwards.
type DataSource struct {
	Symbol string // Ticker or series ID; identity within the run
	Kind   Kind

	// Brokerage fetch parameters (equity, future, forex)
	Duration   string // Lookback window (e.g. "2 Y", "6 M")
	BarSize    string // Bar aggregation (e.g. "1 day", "5 mins")
	WhatToShow string // Quote type: TRADES, MIDPOINT, BID, ASK
	UseRTH     bool   // Regular trading hours only
	Expiry     string // Contract month for futures (e.g. "202603"), "" = front month
	Exchange   string // Futures venue, "" = default

	// Economic series parameters
	Feed      EconFeed // Which REST endpoint serves the series
	Frequency string   // Forecast frequency ("q", "m", ...), forecast feed only
}

// FetchRequest pairs a DataSource with the retry parameters for one
// acquisition cycle.
type FetchRequest struct {
	Source      DataSource
	MaxAttempts int           // Per-call retry budget
	Backoff     time.Duration // Delay between attempts
}

// -----------------------------------------------------------------------------
// Fetch Results
// -----------------------------------------------------------------------------

// DataPoint is one observation of a series.
type DataPoint struct {
	Date   string  // Source-local timestamp string, stored untouched
	Close  float64 // Closing/observed value
	Volume *int64  // Share/contract volume; nil when the source reports none
}

// FetchResult is the outcome of exactly one FetchRequest. Fetch paths
// return it by value; errors ride inside rather than escaping as returns.
type FetchResult struct {
	Symbol   string      // Source identity the result is keyed by
	Outcome  Outcome
	Points   []DataPoint // Ordered rows; populated only on OutcomeSuccess
	Err      error       // Failure reason; populated only on OutcomeFailed
	Attempts int         // Attempts consumed (0 when the source was skipped)
}

// Success builds a result carrying rows.
func Success(symbol string, points []DataPoint, attempts int) FetchResult {
	return FetchResult{Symbol: symbol, Outcome: OutcomeSuccess, Points: points, Attempts: attempts}
}

// Empty builds a zero-row result. Used for both empty provider responses
// and skipped sources.
func Empty(symbol string, attempts int) FetchResult {
	return FetchResult{Symbol: symbol, Outcome: OutcomeEmpty, Attempts: attempts}
}

// Failure builds a failed result carrying the terminal error.
func Failure(symbol string, err error, attempts int) FetchResult {
	return FetchResult{Symbol: symbol, Outcome: OutcomeFailed, Err: err, Attempts: attempts}
}
