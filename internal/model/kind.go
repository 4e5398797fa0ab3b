package model

// Kind identifies the category of series a DataSource describes.
// The set is closed: config validation rejects anything else, so switches
// over Kind downstream only need the four cases.
type Kind string

const (
	KindEquity   Kind = "equity"
	KindFuture   Kind = "future"
	KindForex    Kind = "forex"
	KindEconomic Kind = "economic"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindEquity, KindFuture, KindForex, KindEconomic:
		return true
	}
	return false
}

// Brokered reports whether the kind is served by the brokerage gateway.
// Economic series come from REST endpoints and never touch the gateway.
func (k Kind) Brokered() bool {
	return k == KindEquity || k == KindFuture || k == KindForex
}

// EconFeed selects which REST endpoint serves an economic series.
type EconFeed string

const (
	// FeedInterestRates is the observations endpoint
	// (series_id / api_key / file_type query parameters).
	FeedInterestRates EconFeed = "interest_rates"

	// FeedForecast is the forecast endpoint
	// (api_key / frequency query parameters).
	FeedForecast EconFeed = "forecast"
)

// Outcome classifies a FetchResult.
type Outcome string

const (
	// OutcomeSuccess means the provider returned at least one row.
	OutcomeSuccess Outcome = "success"

	// OutcomeEmpty means the provider answered with zero rows, or the
	// source was skipped (e.g. missing API key). Not an error.
	OutcomeEmpty Outcome = "empty"

	// OutcomeFailed means the fetch gave up after exhausting retries or
	// hitting a non-retryable error.
	OutcomeFailed Outcome = "failed"
)
