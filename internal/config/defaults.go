package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBrokerHost      = "127.0.0.1"
	DefaultBrokerPort      = 4001
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 2 * time.Second
	DefaultCallTimeout     = 60 * time.Second

	DefaultDuration     = "1 Y"
	DefaultBarSize      = "1 day"
	DefaultMaxAttempts  = 3
	DefaultFetchBackoff = 1 * time.Second
	DefaultConcurrency  = 4

	DefaultQuoteType      = "TRADES"
	DefaultForexQuoteType = "MIDPOINT"
	DefaultFutureExchange = "CME"

	DefaultRatesURL    = "https://api.stlouisfed.org/fred/series/observations"
	DefaultEconTimeout = 30 * time.Second

	DefaultStorageDriver = "sqlite"
	DefaultSQLitePath    = "market_data.db"
	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultMaxConns      = 4
	DefaultMinConns      = 1
)

func (c *HarvesterConfig) applyDefaults() {
	// Broker defaults
	if c.Broker.Host == "" {
		c.Broker.Host = DefaultBrokerHost
	}
	if c.Broker.Port == 0 {
		c.Broker.Port = DefaultBrokerPort
	}
	if c.Broker.ConnectAttempts == 0 {
		c.Broker.ConnectAttempts = DefaultConnectAttempts
	}
	if c.Broker.ConnectBackoff == 0 {
		c.Broker.ConnectBackoff = DefaultConnectBackoff
	}
	if c.Broker.CallTimeout == 0 {
		c.Broker.CallTimeout = DefaultCallTimeout
	}

	// Fetch defaults
	if c.Fetch.Duration == "" {
		c.Fetch.Duration = DefaultDuration
	}
	if c.Fetch.BarSize == "" {
		c.Fetch.BarSize = DefaultBarSize
	}
	if c.Fetch.MaxAttempts == 0 {
		c.Fetch.MaxAttempts = DefaultMaxAttempts
	}
	if c.Fetch.Backoff == 0 {
		c.Fetch.Backoff = DefaultFetchBackoff
	}
	if c.Fetch.Concurrency == 0 {
		c.Fetch.Concurrency = DefaultConcurrency
	}
	if c.Fetch.QuoteTypes.Equities == "" {
		c.Fetch.QuoteTypes.Equities = DefaultQuoteType
	}
	if c.Fetch.QuoteTypes.Futures == "" {
		c.Fetch.QuoteTypes.Futures = DefaultQuoteType
	}
	if c.Fetch.QuoteTypes.Forex == "" {
		c.Fetch.QuoteTypes.Forex = DefaultForexQuoteType
	}

	// Futures venue default
	for i := range c.Sources.Futures {
		if c.Sources.Futures[i].Exchange == "" {
			c.Sources.Futures[i].Exchange = DefaultFutureExchange
		}
	}

	// Econ feed defaults; retry settings fall back to the fetch policy
	if c.Econ.RatesURL == "" {
		c.Econ.RatesURL = DefaultRatesURL
	}
	if c.Econ.Timeout == 0 {
		c.Econ.Timeout = DefaultEconTimeout
	}
	if c.Econ.MaxAttempts == 0 {
		c.Econ.MaxAttempts = c.Fetch.MaxAttempts
	}
	if c.Econ.Backoff == 0 {
		c.Econ.Backoff = c.Fetch.Backoff
	}

	// Storage defaults
	if c.Storage.Driver == "" {
		c.Storage.Driver = DefaultStorageDriver
	}
	if c.Storage.SQLite.Path == "" {
		c.Storage.SQLite.Path = DefaultSQLitePath
	}
	applyDBDefaults(&c.Storage.Postgres)
}

func applyDBDefaults(db *PostgresConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
