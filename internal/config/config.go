package config

import "time"

// HarvesterConfig is the root configuration for one acquisition run.
type HarvesterConfig struct {
	Broker  BrokerConfig  `yaml:"broker"`
	Sources SourcesConfig `yaml:"sources"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Econ    EconConfig    `yaml:"econ"`
	Storage StorageConfig `yaml:"storage"`
}

// BrokerConfig holds the market data gateway endpoint and connect budget.
type BrokerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ClientID        int           `yaml:"client_id"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectBackoff  time.Duration `yaml:"connect_backoff"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
}

// SourcesConfig lists every series to acquire, by instrument kind.
type SourcesConfig struct {
	Equities []string        `yaml:"equities"`
	Futures  []FutureSource  `yaml:"futures"`
	Forex    []string        `yaml:"forex"`
	Economic EconomicSources `yaml:"economic"`
}

// FutureSource describes one futures contract to acquire.
type FutureSource struct {
	Symbol   string `yaml:"symbol"`
	Expiry   string `yaml:"expiry"`   // contract month YYYYMM; "" = front month
	Exchange string `yaml:"exchange"` // venue; "" = default exchange
}

// EconomicSources lists the REST-served series.
type EconomicSources struct {
	RateSeries []string         `yaml:"rate_series"`
	Forecasts  []ForecastSource `yaml:"forecasts"`
}

// ForecastSource describes one forecast series. Rows are stored under Name.
type ForecastSource struct {
	Name      string `yaml:"name"`
	Frequency string `yaml:"frequency"` // e.g. "monthly", "quarterly"
}

// FetchConfig holds the shared fetch parameters for a run.
type FetchConfig struct {
	Duration    string           `yaml:"duration"` // lookback window, e.g. "1 Y"
	BarSize     string           `yaml:"bar_size"` // bar aggregation, e.g. "1 day"
	UseRTH      bool             `yaml:"use_rth"`  // regular trading hours only
	QuoteTypes  QuoteTypesConfig `yaml:"quote_types"`
	MaxAttempts int              `yaml:"max_attempts"` // per-call retry budget
	Backoff     time.Duration    `yaml:"backoff"`      // delay between attempts
	Concurrency int              `yaml:"concurrency"`  // max in-flight fetches
	RunTimeout  time.Duration    `yaml:"run_timeout"`  // overall deadline; 0 = none
}

// QuoteTypesConfig sets what the gateway reports per instrument kind.
// Forex has no trade tape, so it defaults to MIDPOINT.
type QuoteTypesConfig struct {
	Equities string `yaml:"equities"`
	Futures  string `yaml:"futures"`
	Forex    string `yaml:"forex"`
}

// EconConfig holds the two economic feed endpoints and their shared key.
// An empty key is allowed: economic sources are then skipped at fetch
// time, not rejected at startup.
type EconConfig struct {
	ForecastURL string        `yaml:"forecast_url"`
	RatesURL    string        `yaml:"rates_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"` // 0 = fetch.max_attempts
	Backoff     time.Duration `yaml:"backoff"`      // 0 = fetch.backoff
}

// StorageConfig selects and configures the storage driver.
type StorageConfig struct {
	Driver   string         `yaml:"driver"` // "sqlite" or "postgres"
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// PostgresConfig holds a PostgreSQL connection.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SQLiteConfig holds the local database file location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}
