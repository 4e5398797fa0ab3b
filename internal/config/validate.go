package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
// Source lists are validated when they are expanded into the run's source
// set; see DataSources.
func (c *HarvesterConfig) Validate() error {
	if c.Broker.Host == "" {
		return errors.New("broker.host is required")
	}
	if c.Broker.Port < 1 || c.Broker.Port > 65535 {
		return fmt.Errorf("broker.port must be between 1 and 65535, got %d", c.Broker.Port)
	}
	if c.Broker.ClientID < 0 {
		return errors.New("broker.client_id must be >= 0")
	}
	if c.Broker.ConnectAttempts < 1 {
		return errors.New("broker.connect_attempts must be >= 1")
	}

	if c.Fetch.Duration == "" {
		return errors.New("fetch.duration is required")
	}
	if c.Fetch.BarSize == "" {
		return errors.New("fetch.bar_size is required")
	}
	if c.Fetch.MaxAttempts < 1 {
		return errors.New("fetch.max_attempts must be >= 1")
	}
	if c.Fetch.Concurrency < 1 {
		return errors.New("fetch.concurrency must be >= 1")
	}
	if c.Fetch.RunTimeout < 0 {
		return errors.New("fetch.run_timeout cannot be negative")
	}

	if len(c.Sources.Economic.RateSeries) > 0 && c.Econ.RatesURL == "" {
		return errors.New("econ.rates_url is required when rate series are configured")
	}
	if len(c.Sources.Economic.Forecasts) > 0 && c.Econ.ForecastURL == "" {
		return errors.New("econ.forecast_url is required when forecasts are configured")
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return errors.New("storage.sqlite.path is required")
		}
	case "postgres":
		if err := c.Storage.Postgres.validate("storage.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", "sqlite", "postgres", c.Storage.Driver)
	}

	return nil
}

func (db *PostgresConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
