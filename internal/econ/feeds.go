package econ

import (
	"context"
	"fmt"
	"net/url"
)

// GetForecast fetches the rate forecast series at the given frequency
// (e.g. "monthly").
func (c *Client) GetForecast(ctx context.Context, frequency string) (*ForecastResponse, error) {
	query := url.Values{}
	query.Set("frequency", frequency)

	var resp ForecastResponse
	if err := c.get(ctx, c.endpoints.ForecastURL, query, &resp); err != nil {
		return nil, fmt.Errorf("get forecast: %w", err)
	}

	return &resp, nil
}

// GetObservations fetches the observation history for an interest rate
// series.
func (c *Client) GetObservations(ctx context.Context, seriesID string) (*ObservationsResponse, error) {
	query := url.Values{}
	query.Set("series_id", seriesID)
	query.Set("file_type", "json")

	var resp ObservationsResponse
	if err := c.get(ctx, c.endpoints.RatesURL, query, &resp); err != nil {
		return nil, fmt.Errorf("get observations %s: %w", seriesID, err)
	}

	return &resp, nil
}
