package econ

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jcleary/barharvest/internal/retry"
)

// ErrMissingAPIKey means the feed was configured without a key. The
// client refuses to issue the request at all.
var ErrMissingAPIKey = errors.New("api key not configured")

// APIError represents an error response from a feed.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("econ api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry. Malformed
// requests and auth failures are permanent; anything else may clear on a
// later attempt.
func (e *APIError) IsRetryable() bool {
	switch e.StatusCode {
	case http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusUnprocessableEntity:
		return false
	}
	return true
}

// doRequest performs a single GET against a feed endpoint.
func (c *Client) doRequest(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	fullURL := endpoint
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	pol := retry.Policy{
		MaxAttempts: c.maxAttempts,
		Backoff:     c.backoff,
		Multiplier:  2,
		Jitter:      true,
	}

	body, _, err := retry.DoValue(ctx, c.logger, pol, retry.Transient, func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, endpoint, query)
	})
	return body, err
}

// get performs a GET request with retries and decodes the response.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, result any) error {
	if c.endpoints.APIKey == "" {
		return ErrMissingAPIKey
	}
	query.Set("api_key", c.endpoints.APIKey)

	body, err := c.doWithRetry(ctx, endpoint, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
