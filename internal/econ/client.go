package econ

import (
	"log/slog"
	"net/http"
	"time"
)

// Endpoints holds the two feed URLs and the key they share.
type Endpoints struct {
	ForecastURL string // forecast feed
	RatesURL    string // interest rate observation feed
	APIKey      string
}

// Client provides access to the economic data feeds.
type Client struct {
	endpoints  Endpoints
	httpClient *http.Client
	logger     *slog.Logger

	maxAttempts int
	backoff     time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new economic feed client.
func NewClient(endpoints Endpoints, opts ...ClientOption) *Client {
	c := &Client{
		endpoints: endpoints,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:      slog.Default(),
		maxAttempts: 3,
		backoff:     time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the total attempt budget and base backoff.
func WithRetries(maxAttempts int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.backoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
