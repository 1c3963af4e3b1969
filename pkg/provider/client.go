// Package provider implements the HTTP client for the VCI-style quote API:
// end-of-day history by symbol and date range, plus the listing endpoints
// used by the symbol catalog. Rate-limit responses surface as *Error values
// whose text pkg/ratelimit classifies; this package itself never sleeps or
// retries.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/D9Dre4mer/VNStock-Data/pkg/cache"
)

const (
	// DefaultBaseURL is the public quote API endpoint.
	DefaultBaseURL = "https://trading.vietcap.com.vn/api"

	// listingCacheTTL bounds how long listing responses are served from the
	// optional Redis cache. Listings change at most once per trading day.
	listingCacheTTL = 24 * time.Hour

	// maxErrorBody caps how much of an error response body is read into the
	// error message.
	maxErrorBody = 4 << 10
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the quote API. Defaults to DefaultBaseURL.
	BaseURL string

	// UserAgent sent with every request.
	UserAgent string

	// Timeout per HTTP request. Defaults to 30s.
	Timeout time.Duration

	// Cache is the optional Redis response cache for listing endpoints.
	// Nil disables caching.
	Cache *cache.Manager
}

// Client is the quote provider client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	cache      *cache.Manager
	logger     zerolog.Logger
}

// New creates a provider client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		cache:      cfg.Cache,
		logger:     log.With().Str("component", "provider").Logger(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// get performs a GET against endpoint with the given query, optionally
// consulting the response cache. Returns the raw response body.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values, cacheTTL time.Duration) ([]byte, error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	key := cache.Key{Endpoint: endpoint, Params: query}
	if cacheTTL > 0 {
		entry, err := c.cache.Get(ctx, key)
		if err == nil {
			c.logger.Debug().Str("endpoint", endpoint).Msg("Listing served from cache")
			requestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			return entry.Data, nil
		}
		if err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().Str("endpoint", endpoint).Msg("Executing provider request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues("network").Inc()
		requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode >= 400 {
		errorsTotal.WithLabelValues(classifyStatus(resp.StatusCode)).Inc()
		return nil, c.errorFromResponse(endpoint, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		errorsTotal.WithLabelValues("network").Inc()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if cacheTTL > 0 {
		if err := c.cache.Set(ctx, key, body, cacheTTL); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache set error")
		}
	}

	return body, nil
}

// errorFromResponse builds an *Error from a non-2xx response, preferring the
// server's own message field so rate-limit wait hints survive.
func (c *Client) errorFromResponse(endpoint string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	message := gjson.GetBytes(body, "message").String()
	if message == "" {
		message = string(body)
	}

	c.logger.Warn().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Str("message", message).
		Msg("Provider request error")

	return &Error{
		StatusCode: resp.StatusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// classifyStatus maps a status code to an error class for metrics.
func classifyStatus(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limit"
	case status >= 500:
		return "server"
	default:
		return "client"
	}
}
