package retailer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dealscout/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Client defaults
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxAttempts = 3
	DefaultBaseBackoff = 500 * time.Millisecond
	DefaultPageSize    = 50
)

// ClientConfig configures a retailer API client
type ClientConfig struct {
	Name          string
	BaseURL       string
	APIKey        string
	Timeout       time.Duration
	RatePerSecond float64 // <= 0 disables limiting
	Burst         int
	MaxAttempts   int
	BaseBackoff   time.Duration
}

// Client handles communication with a retailer's product search API
type Client struct {
	name        string
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	rateLimiter *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
	debug       bool
	logger      *slog.Logger
}

// NewClient creates a new retailer API client
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = DefaultBaseBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		name: cfg.Name,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		apiKey:      cfg.APIKey,
		baseURL:     cfg.BaseURL,
		rateLimiter: rate.NewLimiter(limit, burst),
		maxAttempts: cfg.MaxAttempts,
		baseBackoff: cfg.BaseBackoff,
		logger:      logger.With("component", "retailer", "retailer", cfg.Name),
	}
}

// SetDebug toggles verbose request logging
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

// SearchProducts queries the retailer search endpoint and returns the raw body.
// A 404 is reported as an empty body with no error.
func (c *Client) SearchProducts(ctx context.Context, query string, cons domain.SearchConstraints) ([]byte, error) {
	reqURL := c.searchURL(query, cons)
	if c.debug {
		c.logger.Debug("search request", "query", query, "url", reqURL)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		body, retry, err := c.attempt(ctx, reqURL)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || attempt == c.maxAttempts {
			break
		}

		c.logger.Warn("search attempt failed", "attempt", attempt, "err", err)
		if err := sleep(ctx, c.backoff(attempt)); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrSourceFailure, err)
		}
	}

	c.logger.Warn("all attempts failed", "query", query, "err", lastErr)
	return nil, lastErr
}

// attempt performs one request. retry reports whether the failure is transient.
func (c *Client) attempt(ctx context.Context, reqURL string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "DealScout/1.0")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("%w: %v", domain.ErrSourceFailure, err)
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("%w: read body: %v", domain.ErrSourceFailure, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("%w: %w: status %d", domain.ErrSourceFailure, domain.ErrRateLimited, resp.StatusCode)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: status %d", domain.ErrSourceFailure, resp.StatusCode)
	default:
		return nil, false, fmt.Errorf("%w: status %d, body: %s", domain.ErrSourceFailure, resp.StatusCode, truncate(body, 200))
	}
}

func (c *Client) searchURL(query string, cons domain.SearchConstraints) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("pageSize", strconv.Itoa(DefaultPageSize))
	if cons.Category != "" {
		params.Set("category", cons.Category)
	}
	if cons.Brand != "" {
		params.Set("brand", cons.Brand)
	}
	if cons.MinPrice != nil {
		params.Set("minPrice", strconv.FormatFloat(*cons.MinPrice, 'f', 2, 64))
	}
	if cons.MaxPrice != nil {
		params.Set("maxPrice", strconv.FormatFloat(*cons.MaxPrice, 'f', 2, 64))
	}
	return fmt.Sprintf("%s/v1/products/search?%s", c.baseURL, params.Encode())
}

// backoff doubles the base delay on every attempt: 1 -> base, 2 -> 2*base, ...
func (c *Client) backoff(attempt int) time.Duration {
	return exponentialBackoff(c.baseBackoff, attempt)
}

func exponentialBackoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base * time.Duration(1<<(attempt-1))
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
