// Package pricefeed fetches collateral/USD quotes from an HTTP price API and
// keeps the last good quote fresh on a cron schedule.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"lbp-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultEndpoint    = "https://min-api.cryptocompare.com/data/price"
	DefaultPricePath   = "USD"
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 500 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultBackoffMult = 2.0
)

// ErrInvalidQuote is returned when the response has no positive numeric price.
var ErrInvalidQuote = errors.New("invalid quote")

// Client fetches quotes over HTTP with retries and exponential backoff.
type Client struct {
	endpoint    string
	pricePath   string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	now         func() time.Time
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithPricePath sets the gjson path of the price in the response body.
func WithPricePath(path string) ClientOption {
	return func(c *Client) {
		c.pricePath = path
	}
}

// NewClient creates a quote client. An empty endpoint uses DefaultEndpoint.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint:    endpoint,
		pricePath:   DefaultPricePath,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the USD price of symbol.
// Non-200 responses and 429s are retried; a body without a positive price is not.
func (c *Client) Fetch(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = normalizeSymbol(symbol)
	target := c.endpoint + "?" + url.Values{"fsym": {symbol}, "tsyms": {"USD"}}.Encode()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.Quote{}, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return domain.Quote{}, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return domain.Quote{}, ctx.Err()
			}
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			continue
		}

		return c.parse(symbol, body)
	}

	return domain.Quote{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) parse(symbol string, body []byte) (domain.Quote, error) {
	if !gjson.ValidBytes(body) {
		return domain.Quote{}, fmt.Errorf("%w: malformed JSON", ErrInvalidQuote)
	}
	v := gjson.GetBytes(body, c.pricePath)
	if v.Type != gjson.Number || v.Float() <= 0 {
		return domain.Quote{}, fmt.Errorf("%w: %s=%s", ErrInvalidQuote, c.pricePath, v.Raw)
	}
	return domain.Quote{
		Symbol:    symbol,
		USD:       v.Float(),
		FetchedAt: c.now().UnixMilli(),
	}, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
