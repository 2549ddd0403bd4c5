// Package exchange looks up the USD to MXN market rate.
//
// The lookup fails closed: any problem reaching or decoding the rate source
// yields the configured fallback rate instead of an error, and the quote is
// marked so callers can tell the two apart.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultURL is a free endpoint returning {"rates": {"MXN": ...}} for USD.
	DefaultURL = "https://open.er-api.com/v6/latest/USD"

	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 5 * time.Second

	// SourceFallback names quotes that did not come from the rate source.
	SourceFallback = "fallback"
)

// DefaultFallbackRate is used whenever the live lookup fails.
var DefaultFallbackRate = decimal.RequireFromString("18.50")

// Quote is one USD to MXN rate.
type Quote struct {
	Rate      decimal.Decimal `json:"rate"`
	Source    string          `json:"source"`
	Fallback  bool            `json:"fallback"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Config configures a Client. Zero values take the package defaults.
type Config struct {
	URL          string
	FallbackRate decimal.Decimal
	Timeout      time.Duration
	CacheTTL     time.Duration
}

// Client fetches rates over HTTP and caches the last good quote.
type Client struct {
	url      string
	fallback decimal.Decimal
	ttl      time.Duration
	http     *http.Client
	now      func() time.Time

	mu     sync.Mutex
	cached Quote
	expiry time.Time
}

// NewClient returns a Client for cfg.
func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if !cfg.FallbackRate.IsPositive() {
		cfg.FallbackRate = DefaultFallbackRate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		url:      cfg.URL,
		fallback: cfg.FallbackRate,
		ttl:      cfg.CacheTTL,
		http:     &http.Client{Timeout: cfg.Timeout},
		now:      time.Now,
	}
}

type ratesResponse struct {
	Rates map[string]json.Number `json:"rates"`
}

// Rate returns the current quote. It never returns an error: failures are
// logged and answered with the fallback quote, which is not cached.
func (c *Client) Rate(ctx context.Context) Quote {
	c.mu.Lock()
	if c.ttl > 0 && c.now().Before(c.expiry) {
		q := c.cached
		c.mu.Unlock()
		return q
	}
	c.mu.Unlock()

	rate, err := c.fetch(ctx)
	if err != nil {
		slog.Warn("exchange rate lookup failed, using fallback",
			"url", c.url,
			"fallback", c.fallback.String(),
			"error", err,
		)
		return Quote{Rate: c.fallback, Source: SourceFallback, Fallback: true, FetchedAt: c.now()}
	}

	q := Quote{Rate: rate, Source: c.url, FetchedAt: c.now()}
	if c.ttl > 0 {
		c.mu.Lock()
		c.cached = q
		c.expiry = q.FetchedAt.Add(c.ttl)
		c.mu.Unlock()
	}
	return q
}

// Refresh drops the cached quote and fetches a new one.
func (c *Client) Refresh(ctx context.Context) Quote {
	c.mu.Lock()
	c.expiry = time.Time{}
	c.mu.Unlock()
	return c.Rate(ctx)
}

// Fallback returns the configured fallback rate.
func (c *Client) Fallback() decimal.Decimal {
	return c.fallback
}

func (c *Client) fetch(ctx context.Context) (decimal.Decimal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return decimal.Zero, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body ratesResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode rates: %w", err)
	}

	raw, ok := body.Rates["MXN"]
	if !ok {
		return decimal.Zero, fmt.Errorf("response has no MXN rate")
	}
	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse MXN rate %q: %w", raw, err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("non-positive MXN rate %s", rate)
	}
	return rate, nil
}
