// Package remote adapts external services to the tracker's consumed
// interfaces: an HTTP bridge to a scraping service for price fetches,
// and webhook/stdout notification sinks.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hazyhaar/pricewatch/tracker"
)

// FetcherConfig configures the HTTP fetcher bridge.
type FetcherConfig struct {
	// BaseURL is the scraping service root, e.g. "http://localhost:9040".
	BaseURL string
	// Timeout bounds one fetch round trip. Default: 30s.
	Timeout time.Duration
	// UserAgent sent on every request. Default: "pricewatch/1.0".
	UserAgent string
}

func (c *FetcherConfig) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = "pricewatch/1.0"
	}
}

// HTTPFetcher implements tracker.Fetcher against a scraping service that
// exposes /details and /search endpoints returning snapshot JSON.
type HTTPFetcher struct {
	config FetcherConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(cfg FetcherConfig, logger *slog.Logger) *HTTPFetcher {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// FetchItemDetails asks the scraping service for one listing.
// 404 and 204 mean "no listing": (nil, nil).
func (f *HTTPFetcher) FetchItemDetails(ctx context.Context, platform, itemURL string) (*tracker.ItemSnapshot, error) {
	q := url.Values{"platform": {platform}, "url": {itemURL}}
	var snap tracker.ItemSnapshot
	found, err := f.get(ctx, "/details", q, &snap)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &snap, nil
}

// SearchItems runs a free-text search on one storefront.
func (f *HTTPFetcher) SearchItems(ctx context.Context, platform, query string) ([]*tracker.ItemSnapshot, error) {
	q := url.Values{"platform": {platform}, "q": {query}}
	var snaps []*tracker.ItemSnapshot
	found, err := f.get(ctx, "/search", q, &snaps)
	if err != nil {
		return nil, err
	}
	if !found {
		return []*tracker.ItemSnapshot{}, nil
	}
	return snaps, nil
}

// get performs one GET round trip. Returns found=false on 404/204.
func (f *HTTPFetcher) get(ctx context.Context, path string, q url.Values, out any) (bool, error) {
	u := f.config.BaseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("remote: %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("remote: %s: status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("remote: decode %s: %w", path, err)
	}
	return true, nil
}
