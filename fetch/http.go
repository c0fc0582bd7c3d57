package fetch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"finn_scraper/config"
)

// HTTPFetcher fetches pages with a plain HTTP client. Redirects are not
// followed; they are reported as ErrNotFound.
type HTTPFetcher struct {
	cfg    *config.ScraperConfig
	client *http.Client
}

func NewHTTPFetcher(cfg *config.ScraperConfig, client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{cfg: cfg, client: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusGone,
		resp.StatusCode == http.StatusMovedPermanently,
		resp.StatusCode == http.StatusFound:
		return nil, fmt.Errorf("fetch %s: status %d: %w", url, resp.StatusCode, ErrNotFound)
	default:
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

func (f *HTTPFetcher) Close() error {
	return nil
}
