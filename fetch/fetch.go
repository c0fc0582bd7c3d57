// Package fetch turns listing URLs into parsed documents. The rest of the
// system only sees the Fetcher interface; which implementation backs it is
// a configuration choice.
package fetch

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/PuerkitoBio/goquery"

	"finn_scraper/config"
	"finn_scraper/httputil"
)

// ErrNotFound marks a page that is gone rather than unreachable: a 404/410
// response or a redirect away from the ad. Callers record it as a failed
// scrape instead of a transport error.
var ErrNotFound = errors.New("fetch: page not found")

type Fetcher interface {
	Fetch(ctx context.Context, url string) (*goquery.Document, error)
	Close() error
}

// New builds the fetcher selected by cfg.Fetcher.
func New(cfg *config.ScraperConfig, clients *httputil.Clients) Fetcher {
	switch cfg.Fetcher {
	case "browser":
		return NewBrowserFetcher(cfg)
	default:
		return NewHTTPFetcher(cfg, clients.Scraping)
	}
}

// Throttle sleeps for a random duration drawn from [min, max], or returns
// early when the context is cancelled. Every external fetch is followed by
// one of these to bound the request rate.
func Throttle(ctx context.Context, min, max time.Duration) {
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
