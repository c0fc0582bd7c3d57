package httputil

import (
	"net/http"
	"time"
)

type Clients struct {
	Scraping *http.Client // target site fetches, redirects surfaced to caller
	Geocode  *http.Client // Nominatim lookups
}

// NewClients builds the shared HTTP clients. The scraping client does not
// follow redirects: finn.no redirects removed ads to the search page, and
// the caller treats that as a fetch failure rather than silently scraping
// the wrong document.
func NewClients(fetchTimeout, geocodeTimeout time.Duration) *Clients {
	scraping := &http.Client{
		Timeout: fetchTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Clients{
		Scraping: scraping,
		Geocode:  &http.Client{Timeout: geocodeTimeout},
	}
}
