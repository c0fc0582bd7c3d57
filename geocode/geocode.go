// Package geocode resolves street addresses to coordinates through the
// Nominatim search API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"finn_scraper/retry"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org/search"

// ErrRateLimited is returned when the service answers HTTP 429.
var ErrRateLimited = errors.New("geocode: rate limited")

// Result holds resolved coordinates.
type Result struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Geocoder struct {
	client    *http.Client
	baseURL   string
	userAgent string
	retryCfg  retry.Config
}

// New creates a geocoder. Timeouts and rate-limit responses are retried
// with exponential back-off per retryCfg; every other failure is final.
func New(client *http.Client, userAgent string, retryCfg retry.Config) *Geocoder {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Geocoder{
		client:    client,
		baseURL:   defaultBaseURL,
		userAgent: userAgent,
		retryCfg:  retryCfg,
	}
}

// Lookup resolves an address. A (nil, nil) return means the service
// answered but found no location; that is a miss, not an error.
func (g *Geocoder) Lookup(ctx context.Context, address string) (*Result, error) {
	var result *Result

	err := g.retryCfg.Do(ctx, "geocode "+address, func() error {
		r, err := g.lookupOnce(ctx, address)
		if err != nil {
			return err
		}
		result = r
		return nil
	}, IsRetryable)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (g *Geocoder) lookupOnce(ctx context.Context, address string) (*Result, error) {
	params := url.Values{}
	params.Set("q", address)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, "GET", g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	var places []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("geocode: decode response: %w", err)
	}
	if len(places) == 0 {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode: bad latitude %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("geocode: bad longitude %q: %w", places[0].Lon, err)
	}

	return &Result{Latitude: lat, Longitude: lon}, nil
}

// IsRetryable reports whether a geocoding error is a timeout or a
// rate-limit response, the only two failure kinds worth retrying.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
