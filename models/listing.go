package models

import "time"

// ScrapeStatus is the outcome of the most recent detail-scrape attempt.
type ScrapeStatus string

const (
	ScrapePending ScrapeStatus = "pending"
	ScrapeSuccess ScrapeStatus = "success"
	ScrapeFailed  ScrapeStatus = "failed" // page unreachable or no data
	ScrapeError   ScrapeStatus = "error"  // unexpected failure during processing
)

// ListingStatus is whether the advertisement is believed live.
type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingInactive ListingStatus = "inactive"
)

// ListingRecord tracks the lifecycle of one finn code across crawl cycles.
// FinnCode is the site-assigned identifier and is immutable once created.
type ListingRecord struct {
	FinnCode      string        `json:"finn_code" db:"finn_code"`
	FetchedAt     time.Time     `json:"fetched_at" db:"fetched_at"`
	ScrapeStatus  ScrapeStatus  `json:"scrape_status" db:"scrape_status"`
	ListingStatus ListingStatus `json:"listing_status" db:"listing_status"`
	LastChecked   time.Time     `json:"last_date_checked" db:"last_date_checked"`
}

// ListingFilter selects which listing records to fetch from storage.
type ListingFilter string

const (
	FilterAll         ListingFilter = "all"
	FilterPendingOnly ListingFilter = "pending"
	FilterActive      ListingFilter = "active"
	FilterInactive    ListingFilter = "inactive"
)
