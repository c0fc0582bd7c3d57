// Package storage persists listing lifecycle records, extracted property
// records and run summaries. All backends implement the same Store
// contract and are selected by the factory in New; callers never probe for
// capabilities.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"finn_scraper/models"
)

// ListingFieldUpdate is a partial update of a listing record. Nil fields
// are left untouched.
type ListingFieldUpdate struct {
	ScrapeStatus  *models.ScrapeStatus
	ListingStatus *models.ListingStatus
	LastChecked   *time.Time
}

type Store interface {
	// SaveListingRecords upserts a batch keyed by finn code.
	SaveListingRecords(ctx context.Context, records []models.ListingRecord) error
	// FetchListingRecords returns records matching the filter, ordered by
	// finn code.
	FetchListingRecords(ctx context.Context, filter models.ListingFilter) ([]models.ListingRecord, error)
	// UpdateScrapeStatus sets only the scrape status of one record.
	UpdateScrapeStatus(ctx context.Context, finnCode string, status models.ScrapeStatus) error
	// UpdateListingFields applies a partial update to one record.
	UpdateListingFields(ctx context.Context, finnCode string, update ListingFieldUpdate) error

	// SavePropertyRecord upserts by finn code, replacing the record whole.
	SavePropertyRecord(ctx context.Context, rec *models.PropertyRecord) error
	PropertyExists(ctx context.Context, finnCode string) (bool, error)

	SaveRun(ctx context.Context, run *models.ScrapeRun) error
	LastRun(ctx context.Context, kind string) (*models.ScrapeRun, error)
	CountListings(ctx context.Context) (map[models.ListingStatus]int, error)

	// ExportProperties and ExportListingRecords dump the tables to flat
	// CSV files for offline analysis.
	ExportProperties(ctx context.Context, path string) error
	ExportListingRecords(ctx context.Context, path string) error

	Close() error
}

// parseRunID recovers a run UUID from its stored text form. A malformed
// value yields the zero UUID rather than an error; run IDs are purely
// operational.
func parseRunID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.UUID{}
	}
	return id
}
