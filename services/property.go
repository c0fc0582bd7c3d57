package services

import (
	"context"
	"fmt"
	"log"

	"finn_scraper/config"
	"finn_scraper/fetch"
	"finn_scraper/geocode"
	"finn_scraper/models"
	"finn_scraper/parser"
	"finn_scraper/storage"
)

// PropertyService scrapes one listing detail page into a full property
// record and enriches it with coordinates.
type PropertyService struct {
	store    storage.Store
	fetcher  fetch.Fetcher
	engine   *parser.Engine
	geocoder *geocode.Geocoder
	cfg      *config.ScraperConfig
}

func NewPropertyService(store storage.Store, fetcher fetch.Fetcher, engine *parser.Engine, geocoder *geocode.Geocoder, cfg *config.ScraperConfig) *PropertyService {
	return &PropertyService{
		store:    store,
		fetcher:  fetcher,
		engine:   engine,
		geocoder: geocoder,
		cfg:      cfg,
	}
}

// Scrape fetches and parses the detail page for one finn code. Fetch errors
// pass through unchanged so the caller can distinguish a missing page from
// a transport failure; parsing itself cannot fail.
func (s *PropertyService) Scrape(ctx context.Context, finnCode string) (*models.PropertyRecord, error) {
	url := fmt.Sprintf(s.cfg.AdURL, finnCode)
	doc, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	rec := s.engine.Parse(finnCode, doc)
	s.enrichCoordinates(ctx, rec)
	return rec, nil
}

// enrichCoordinates resolves the address to lat/lng. A geocoding miss or
// failure leaves the coordinates nil; it never fails the scrape.
func (s *PropertyService) enrichCoordinates(ctx context.Context, rec *models.PropertyRecord) {
	if s.geocoder == nil || rec.Address == models.NotFound {
		return
	}

	result, err := s.geocoder.Lookup(ctx, rec.Address)
	if err != nil {
		log.Printf("Geocode: lookup failed for %s (%q): %v", rec.FinnCode, rec.Address, err)
		return
	}
	if result == nil {
		log.Printf("Geocode: no match for %s (%q)", rec.FinnCode, rec.Address)
		return
	}

	rec.Latitude = &result.Latitude
	rec.Longitude = &result.Longitude
}

// Save persists the record, replacing any previous scrape of the same
// finn code.
func (s *PropertyService) Save(ctx context.Context, rec *models.PropertyRecord) error {
	return s.store.SavePropertyRecord(ctx, rec)
}
