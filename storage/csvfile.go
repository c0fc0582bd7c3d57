package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"finn_scraper/models"
)

// CSVStore keeps everything in two flat files. It loads the files once,
// serves reads from memory and rewrites the files whole on every mutation.
// Meant for small datasets and environments without a database; run
// summaries are held in memory only.
type CSVStore struct {
	mu             sync.Mutex
	listingsPath   string
	propertiesPath string
	listings       map[string]models.ListingRecord
	properties     map[string]models.PropertyRecord
	runs           []models.ScrapeRun
}

func NewCSVStore(dir string) (*CSVStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &CSVStore{
		listingsPath:   filepath.Join(dir, "finn_codes.csv"),
		propertiesPath: filepath.Join(dir, "properties.csv"),
		listings:       make(map[string]models.ListingRecord),
		properties:     make(map[string]models.PropertyRecord),
	}

	if err := s.loadListings(); err != nil {
		return nil, err
	}
	if err := s.loadProperties(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CSVStore) Close() error {
	return nil
}

func (s *CSVStore) loadListings() error {
	rows, err := readCSV(s.listingsPath)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		rec := models.ListingRecord{
			FinnCode:      row[0],
			FetchedAt:     parseTime(row[1]),
			ScrapeStatus:  models.ScrapeStatus(row[2]),
			ListingStatus: models.ListingStatus(row[3]),
			LastChecked:   parseTime(row[4]),
		}
		s.listings[rec.FinnCode] = rec
	}
	return nil
}

func (s *CSVStore) loadProperties() error {
	rows, err := readCSV(s.propertiesPath)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if len(row) < 24 {
			continue
		}
		rec := models.PropertyRecord{
			FinnCode: row[0], Title: row[1], Address: row[2],
			AskingPrice: row[3], TotalPrice: row[4], Costs: row[5],
			JointDebt: row[6], MonthlyFee: row[7],
			PropertyType: row[8], Ownership: row[9], Bedrooms: row[10],
			InternalArea: row[11], UsableArea: row[12], ExternalUsableArea: row[13],
			Floor: row[14], BuildYear: row[15], Rooms: row[16],
			LocalArea: row[17], AreaName: row[18],
			Images:       strings.Split(row[19], "|"),
			ScrapeStatus: models.ScrapeStatus(row[22]),
			LastChecked:  parseTime(row[23]),
		}
		if lat, err := strconv.ParseFloat(row[20], 64); err == nil {
			rec.Latitude = &lat
		}
		if lng, err := strconv.ParseFloat(row[21], 64); err == nil {
			rec.Longitude = &lng
		}
		s.properties[rec.FinnCode] = rec
	}
	return nil
}

func (s *CSVStore) flushListings() error {
	codes := make([]string, 0, len(s.listings))
	for code := range s.listings {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		rec := s.listings[code]
		rows = append(rows, listingRow(&rec))
	}
	return writeCSV(s.listingsPath, listingHeader(), rows)
}

func (s *CSVStore) flushProperties() error {
	codes := make([]string, 0, len(s.properties))
	for code := range s.properties {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		rec := s.properties[code]
		rows = append(rows, propertyRow(&rec))
	}
	return writeCSV(s.propertiesPath, propertyHeader(), rows)
}

func (s *CSVStore) SaveListingRecords(ctx context.Context, records []models.ListingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		if existing, ok := s.listings[rec.FinnCode]; ok {
			if rec.LastChecked.Before(existing.LastChecked) {
				rec.LastChecked = existing.LastChecked
			}
			rec.FetchedAt = existing.FetchedAt
		}
		s.listings[rec.FinnCode] = rec
	}
	return s.flushListings()
}

func (s *CSVStore) FetchListingRecords(ctx context.Context, filter models.ListingFilter) ([]models.ListingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []models.ListingRecord
	for _, rec := range s.listings {
		switch filter {
		case models.FilterPendingOnly:
			if rec.ScrapeStatus != models.ScrapePending {
				continue
			}
		case models.FilterActive:
			if rec.ListingStatus != models.ListingActive {
				continue
			}
		case models.FilterInactive:
			if rec.ListingStatus != models.ListingInactive {
				continue
			}
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].FinnCode < records[j].FinnCode })
	return records, nil
}

func (s *CSVStore) UpdateScrapeStatus(ctx context.Context, finnCode string, status models.ScrapeStatus) error {
	return s.UpdateListingFields(ctx, finnCode, ListingFieldUpdate{ScrapeStatus: &status})
}

func (s *CSVStore) UpdateListingFields(ctx context.Context, finnCode string, update ListingFieldUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.listings[finnCode]
	if !ok {
		return fmt.Errorf("listing not found: %s", finnCode)
	}

	if update.ScrapeStatus != nil {
		rec.ScrapeStatus = *update.ScrapeStatus
	}
	if update.ListingStatus != nil {
		rec.ListingStatus = *update.ListingStatus
	}
	if update.LastChecked != nil && update.LastChecked.After(rec.LastChecked) {
		rec.LastChecked = *update.LastChecked
	}

	s.listings[finnCode] = rec
	return s.flushListings()
}

func (s *CSVStore) SavePropertyRecord(ctx context.Context, rec *models.PropertyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.properties[rec.FinnCode] = *rec
	return s.flushProperties()
}

func (s *CSVStore) PropertyExists(ctx context.Context, finnCode string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.properties[finnCode]
	return ok, nil
}

func (s *CSVStore) SaveRun(ctx context.Context, run *models.ScrapeRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.runs {
		if s.runs[i].ID == run.ID {
			s.runs[i] = *run
			return nil
		}
	}
	s.runs = append(s.runs, *run)
	return nil
}

func (s *CSVStore) LastRun(ctx context.Context, kind string) (*models.ScrapeRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var last *models.ScrapeRun
	for i := range s.runs {
		if s.runs[i].Kind != kind {
			continue
		}
		if last == nil || s.runs[i].StartedAt.After(last.StartedAt) {
			last = &s.runs[i]
		}
	}
	if last == nil {
		return nil, nil
	}
	run := *last
	return &run, nil
}

func (s *CSVStore) CountListings(ctx context.Context) (map[models.ListingStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[models.ListingStatus]int)
	for _, rec := range s.listings {
		counts[rec.ListingStatus]++
	}
	return counts, nil
}

func (s *CSVStore) ExportProperties(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := make([]string, 0, len(s.properties))
	for code := range s.properties {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		rec := s.properties[code]
		rows = append(rows, propertyRow(&rec))
	}
	return writeCSV(path, propertyHeader(), rows)
}

func (s *CSVStore) ExportListingRecords(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := make([]string, 0, len(s.listings))
	for code := range s.listings {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := make([][]string, 0, len(codes))
	for _, code := range codes {
		rec := s.listings[code]
		rows = append(rows, listingRow(&rec))
	}
	return writeCSV(path, listingHeader(), rows)
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
	if len(rows) > 0 {
		rows = rows[1:] // skip header
	}
	return rows, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
