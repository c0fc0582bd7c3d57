package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"finn_scraper/models"
)

// Row encoding shared by every backend's CSV export.

func propertyHeader() []string {
	return []string{
		"finn_code", "title", "address",
		"asking_price", "total_price", "costs", "joint_debt", "monthly_fee",
		"property_type", "ownership", "bedrooms",
		"internal_area", "usable_area", "external_usable_area",
		"floor", "build_year", "rooms",
		"local_area", "area_name", "images",
		"latitude", "longitude",
		"scrape_status", "last_date_checked",
	}
}

func propertyRow(rec *models.PropertyRecord) []string {
	lat, lng := "", ""
	if rec.Latitude != nil {
		lat = strconv.FormatFloat(*rec.Latitude, 'f', -1, 64)
	}
	if rec.Longitude != nil {
		lng = strconv.FormatFloat(*rec.Longitude, 'f', -1, 64)
	}
	return []string{
		rec.FinnCode, rec.Title, rec.Address,
		rec.AskingPrice, rec.TotalPrice, rec.Costs, rec.JointDebt, rec.MonthlyFee,
		rec.PropertyType, rec.Ownership, rec.Bedrooms,
		rec.InternalArea, rec.UsableArea, rec.ExternalUsableArea,
		rec.Floor, rec.BuildYear, rec.Rooms,
		rec.LocalArea, rec.AreaName, strings.Join(rec.Images, "|"),
		lat, lng,
		string(rec.ScrapeStatus), rec.LastChecked.Format(time.RFC3339),
	}
}

func listingHeader() []string {
	return []string{"finn_code", "fetched_at", "scrape_status", "listing_status", "last_date_checked"}
}

func listingRow(rec *models.ListingRecord) []string {
	return []string{
		rec.FinnCode,
		rec.FetchedAt.Format(time.RFC3339),
		string(rec.ScrapeStatus),
		string(rec.ListingStatus),
		rec.LastChecked.Format(time.RFC3339),
	}
}

// writeCSV creates path (and intermediate directories) and writes the
// header plus all rows.
func writeCSV(path string, header []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("csv: create output dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("csv: create %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("csv: write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
