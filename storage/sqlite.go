package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"finn_scraper/models"
)

// SQLiteStore is the default single-file backend.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS listing_records (
		finn_code TEXT PRIMARY KEY,
		fetched_at DATETIME,
		scrape_status TEXT,
		listing_status TEXT,
		last_date_checked DATETIME
	);

	CREATE TABLE IF NOT EXISTS property_records (
		finn_code TEXT PRIMARY KEY,
		title TEXT,
		address TEXT,
		asking_price TEXT,
		total_price TEXT,
		costs TEXT,
		joint_debt TEXT,
		monthly_fee TEXT,
		property_type TEXT,
		ownership TEXT,
		bedrooms TEXT,
		internal_area TEXT,
		usable_area TEXT,
		external_usable_area TEXT,
		floor TEXT,
		build_year TEXT,
		rooms TEXT,
		local_area TEXT,
		area_name TEXT,
		images JSON,
		latitude REAL,
		longitude REAL,
		scrape_status TEXT,
		last_date_checked DATETIME
	);

	CREATE TABLE IF NOT EXISTS scrape_runs (
		id TEXT PRIMARY KEY,
		kind TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		total INTEGER,
		processed INTEGER,
		succeeded INTEGER,
		errored INTEGER,
		skipped INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_listing_records_status ON listing_records(listing_status);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) SaveListingRecords(ctx context.Context, records []models.ListingRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO listing_records (finn_code, fetched_at, scrape_status, listing_status, last_date_checked)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(finn_code) DO UPDATE SET
			scrape_status = excluded.scrape_status,
			listing_status = excluded.listing_status,
			last_date_checked = MAX(last_date_checked, excluded.last_date_checked)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.FinnCode, rec.FetchedAt, rec.ScrapeStatus, rec.ListingStatus, rec.LastChecked); err != nil {
			return fmt.Errorf("upsert listing %s: %w", rec.FinnCode, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) FetchListingRecords(ctx context.Context, filter models.ListingFilter) ([]models.ListingRecord, error) {
	query := `SELECT finn_code, fetched_at, scrape_status, listing_status, last_date_checked FROM listing_records`
	var args []interface{}

	switch filter {
	case models.FilterPendingOnly:
		query += ` WHERE scrape_status = ?`
		args = append(args, models.ScrapePending)
	case models.FilterActive, models.FilterInactive:
		query += ` WHERE listing_status = ?`
		args = append(args, models.ListingStatus(filter))
	}
	query += ` ORDER BY finn_code`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.ListingRecord
	for rows.Next() {
		var rec models.ListingRecord
		if err := rows.Scan(&rec.FinnCode, &rec.FetchedAt, &rec.ScrapeStatus, &rec.ListingStatus, &rec.LastChecked); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) UpdateScrapeStatus(ctx context.Context, finnCode string, status models.ScrapeStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE listing_records SET scrape_status = ? WHERE finn_code = ?`, status, finnCode)
	return err
}

func (s *SQLiteStore) UpdateListingFields(ctx context.Context, finnCode string, update ListingFieldUpdate) error {
	query := `UPDATE listing_records SET `
	var sets []string
	var args []interface{}

	if update.ScrapeStatus != nil {
		sets = append(sets, "scrape_status = ?")
		args = append(args, *update.ScrapeStatus)
	}
	if update.ListingStatus != nil {
		sets = append(sets, "listing_status = ?")
		args = append(args, *update.ListingStatus)
	}
	if update.LastChecked != nil {
		sets = append(sets, "last_date_checked = MAX(last_date_checked, ?)")
		args = append(args, *update.LastChecked)
	}
	if len(sets) == 0 {
		return nil
	}

	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	query += ` WHERE finn_code = ?`
	args = append(args, finnCode)

	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLiteStore) SavePropertyRecord(ctx context.Context, rec *models.PropertyRecord) error {
	images, err := json.Marshal(rec.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO property_records (
			finn_code, title, address,
			asking_price, total_price, costs, joint_debt, monthly_fee,
			property_type, ownership, bedrooms,
			internal_area, usable_area, external_usable_area,
			floor, build_year, rooms,
			local_area, area_name, images,
			latitude, longitude,
			scrape_status, last_date_checked
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.FinnCode, rec.Title, rec.Address,
		rec.AskingPrice, rec.TotalPrice, rec.Costs, rec.JointDebt, rec.MonthlyFee,
		rec.PropertyType, rec.Ownership, rec.Bedrooms,
		rec.InternalArea, rec.UsableArea, rec.ExternalUsableArea,
		rec.Floor, rec.BuildYear, rec.Rooms,
		rec.LocalArea, rec.AreaName, string(images),
		rec.Latitude, rec.Longitude,
		rec.ScrapeStatus, rec.LastChecked,
	)
	return err
}

func (s *SQLiteStore) PropertyExists(ctx context.Context, finnCode string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM property_records WHERE finn_code = ?`, finnCode).Scan(&count)
	return count > 0, err
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *models.ScrapeRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scrape_runs (id, kind, started_at, finished_at, status, total, processed, succeeded, errored, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), run.Kind, run.StartedAt, run.FinishedAt, run.Status,
		run.Total, run.Processed, run.Succeeded, run.Errored, run.Skipped,
	)
	return err
}

func (s *SQLiteStore) LastRun(ctx context.Context, kind string) (*models.ScrapeRun, error) {
	var run models.ScrapeRun
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, kind, started_at, finished_at, status, total, processed, succeeded, errored, skipped
		FROM scrape_runs WHERE kind = ? ORDER BY started_at DESC LIMIT 1`, kind).Scan(
		&id, &run.Kind, &run.StartedAt, &run.FinishedAt, &run.Status,
		&run.Total, &run.Processed, &run.Succeeded, &run.Errored, &run.Skipped,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.ID = parseRunID(id)
	return &run, nil
}

func (s *SQLiteStore) CountListings(ctx context.Context) (map[models.ListingStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT listing_status, COUNT(1) FROM listing_records GROUP BY listing_status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.ListingStatus]int)
	for rows.Next() {
		var status models.ListingStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) ExportProperties(ctx context.Context, path string) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT finn_code, title, address,
			asking_price, total_price, costs, joint_debt, monthly_fee,
			property_type, ownership, bedrooms,
			internal_area, usable_area, external_usable_area,
			floor, build_year, rooms,
			local_area, area_name, images,
			latitude, longitude,
			scrape_status, last_date_checked
		FROM property_records ORDER BY finn_code`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var rec models.PropertyRecord
		var images string
		if err := rows.Scan(
			&rec.FinnCode, &rec.Title, &rec.Address,
			&rec.AskingPrice, &rec.TotalPrice, &rec.Costs, &rec.JointDebt, &rec.MonthlyFee,
			&rec.PropertyType, &rec.Ownership, &rec.Bedrooms,
			&rec.InternalArea, &rec.UsableArea, &rec.ExternalUsableArea,
			&rec.Floor, &rec.BuildYear, &rec.Rooms,
			&rec.LocalArea, &rec.AreaName, &images,
			&rec.Latitude, &rec.Longitude,
			&rec.ScrapeStatus, &rec.LastChecked,
		); err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(images), &rec.Images); err != nil {
			rec.Images = nil
		}
		out = append(out, propertyRow(&rec))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return writeCSV(path, propertyHeader(), out)
}

func (s *SQLiteStore) ExportListingRecords(ctx context.Context, path string) error {
	records, err := s.FetchListingRecords(ctx, models.FilterAll)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(records))
	for i := range records {
		rows = append(rows, listingRow(&records[i]))
	}
	return writeCSV(path, listingHeader(), rows)
}
