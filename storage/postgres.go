package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"finn_scraper/models"
)

// PostgresStore backs the Store contract with a pgx connection pool. A
// hosted Postgres (Supabase and the like) is reached through the same DSN.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS listing_records (
		finn_code TEXT PRIMARY KEY,
		fetched_at TIMESTAMPTZ,
		scrape_status TEXT,
		listing_status TEXT,
		last_date_checked TIMESTAMPTZ
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
		images JSONB,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		scrape_status TEXT,
		last_date_checked TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS scrape_runs (
		id UUID PRIMARY KEY,
		kind TEXT,
		started_at TIMESTAMPTZ,
		finished_at TIMESTAMPTZ,
		status TEXT,
		total INTEGER,
		processed INTEGER,
		succeeded INTEGER,
		errored INTEGER,
		skipped INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_listing_records_status ON listing_records(listing_status);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PostgresStore) SaveListingRecords(ctx context.Context, records []models.ListingRecord) error {
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO listing_records (finn_code, fetched_at, scrape_status, listing_status, last_date_checked)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (finn_code) DO UPDATE SET
				scrape_status = EXCLUDED.scrape_status,
				listing_status = EXCLUDED.listing_status,
				last_date_checked = GREATEST(listing_records.last_date_checked, EXCLUDED.last_date_checked)`,
			rec.FinnCode, rec.FetchedAt, rec.ScrapeStatus, rec.ListingStatus, rec.LastChecked)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("upsert listing batch: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FetchListingRecords(ctx context.Context, filter models.ListingFilter) ([]models.ListingRecord, error) {
	query := `SELECT finn_code, fetched_at, scrape_status, listing_status, last_date_checked FROM listing_records`
	var args []interface{}

	switch filter {
	case models.FilterPendingOnly:
		query += ` WHERE scrape_status = $1`
		args = append(args, models.ScrapePending)
	case models.FilterActive, models.FilterInactive:
		query += ` WHERE listing_status = $1`
		args = append(args, models.ListingStatus(filter))
	}
	query += ` ORDER BY finn_code`

	rows, err := s.pool.Query(ctx, query, args...)
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

func (s *PostgresStore) UpdateScrapeStatus(ctx context.Context, finnCode string, status models.ScrapeStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE listing_records SET scrape_status = $2 WHERE finn_code = $1`, finnCode, status)
	return err
}

func (s *PostgresStore) UpdateListingFields(ctx context.Context, finnCode string, update ListingFieldUpdate) error {
	var sets []string
	args := []interface{}{finnCode}

	if update.ScrapeStatus != nil {
		args = append(args, *update.ScrapeStatus)
		sets = append(sets, fmt.Sprintf("scrape_status = $%d", len(args)))
	}
	if update.ListingStatus != nil {
		args = append(args, *update.ListingStatus)
		sets = append(sets, fmt.Sprintf("listing_status = $%d", len(args)))
	}
	if update.LastChecked != nil {
		args = append(args, *update.LastChecked)
		sets = append(sets, fmt.Sprintf("last_date_checked = GREATEST(last_date_checked, $%d)", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE listing_records SET %s WHERE finn_code = $1`, strings.Join(sets, ", "))
	_, err := s.pool.Exec(ctx, query, args...)
	return err
}

func (s *PostgresStore) SavePropertyRecord(ctx context.Context, rec *models.PropertyRecord) error {
	images, err := json.Marshal(rec.Images)
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO property_records (
			finn_code, title, address,
			asking_price, total_price, costs, joint_debt, monthly_fee,
			property_type, ownership, bedrooms,
			internal_area, usable_area, external_usable_area,
			floor, build_year, rooms,
			local_area, area_name, images,
			latitude, longitude,
			scrape_status, last_date_checked
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		)
		ON CONFLICT (finn_code) DO UPDATE SET
			title = EXCLUDED.title,
			address = EXCLUDED.address,
			asking_price = EXCLUDED.asking_price,
			total_price = EXCLUDED.total_price,
			costs = EXCLUDED.costs,
			joint_debt = EXCLUDED.joint_debt,
			monthly_fee = EXCLUDED.monthly_fee,
			property_type = EXCLUDED.property_type,
			ownership = EXCLUDED.ownership,
			bedrooms = EXCLUDED.bedrooms,
			internal_area = EXCLUDED.internal_area,
			usable_area = EXCLUDED.usable_area,
			external_usable_area = EXCLUDED.external_usable_area,
			floor = EXCLUDED.floor,
			build_year = EXCLUDED.build_year,
			rooms = EXCLUDED.rooms,
			local_area = EXCLUDED.local_area,
			area_name = EXCLUDED.area_name,
			images = EXCLUDED.images,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			scrape_status = EXCLUDED.scrape_status,
			last_date_checked = EXCLUDED.last_date_checked`,
		rec.FinnCode, rec.Title, rec.Address,
		rec.AskingPrice, rec.TotalPrice, rec.Costs, rec.JointDebt, rec.MonthlyFee,
		rec.PropertyType, rec.Ownership, rec.Bedrooms,
		rec.InternalArea, rec.UsableArea, rec.ExternalUsableArea,
		rec.Floor, rec.BuildYear, rec.Rooms,
		rec.LocalArea, rec.AreaName, images,
		rec.Latitude, rec.Longitude,
		rec.ScrapeStatus, rec.LastChecked,
	)
	return err
}

func (s *PostgresStore) PropertyExists(ctx context.Context, finnCode string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM property_records WHERE finn_code = $1)`, finnCode).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) SaveRun(ctx context.Context, run *models.ScrapeRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scrape_runs (id, kind, started_at, finished_at, status, total, processed, succeeded, errored, skipped)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			status = EXCLUDED.status,
			total = EXCLUDED.total,
			processed = EXCLUDED.processed,
			succeeded = EXCLUDED.succeeded,
			errored = EXCLUDED.errored,
			skipped = EXCLUDED.skipped`,
		run.ID, run.Kind, run.StartedAt, run.FinishedAt, run.Status,
		run.Total, run.Processed, run.Succeeded, run.Errored, run.Skipped,
	)
	return err
}

func (s *PostgresStore) LastRun(ctx context.Context, kind string) (*models.ScrapeRun, error) {
	var run models.ScrapeRun
	err := s.pool.QueryRow(ctx, `
		SELECT id, kind, started_at, finished_at, status, total, processed, succeeded, errored, skipped
		FROM scrape_runs WHERE kind = $1 ORDER BY started_at DESC LIMIT 1`, kind).Scan(
		&run.ID, &run.Kind, &run.StartedAt, &run.FinishedAt, &run.Status,
		&run.Total, &run.Processed, &run.Succeeded, &run.Errored, &run.Skipped,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *PostgresStore) CountListings(ctx context.Context) (map[models.ListingStatus]int, error) {
	rows, err := s.pool.Query(ctx,
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

func (s *PostgresStore) ExportProperties(ctx context.Context, path string) error {
	rows, err := s.pool.Query(ctx, `
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
		var images []byte
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
		if err := json.Unmarshal(images, &rec.Images); err != nil {
			rec.Images = nil
		}
		out = append(out, propertyRow(&rec))
	}
	if err := rows.Err(); err != nil {
		return err
	}

	return writeCSV(path, propertyHeader(), out)
}

func (s *PostgresStore) ExportListingRecords(ctx context.Context, path string) error {
	records, err := s.FetchListingRecords(ctx, models.FilterAll)
	if err != nil {
		return err
	}

	out := make([][]string, 0, len(records))
	for i := range records {
		out = append(out, listingRow(&records[i]))
	}
	return writeCSV(path, listingHeader(), out)
}
